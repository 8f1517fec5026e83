package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AdamBeresnev/matchday/internal/store"
	users "github.com/AdamBeresnev/matchday/internal/user"
	"github.com/AdamBeresnev/matchday/internal/utils"
	"github.com/google/uuid"
	"github.com/markbates/goth"
)

type UserService struct {
	store *store.UserStore
}

func NewUserService(store *store.UserStore) *UserService {
	return &UserService{store: store}
}

// FindOrCreateUserByProvider links an OAuth identity to a host account,
// refreshing the stored profile on every login.
func (s *UserService) FindOrCreateUserByProvider(ctx context.Context, gothUser goth.User) (*users.User, error) {
	if gothUser.Provider == "" || gothUser.UserID == "" {
		return nil, errors.New("provider identity is incomplete")
	}
	user, err := s.store.UpsertProviderUser(ctx, &users.User{
		ID:         uuid.New(),
		Email:      gothUser.Email,
		Username:   displayName(gothUser),
		Provider:   utils.Ptr(gothUser.Provider),
		ProviderID: utils.Ptr(gothUser.UserID),
		AvatarURL:  utils.StringOrNil(gothUser.AvatarURL),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert %s user: %w", gothUser.Provider, err)
	}
	return user, nil
}

func displayName(u goth.User) string {
	if u.NickName != "" {
		return u.NickName
	}
	return u.Name
}

// EnsureGuestUser returns the shared guest account, recreating it if the seed
// row was removed.
func (s *UserService) EnsureGuestUser(ctx context.Context) (*users.User, error) {
	user, err := s.store.GetUser(ctx, users.GuestID)
	if !errors.Is(err, sql.ErrNoRows) {
		return user, err
	}

	guest := &users.User{
		ID:       users.GuestID,
		Email:    "guest@matchday.app",
		Username: "Guest User",
	}
	if err := s.store.CreateUser(ctx, guest); err != nil {
		return nil, err
	}
	return guest, nil
}
