package store

import (
	"context"

	users "github.com/AdamBeresnev/matchday/internal/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// UserStore persists host accounts.
type UserStore struct {
	db *sqlx.DB
}

const (
	userColumns = "id, email, username, created_at, provider, provider_id, avatar_url"

	getUserQuery = "SELECT " + userColumns + " FROM users WHERE id = ?"

	getUserByProviderQuery = "SELECT " + userColumns + " FROM users WHERE provider = ? AND provider_id = ?"

	createUserQuery = `
		INSERT INTO users (id, email, username, provider, provider_id, avatar_url)
		VALUES (:id, :email, :username, :provider, :provider_id, :avatar_url)
	`

	// The existing row keeps its id, profile fields follow the provider.
	upsertProviderUserQuery = `
		INSERT INTO users (id, email, username, provider, provider_id, avatar_url)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider, provider_id) DO UPDATE SET
			email = excluded.email,
			username = excluded.username,
			avatar_url = excluded.avatar_url
		RETURNING ` + userColumns
)

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUserByProvider(ctx context.Context, provider string, providerID string) (*users.User, error) {
	var user users.User
	if err := s.db.GetContext(ctx, &user, getUserByProviderQuery, provider, providerID); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	var user users.User
	if err := s.db.GetContext(ctx, &user, getUserQuery, id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) CreateUser(ctx context.Context, user *users.User) error {
	_, err := s.db.NamedExecContext(ctx, createUserQuery, user)
	return err
}

// UpsertProviderUser inserts user or refreshes the profile of the account
// already linked to the same provider identity, returning the stored row.
func (s *UserStore) UpsertProviderUser(ctx context.Context, user *users.User) (*users.User, error) {
	var stored users.User
	err := s.db.GetContext(ctx, &stored, upsertProviderUserQuery,
		user.ID, user.Email, user.Username, user.Provider, user.ProviderID, user.AvatarURL)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}
