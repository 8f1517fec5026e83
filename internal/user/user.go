// Package users models the accounts that host events.
package users

import (
	"time"

	"github.com/google/uuid"
)

type ContextKey string

const UserKey ContextKey = "user"

// GuestID is the shared account seeded by the first migration. Anyone who skips
// OAuth hosts events as this user.
var GuestID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

type User struct {
	ID         uuid.UUID `db:"id"`
	Email      string    `db:"email"`
	Username   string    `db:"username"`
	CreatedAt  time.Time `db:"created_at"`
	Provider   *string   `db:"provider"`
	ProviderID *string   `db:"provider_id"`
	AvatarURL  *string   `db:"avatar_url"`
}

func (u *User) IsGuest() bool {
	return u.ID == GuestID
}

// Label is what the page header shows for the signed in host.
func (u *User) Label() string {
	switch {
	case u.IsGuest():
		return "Guest"
	case u.Username != "":
		return u.Username
	}
	return u.Email
}
