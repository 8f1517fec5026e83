package users

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{"guest", User{ID: GuestID, Username: "Guest User"}, "Guest"},
		{"username", User{ID: uuid.New(), Username: "courtside", Email: "a@b.c"}, "courtside"},
		{"email fallback", User{ID: uuid.New(), Email: "a@b.c"}, "a@b.c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.Label())
		})
	}
}
