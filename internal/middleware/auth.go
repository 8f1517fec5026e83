package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/matchday/internal/config"
	"github.com/AdamBeresnev/matchday/internal/store"
	users "github.com/AdamBeresnev/matchday/internal/user"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/discord"
	"github.com/markbates/goth/providers/google"
)

type ContextKey string

const UserIDKey ContextKey = "userID"

// SessionUserKey is where the logged in user's id lives in the scs session.
const SessionUserKey = "userID"

// InitAuth registers the OAuth providers that have credentials configured.
func InitAuth(cfg *config.Config) []string {
	var providers []goth.Provider
	var names []string
	if cfg.Discord.Enabled() {
		providers = append(providers, discord.New(cfg.Discord.Key, cfg.Discord.Secret, cfg.Discord.CallbackURL, discord.ScopeIdentify, discord.ScopeEmail))
		names = append(names, "discord")
	}
	if cfg.Google.Enabled() {
		providers = append(providers, google.New(cfg.Google.Key, cfg.Google.Secret, cfg.Google.CallbackURL, "email", "profile"))
		names = append(names, "google")
	}
	goth.UseProviders(providers...)
	slog.Info("auth providers registered", "providers", names)
	return names
}

// RequireAuth loads the session user into the context. Page requests without a
// session are sent to the login page, everything else gets a 401.
func RequireAuth(sessionManager *scs.SessionManager, userStore *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userIDStr := sessionManager.GetString(r.Context(), SessionUserKey)
			if userIDStr == "" {
				unauthenticated(w, r)
				return
			}

			userID, err := uuid.Parse(userIDStr)
			if err != nil {
				sessionManager.Remove(r.Context(), SessionUserKey)
				unauthenticated(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)

			// Add the user to context so that we can easily get it whenever we want
			user, err := userStore.GetUser(ctx, userID)
			if err == nil {
				ctx = context.WithValue(ctx, users.UserKey, user)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthenticated(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && r.Header.Get("Upgrade") == "" {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	val := ctx.Value(UserIDKey)
	if val == nil {
		return uuid.Nil, false
	}

	id, ok := val.(uuid.UUID)
	return id, ok
}

func GetAuthenticatedUser(ctx context.Context) *users.User {
	val := ctx.Value(users.UserKey)
	if val == nil {
		return nil
	}
	user, ok := val.(*users.User)
	if !ok {
		return nil
	}
	return user
}
