package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nikhilbhutani/audioreader/internal/models"
)

// UserLookup resolves the subject of a session token.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type JWTMiddleware struct {
	issuer     *Issuer
	users      UserLookup
	cookieName string
}

func NewJWTMiddleware(issuer *Issuer, users UserLookup, cookieName string) *JWTMiddleware {
	return &JWTMiddleware{
		issuer:     issuer,
		users:      users,
		cookieName: cookieName,
	}
}

// Authenticate accepts a bearer token or the session cookie and puts the
// user in the request context.
func (m *JWTMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := m.extractToken(r)
		if tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := m.issuer.Parse(tokenStr)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		user, err := m.users.GetUserByID(r.Context(), claims.Subject)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := WithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *JWTMiddleware) extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if c, err := r.Cookie(m.cookieName); err == nil {
		return c.Value
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
