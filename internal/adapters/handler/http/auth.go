package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey  contextKey = "user_id"
	IsAdminKey contextKey = "is_admin"

	accessTokenCookie = "access_token"
	adminRole         = "admin"
)

var errMissingToken = errors.New("missing access token")

// Authenticator verifies HS256 access tokens issued by the login service.
// The subject is the voter id; a "role" claim of "admin" grants
// administrative access.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, admin, err := a.identify(r)
		if err != nil {
			http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		ctx = context.WithValue(ctx, IsAdminKey, admin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) identify(r *http.Request) (uuid.UUID, bool, error) {
	raw := bearerToken(r)
	if raw == "" {
		return uuid.Nil, false, errMissingToken
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, false, err
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return uuid.Nil, false, err
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, false, errors.New("invalid subject")
	}
	role, _ := claims["role"].(string)
	return userID, role == adminRole, nil
}

func bearerToken(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func userID(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(UserIDKey).(uuid.UUID)
	return id
}

func isAdmin(r *http.Request) bool {
	admin, _ := r.Context().Value(IsAdminKey).(bool)
	return admin
}
