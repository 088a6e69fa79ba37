package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/golang-jwt/jwt/v5"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNoToken      = errors.New("authentication required: no token provided")
	ErrEmptyToken   = errors.New("authentication required: token is missing after Bearer")
	ErrExpiredToken = errors.New("invalid or expired token: token has expired")
	ErrBadToken     = errors.New("invalid or expired token: token is malformed or invalid")
	ErrBadClaims    = errors.New("invalid token: payload structure incorrect")
)

type Identity struct {
	UserID string
	Role   orders.Role
}

func (id Identity) Viewer() orders.Viewer { return orders.Viewer{UserID: id.UserID, Role: id.Role} }

type Claims struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Issue is used by tooling and tests; login lives elsewhere.
func Issue(secret []byte, id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:   id.UserID,
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func Parse(secret []byte, raw string) (Identity, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Identity{}, ErrExpiredToken
	case err != nil:
		return Identity{}, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	if c.ID == "" || c.Role == "" {
		return Identity{}, ErrBadClaims
	}
	return Identity{UserID: c.ID, Role: orders.Role(c.Role)}, nil
}

// Middleware requires "Authorization: Bearer <jwt>" and stores the Identity in the context.
func Middleware(secret []byte, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				deny(w, http.StatusUnauthorized, "UNAUTHENTICATED", ErrNoToken)
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			if raw == "" {
				deny(w, http.StatusUnauthorized, "UNAUTHENTICATED", ErrEmptyToken)
				return
			}
			id, err := Parse(secret, raw)
			if err != nil {
				log.Info("token rejected", "err", err)
				switch {
				case errors.Is(err, ErrBadToken):
					deny(w, http.StatusUnauthorized, "UNAUTHENTICATED", ErrBadToken)
				default:
					deny(w, http.StatusUnauthorized, "UNAUTHENTICATED", err)
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole must run after Middleware.
func RequireRole(roles ...orders.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				deny(w, http.StatusUnauthorized, "UNAUTHENTICATED", ErrNoToken)
				return
			}
			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			deny(w, http.StatusForbidden, "FORBIDDEN", fmt.Errorf("forbidden: %s access required", roleList(roles)))
		})
	}
}

func roleList(roles []orders.Role) string {
	s := make([]string, len(roles))
	for i, r := range roles {
		s[i] = string(r)
	}
	return strings.Join(s, " or ")
}

func deny(w http.ResponseWriter, status int, code string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error(), "code": code})
}
