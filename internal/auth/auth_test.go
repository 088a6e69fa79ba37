package auth

import (
	"encoding/json"
	"errors"
	"github.com/ariefcatur/go-marketplace-orders.git/internal/orders"
	"github.com/golang-jwt/jwt/v5"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var secret = []byte("test-secret")

func quietLog() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func protected(roles ...orders.Role) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := FromContext(r.Context())
		_, _ = w.Write([]byte(id.UserID))
	})
	var h http.Handler = ok
	if len(roles) > 0 {
		h = RequireRole(roles...)(h)
	}
	return Middleware(secret, quietLog())(h)
}

func call(h http.Handler, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errMsg(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body["error"]
}

func TestMiddleware(t *testing.T) {
	buyer, err := Issue(secret, Identity{UserID: "b1", Role: orders.RoleBuyer}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	t.Run("valid token -> identity in context", func(t *testing.T) {
		rec := call(protected(), "Bearer "+buyer)
		if rec.Code != http.StatusOK || rec.Body.String() != "b1" {
			t.Fatalf("got %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("no header -> 401", func(t *testing.T) {
		rec := call(protected(), "")
		if rec.Code != http.StatusUnauthorized || errMsg(t, rec) != ErrNoToken.Error() {
			t.Fatalf("got %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("bearer without token -> 401", func(t *testing.T) {
		rec := call(protected(), "Bearer   ")
		if rec.Code != http.StatusUnauthorized || errMsg(t, rec) != ErrEmptyToken.Error() {
			t.Fatalf("got %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("expired -> 401 expired", func(t *testing.T) {
		expired, _ := Issue(secret, Identity{UserID: "b1", Role: orders.RoleBuyer}, -time.Minute)
		rec := call(protected(), "Bearer "+expired)
		if rec.Code != http.StatusUnauthorized || errMsg(t, rec) != ErrExpiredToken.Error() {
			t.Fatalf("got %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("wrong secret -> 401 invalid", func(t *testing.T) {
		forged, _ := Issue([]byte("other"), Identity{UserID: "b1", Role: orders.RoleAdmin}, time.Hour)
		rec := call(protected(), "Bearer "+forged)
		if rec.Code != http.StatusUnauthorized || errMsg(t, rec) != ErrBadToken.Error() {
			t.Fatalf("got %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("missing claims -> 401", func(t *testing.T) {
		tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "b1"}).SignedString(secret)
		rec := call(protected(), "Bearer "+tok)
		if rec.Code != http.StatusUnauthorized || errMsg(t, rec) != ErrBadClaims.Error() {
			t.Fatalf("got %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("buyer on seller route -> 403", func(t *testing.T) {
		rec := call(protected(orders.RoleSeller), "Bearer "+buyer)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("got %d", rec.Code)
		}
	})

	t.Run("seller on seller route -> 200", func(t *testing.T) {
		seller, _ := Issue(secret, Identity{UserID: "s1", Role: orders.RoleSeller}, time.Hour)
		rec := call(protected(orders.RoleSeller, orders.RoleAdmin), "Bearer "+seller)
		if rec.Code != http.StatusOK {
			t.Fatalf("got %d", rec.Code)
		}
	})
}

func TestParseRejectsNoneAlg(t *testing.T) {
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ID: "x", Role: "admin"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := Parse(secret, tok); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken, got %v", err)
	}
}
