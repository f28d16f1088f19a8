package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"

	apperrors "github.com/helpline-oss/support-desk/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, exp, err := tm.GenerateToken("maria")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(exp) <= 4*time.Minute {
		t.Errorf("unexpected expiry %s", exp)
	}
	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "maria" || claims.Role != RoleStaff {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestParseTokenRejects(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	other := NewTokenManager("other-secret", 5)
	foreign, _, _ := other.GenerateToken("maria")

	expired := NewTokenManager("secret", 5)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	stale, _, _ := expired.GenerateToken("maria")

	noRole := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "maria"}})
	unroled, _ := noRole.SignedString([]byte("secret"))

	for name, token := range map[string]string{
		"wrong secret": foreign,
		"expired":      stale,
		"no role":      unroled,
		"garbage":      "not-a-jwt",
	} {
		if _, err := tm.ParseToken(token); err == nil {
			t.Errorf("%s: expected rejection", name)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := ComparePassword(hash, "hunter2"); err != nil {
		t.Errorf("expected match: %v", err)
	}
	if err := ComparePassword(hash, "hunter3"); err == nil {
		t.Error("expected mismatch")
	}
}

func newTestApp(m *StaffMiddleware) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	app.Get("/staff", m.Handle, func(c *fiber.Ctx) error {
		if p, ok := PrincipalFromContext(c); ok {
			return c.SendString(p.Username)
		}
		return c.SendString("anonymous")
	})
	return app
}

func TestStaffMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, _, _ := tm.GenerateToken("maria")

	tests := []struct {
		name     string
		required bool
		header   string
		wantCode int
		wantBody string
	}{
		{"required without header", true, "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"required with token", true, "Bearer " + token, http.StatusOK, "maria"},
		{"required with bad scheme", true, "Basic abc", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"optional without header", false, "", http.StatusOK, "anonymous"},
		{"optional with bad token", false, "Bearer nope", http.StatusUnauthorized, "UNAUTHORIZED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(NewStaffMiddleware(tm, tt.required))
			req := httptest.NewRequest(http.MethodGet, "/staff", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != tt.wantCode || string(body) != tt.wantBody {
				t.Errorf("got %d %q, want %d %q", resp.StatusCode, body, tt.wantCode, tt.wantBody)
			}
		})
	}
}
