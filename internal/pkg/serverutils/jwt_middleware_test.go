package serverutils

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sign(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestParseToken(t *testing.T) {
	valid := sign(t, jwt.MapClaims{"user_id": "u-42", "exp": time.Now().Add(time.Hour).Unix()}, testSecret)

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{"valid", valid, "u-42", false},
		{"wrong secret", sign(t, jwt.MapClaims{"user_id": "u-42"}, "other"), "", true},
		{"expired", sign(t, jwt.MapClaims{"user_id": "u-42", "exp": time.Now().Add(-time.Hour).Unix()}, testSecret), "", true},
		{"missing user", sign(t, jwt.MapClaims{"sub": "u-42"}, testSecret), "", true},
		{"garbage", "not.a.token", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseToken(tt.token, testSecret)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJwtMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/me", JwtMiddleware(testSecret), func(ctx *fiber.Ctx) error {
		return ctx.SendString(ctx.Locals("user_id").(string))
	})

	valid := sign(t, jwt.MapClaims{"user_id": "u-7"}, testSecret)

	tests := []struct {
		name   string
		target string
		header string
		status int
		body   string
	}{
		{"header", "/me", "Bearer " + valid, fiber.StatusOK, "u-7"},
		{"query", "/me?token=" + valid, "", fiber.StatusOK, "u-7"},
		{"missing", "/me", "", fiber.StatusUnauthorized, ""},
		{"invalid", "/me", "Bearer nope", fiber.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.body != "" {
				b, _ := io.ReadAll(resp.Body)
				assert.Equal(t, tt.body, string(b))
			}
		})
	}
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/teapot", func(ctx *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })

	resp, err := app.Test(httptest.NewRequest("GET", "/teapot", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"success":false,"code":418,"message":"short and stout"}`, string(b))
}
