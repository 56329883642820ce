package middleware // package middleware contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/facility-placement/internal/utils"
)

// Context keys set by Authenticate.
const (
	ctxSubject = "subject"
	ctxRole    = "role"
)

// APIKeyHeader carries a static integration key as an alternative to a
// bearer token.
const APIKeyHeader = "X-API-Key"

// AuthConfig configures Authenticate.
//
// Fields:
//
//	JWTSecret  – HS256 secret bearer tokens must be signed with.
//	APIKeyHash – bcrypt hash of the accepted X-API-Key; empty disables keys.
//	APIKeyRole – role granted to API-key callers.
type AuthConfig struct {
	JWTSecret  string
	APIKeyHash string
	APIKeyRole string
}

// Authenticate accepts either "Authorization: Bearer <jwt>" or an
// X-API-Key header and stores the caller's subject and role in the
// context.  Requests with neither are rejected with 401.
func Authenticate(cfg AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if key := c.Request().Header.Get(APIKeyHeader); key != "" {
				if !utils.VerifyAPIKey(cfg.APIKeyHash, key) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid api key"})
				}
				c.Set(ctxSubject, "api-key")
				c.Set(ctxRole, cfg.APIKeyRole)
				return next(c)
			}

			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing credentials"})
			}
			claims, err := utils.ParseAccessToken(cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(ctxSubject, claims.Subject)
			c.Set(ctxRole, claims.Role)
			return next(c)
		}
	}
}

// Subject returns the authenticated caller, or "anon" before
// authentication.
func Subject(c echo.Context) string {
	if s, ok := c.Get(ctxSubject).(string); ok && s != "" {
		return s
	}
	return "anon"
}
