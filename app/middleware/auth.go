package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/vibast-solutions/ms-go-identity/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type currentUserResolver interface {
	ResolveCurrentUser(ctx context.Context, accessToken string) (*service.AuthUser, error)
}

type AuthMiddleware struct {
	authService currentUserResolver
}

func NewAuthMiddleware(authService currentUserResolver) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// RequireAuth resolves the bearer access token to its principal and stores it
// on the request context under "auth_user" and "user_email".
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			logrus.Debug("Missing authorization header")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "missing authorization header",
			})
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logrus.Debug("Invalid authorization header format")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid authorization header format",
			})
		}

		user, err := m.authService.ResolveCurrentUser(c.Request().Context(), parts[1])
		if err != nil {
			logrus.WithError(err).Debug("Access token rejected")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid or expired token",
			})
		}

		c.Set("auth_user", user)
		c.Set("user_email", user.Email)

		return next(c)
	}
}
