package controller

import (
	"database/sql"
	"errors"
	"net/http"
	"net/url"

	dto "github.com/vibast-solutions/ms-go-identity/app/dto/http"
	"github.com/vibast-solutions/ms-go-identity/app/entity"
	"github.com/vibast-solutions/ms-go-identity/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type UsersController struct {
	authService *service.AuthService
	db          *sql.DB
}

func NewUsersController(authService *service.AuthService, db *sql.DB) *UsersController {
	return &UsersController{authService: authService, db: db}
}

func (c *UsersController) Me(ctx echo.Context) error {
	email, ok := ctx.Get("user_email").(string)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	user, err := c.authService.Profile(ctx.Request().Context(), email)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
		}
		logrus.WithError(err).WithField("email", email).Error("Profile lookup failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, userView(user))
}

func (c *UsersController) UpdateAvatar(ctx echo.Context) error {
	email, ok := ctx.Get("user_email").(string)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	var req dto.UpdateAvatarRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind avatar request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.AvatarURL == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "avatar_url is required"})
	}
	if u, err := url.Parse(req.AvatarURL); err != nil || u.Scheme == "" || u.Host == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "avatar_url must be an absolute URL"})
	}

	user, err := c.authService.UpdateAvatar(ctx.Request().Context(), email, req.AvatarURL)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
		}
		logrus.WithError(err).WithField("email", email).Error("Avatar update failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("email", email).Info("Avatar updated")
	return ctx.JSON(http.StatusOK, userView(user))
}

func (c *UsersController) Healthcheck(ctx echo.Context) error {
	if err := c.db.PingContext(ctx.Request().Context()); err != nil {
		logrus.WithError(err).Error("Healthcheck failed: database unreachable")
		return ctx.JSON(http.StatusInternalServerError, dto.HealthResponse{Status: "unhealthy"})
	}
	return ctx.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
}

func userView(user *entity.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Avatar:    user.Avatar.String,
		Role:      user.Role,
		Confirmed: user.Confirmed,
	}
}
