package controller

import (
	"errors"
	"net/http"
	"strings"

	dto "github.com/vibast-solutions/ms-go-identity/app/dto/http"
	"github.com/vibast-solutions/ms-go-identity/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type AuthController struct {
	authService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

func (c *AuthController) Signup(ctx echo.Context) error {
	var req dto.SignupRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind signup request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "username, email and password are required"})
	}

	user, err := c.authService.Signup(ctx.Request().Context(), req.Email, req.Password, req.Username)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateAccount) {
			logrus.WithField("email", req.Email).Warn("Signup failed: account already exists")
			return ctx.JSON(http.StatusConflict, dto.ErrorResponse{Error: "account already exists"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Signup failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User signed up")

	return ctx.JSON(http.StatusCreated, dto.SignupResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Avatar:   user.Avatar.String,
		Message:  "signup successful, please confirm your email",
	})
}

func (c *AuthController) Login(ctx echo.Context) error {
	var req dto.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind login request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Email == "" || req.Password == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "email and password are required"})
	}

	pair, err := c.authService.Login(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			logrus.WithField("email", req.Email).Warn("Login failed: invalid credentials")
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid email or password"})
		}
		if errors.Is(err, service.ErrAccountNotConfirmed) {
			logrus.WithField("email", req.Email).Warn("Login failed: email not confirmed")
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "please confirm your email"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Login failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("email", req.Email).Info("Login successful")
	return ctx.JSON(http.StatusOK, dto.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
	})
}

// RefreshToken expects the refresh token itself as the bearer credential.
func (c *AuthController) RefreshToken(ctx echo.Context) error {
	presented, ok := bearerToken(ctx)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "missing or malformed authorization header"})
	}

	pair, err := c.authService.RefreshAccessToken(ctx.Request().Context(), presented)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) || errors.Is(err, service.ErrWrongScope) {
			logrus.Warn("Refresh failed: invalid or wrong-scope token")
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid or expired refresh token"})
		}
		if errors.Is(err, service.ErrTokenRevoked) {
			logrus.Warn("Refresh failed: token revoked")
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "refresh token revoked, please log in again"})
		}
		logrus.WithError(err).Error("Refresh failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, dto.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
	})
}

func (c *AuthController) ConfirmEmail(ctx echo.Context) error {
	token := ctx.Param("token")
	if token == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "token is required"})
	}

	already, err := c.authService.ConfirmEmail(ctx.Request().Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			logrus.Warn("Confirm email failed: invalid token")
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid or expired token"})
		}
		if errors.Is(err, service.ErrUserNotFound) {
			logrus.Warn("Confirm email failed: user not found")
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
		}
		logrus.WithError(err).Error("Confirm email failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	if already {
		return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "email already confirmed"})
	}

	logrus.Info("Email confirmed")
	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "email confirmed successfully"})
}

func (c *AuthController) RequestEmail(ctx echo.Context) error {
	var req dto.RequestEmailRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind request email request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Email == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "email is required"})
	}

	err := c.authService.RequestConfirmEmail(ctx.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyConfirmed) {
			return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "email already confirmed"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Request confirmation email failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	// Unknown addresses get the same answer as known ones.
	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "if the email exists, a confirmation message has been sent"})
}

func (c *AuthController) ForgotPassword(ctx echo.Context) error {
	var req dto.ForgotPasswordRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind forgot password request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Email == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "email is required"})
	}

	if err := c.authService.RequestPasswordReset(ctx.Request().Context(), req.Email); err != nil {
		logrus.WithError(err).WithField("email", req.Email).Error("Request password reset failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "if the email exists, a reset message has been sent"})
}

func (c *AuthController) ResetPassword(ctx echo.Context) error {
	var req dto.ResetPasswordRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind reset password request")
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Token == "" || req.NewPassword == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "token and new_password are required"})
	}

	err := c.authService.ResetPassword(ctx.Request().Context(), req.Token, req.NewPassword)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) || errors.Is(err, service.ErrWrongScope) {
			logrus.Warn("Reset password failed: invalid token")
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid or expired reset token"})
		}
		if errors.Is(err, service.ErrUserNotFound) {
			logrus.Warn("Reset password failed: user not found")
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid or expired reset token"})
		}
		logrus.WithError(err).Error("Reset password failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.Info("Password reset successful")
	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "password reset successfully"})
}

func (c *AuthController) Logout(ctx echo.Context) error {
	email, ok := ctx.Get("user_email").(string)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	if err := c.authService.Logout(ctx.Request().Context(), email); err != nil {
		logrus.WithError(err).WithField("email", email).Error("Logout failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("email", email).Info("Logout successful")
	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "logged out successfully"})
}

func bearerToken(ctx echo.Context) (string, bool) {
	authHeader := ctx.Request().Header.Get("Authorization")
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	return parts[1], true
}
