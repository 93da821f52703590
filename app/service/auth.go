package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-identity/app/dto"
	"github.com/vibast-solutions/ms-go-identity/app/entity"
	"github.com/vibast-solutions/ms-go-identity/app/mailer"
	"github.com/vibast-solutions/ms-go-identity/config"
)

var (
	ErrDuplicateAccount    = errors.New("account already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountNotConfirmed = errors.New("email not confirmed")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrWrongScope          = errors.New("invalid scope for token")
	ErrTokenRevoked        = errors.New("refresh token revoked")
	ErrUserNotFound        = errors.New("user not found")
	ErrAlreadyConfirmed    = errors.New("email already confirmed")
)

// AuthUser is the request-time view of an authenticated principal, carrying
// only what authorization decisions need.
type AuthUser struct {
	ID        uint64
	Email     string
	Role      string
	Confirmed bool
}

type userRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdateRefreshToken(ctx context.Context, userID uint64, token sql.NullString) error
	RotateRefreshToken(ctx context.Context, userID uint64, current, next string) (bool, error)
	ConfirmEmail(ctx context.Context, userID uint64) error
	UpdateAvatar(ctx context.Context, userID uint64, avatarURL string) error
	UpdatePassword(ctx context.Context, userID uint64, passwordHash string) error
}

type AsyncRunner func(task func())

type AuthServiceOption func(*AuthService)

// AuthService orchestrates the credential store, hasher, token codec, identity
// cache and mail sender. Constructed once at startup; no global state.
type AuthService struct {
	userRepo    userRepository
	cache       *IdentityCache
	codec       *TokenCodec
	sender      mailer.Sender
	baseURL     string
	asyncRunner AsyncRunner
}

func NewAuthService(
	userRepo userRepository,
	cache *IdentityCache,
	codec *TokenCodec,
	sender mailer.Sender,
	cfg *config.Config,
	opts ...AuthServiceOption,
) *AuthService {
	svc := &AuthService{
		userRepo: userRepo,
		cache:    cache,
		codec:    codec,
		sender:   sender,
		baseURL:  cfg.AppBaseURL,
		asyncRunner: func(task func()) {
			go task()
		},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithAsyncRunner(runner AsyncRunner) AuthServiceOption {
	return func(s *AuthService) {
		if runner != nil {
			s.asyncRunner = runner
		}
	}
}

// Signup creates an unconfirmed account and fires the confirmation mail off
// the request path. The password hash never leaves the entity layer.
func (s *AuthService) Signup(ctx context.Context, email, password, username string) (*entity.User, error) {
	email = NormalizeEmail(email)

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateAccount
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &entity.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Avatar:       sql.NullString{String: GravatarURL(email), Valid: true},
		Confirmed:    false,
		Role:         entity.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.asyncRunner(func() {
		s.sendConfirmation(user.Email, user.Username)
	})

	return user, nil
}

// Login verifies credentials and issues a fresh token pair. Unknown email and
// wrong password are reported identically to resist account enumeration.
func (s *AuthService) Login(ctx context.Context, email, password string) (*dto.TokenPair, error) {
	email = NormalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if !user.Confirmed {
		return nil, ErrAccountNotConfirmed
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user.Email)
	if err != nil {
		return nil, err
	}

	// Overwriting the stored value revokes any previously issued refresh
	// token: at most one active session per user.
	if err := s.userRepo.UpdateRefreshToken(ctx, user.ID, sql.NullString{String: pair.RefreshToken, Valid: true}); err != nil {
		return nil, err
	}

	return pair, nil
}

// RefreshAccessToken rotates the refresh token. Presentation of a superseded
// token clears the stored one entirely, forcing a re-login.
func (s *AuthService) RefreshAccessToken(ctx context.Context, presented string) (*dto.TokenPair, error) {
	claims, err := s.codec.Decode(presented)
	if err != nil {
		return nil, err
	}
	if claims.Scope != ScopeRefreshToken {
		return nil, ErrWrongScope
	}

	user, err := s.userRepo.FindByEmail(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	if !user.RefreshToken.Valid || user.RefreshToken.String != presented {
		s.revokeOnReuse(ctx, user)
		return nil, ErrTokenRevoked
	}

	pair, err := s.issuePair(user.Email)
	if err != nil {
		return nil, err
	}

	rotated, err := s.userRepo.RotateRefreshToken(ctx, user.ID, presented, pair.RefreshToken)
	if err != nil {
		return nil, err
	}
	if !rotated {
		// A concurrent refresh with the same token won the rotation; this
		// call is a reuse.
		s.revokeOnReuse(ctx, user)
		return nil, ErrTokenRevoked
	}

	return pair, nil
}

// ResolveCurrentUser maps a bearer access token to its principal, trusting the
// identity cache for the remainder of its TTL before touching the store.
func (s *AuthService) ResolveCurrentUser(ctx context.Context, accessToken string) (*AuthUser, error) {
	claims, err := s.codec.Decode(accessToken)
	if err != nil {
		return nil, err
	}
	if claims.Scope != ScopeAccessToken {
		return nil, ErrInvalidToken
	}
	email := claims.Subject

	cached, err := s.cache.Get(ctx, email)
	if err != nil {
		logrus.WithError(err).WithField("email", email).Warn("identity cache lookup failed, falling back to store")
	}
	if cached != nil {
		return &AuthUser{ID: cached.ID, Email: cached.Email, Role: cached.Role, Confirmed: cached.Confirmed}, nil
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if err := s.cache.Set(ctx, user); err != nil {
		logrus.WithError(err).WithField("email", email).Warn("identity cache write failed")
	}

	return &AuthUser{ID: user.ID, Email: user.Email, Role: user.Role, Confirmed: user.Confirmed}, nil
}

// ConfirmEmail flips the confirmed flag exactly once. A second confirmation
// with a valid token reports alreadyConfirmed without touching state.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (alreadyConfirmed bool, err error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return false, err
	}

	user, err := s.userRepo.FindByEmail(ctx, claims.Subject)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, ErrUserNotFound
	}

	if user.Confirmed {
		return true, nil
	}

	if err := s.userRepo.ConfirmEmail(ctx, user.ID); err != nil {
		return false, err
	}
	s.invalidateCache(ctx, user.Email)

	return false, nil
}

// RequestConfirmEmail re-sends the confirmation mail. Unknown addresses fail
// silently so the endpoint cannot be used to enumerate accounts.
func (s *AuthService) RequestConfirmEmail(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	if user.Confirmed {
		return ErrAlreadyConfirmed
	}

	s.asyncRunner(func() {
		s.sendConfirmation(user.Email, user.Username)
	})
	return nil
}

// RequestPasswordReset mails a reset token. Unknown addresses fail silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	s.asyncRunner(func() {
		s.sendPasswordReset(user.Email, user.Username)
	})
	return nil
}

// ResetPassword consumes a scope=password_reset token, replaces the hash and
// revokes the active session.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := s.codec.DecodeWithScope(token, ScopePasswordReset)
	if err != nil {
		return err
	}

	user, err := s.userRepo.FindByEmail(ctx, claims.Subject)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return err
	}
	s.invalidateCache(ctx, user.Email)

	return nil
}

// Logout nulls the stored refresh token so a subsequent refresh fails with
// ErrTokenRevoked.
func (s *AuthService) Logout(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := s.userRepo.UpdateRefreshToken(ctx, user.ID, sql.NullString{}); err != nil {
		return err
	}
	s.invalidateCache(ctx, user.Email)

	return nil
}

// Profile returns the full identity record for the given email.
func (s *AuthService) Profile(ctx context.Context, email string) (*entity.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateAvatar stores the avatar URL produced by the upload collaborator.
func (s *AuthService) UpdateAvatar(ctx context.Context, email, avatarURL string) (*entity.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if err := s.userRepo.UpdateAvatar(ctx, user.ID, avatarURL); err != nil {
		return nil, err
	}
	user.Avatar = sql.NullString{String: avatarURL, Valid: true}
	s.invalidateCache(ctx, user.Email)

	return user, nil
}

func (s *AuthService) issuePair(email string) (*dto.TokenPair, error) {
	accessToken, err := s.codec.IssueAccessToken(email)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.codec.IssueRefreshToken(email)
	if err != nil {
		return nil, err
	}
	return &dto.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}

func (s *AuthService) revokeOnReuse(ctx context.Context, user *entity.User) {
	if err := s.userRepo.UpdateRefreshToken(ctx, user.ID, sql.NullString{}); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to revoke refresh token after reuse")
	}
}

func (s *AuthService) invalidateCache(ctx context.Context, email string) {
	if err := s.cache.Invalidate(ctx, email); err != nil {
		logrus.WithError(err).WithField("email", email).Warn("identity cache invalidation failed")
	}
}

func (s *AuthService) sendConfirmation(email, username string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	token, err := s.codec.IssueEmailToken(email)
	if err != nil {
		logrus.WithError(err).WithField("email", email).Error("failed to issue email verification token")
		return
	}

	mail := mailer.Confirmation{
		Email:    email,
		Username: username,
		Token:    token,
		BaseURL:  s.baseURL,
	}
	if err := s.sender.SendConfirmation(ctx, mail); err != nil {
		logrus.WithError(err).WithField("email", email).Error("failed to send confirmation email")
	}
}

func (s *AuthService) sendPasswordReset(email, username string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	token, err := s.codec.IssuePasswordResetToken(email)
	if err != nil {
		logrus.WithError(err).WithField("email", email).Error("failed to issue password reset token")
		return
	}

	mail := mailer.PasswordReset{
		Email:    email,
		Username: username,
		Token:    token,
		BaseURL:  s.baseURL,
	}
	if err := s.sender.SendPasswordReset(ctx, mail); err != nil {
		logrus.WithError(err).WithField("email", email).Error("failed to send password reset email")
	}
}
