package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/studyhub/internal/apperror"
	"github.com/sakif/studyhub/internal/auth"
	"github.com/sakif/studyhub/internal/model"
	"github.com/sakif/studyhub/internal/repository"
	"github.com/sakif/studyhub/internal/validation"
)

const (
	MsgUsernameTaken      = "That username is already taken."
	MsgInvalidCredentials = "Invalid username or password."
)

type registerForm struct {
	Username string `form:"username" validate:"required,notblank_,min=2,max=80"`
	Password string `form:"password" validate:"required,min=4,max=72"`
}

type loginForm struct {
	Username string `form:"username" validate:"required,notblank_"`
	Password string `form:"password" validate:"required"`
}

// AuthService registers users and tracks who is logged in.
// Sessions themselves are issued by the handler through auth.SessionManager.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	validate  *validation.Validator
	logger    *slog.Logger
}

// NewAuthService returns an AuthService.
func NewAuthService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	validate *validation.Validator,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		validate:  validate,
		logger:    logger,
	}
}

// Register creates an account. The username is trimmed before any check.
// A taken username is a Conflict error whether it is caught by the lookup or
// by the UNIQUE constraint on insert.
func (s *AuthService) Register(ctx context.Context, username, password string) (*model.User, error) {
	form := registerForm{Username: strings.TrimSpace(username), Password: password}
	if err := s.validate.Struct(form); err != nil {
		return nil, err
	}

	_, err := s.users.GetByUsername(ctx, form.Username)
	switch {
	case err == nil:
		return nil, apperror.Conflict(MsgUsernameTaken)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("looking up username: %w", err)
	}

	hash, err := s.passwords.Hash(form.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
		}
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{Username: form.Username, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.Conflict(MsgUsernameTaken)
		}
		s.logger.Error("failed to create user",
			slog.String("username", form.Username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login checks the credentials and marks the user as logged in.
// Unknown usernames and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, error) {
	form := loginForm{Username: strings.TrimSpace(username), Password: password}
	if err := s.validate.Struct(form); err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, form.Username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated(MsgInvalidCredentials)
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, form.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Info("login rejected", slog.String("username", form.Username))
			return nil, apperror.Unauthenticated(MsgInvalidCredentials)
		}
		return nil, fmt.Errorf("verifying password: %w", err)
	}

	if err := s.users.SetLoggedIn(ctx, user.ID, true); err != nil {
		return nil, fmt.Errorf("marking user logged in: %w", err)
	}
	user.IsLoggedIn = true

	s.logger.Info("user logged in", slog.Int64("user_id", user.ID))
	return user, nil
}

// Logout clears the logged-in flag. Without an identity it does nothing, and
// a user that no longer exists is ignored.
func (s *AuthService) Logout(ctx context.Context, id auth.Identity) error {
	if id.UserID <= 0 {
		return nil
	}

	if err := s.users.SetLoggedIn(ctx, id.UserID, false); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("marking user logged out: %w", err)
	}

	s.logger.Info("user logged out", slog.Int64("user_id", id.UserID))
	return nil
}

// LoggedInUsers returns users whose logged-in flag is set, by username.
func (s *AuthService) LoggedInUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListLoggedIn(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing logged-in users: %w", err)
	}
	return users, nil
}
