package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/Dan9191/money-dashboard/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost = 12
	// MinPasswordLength is the shortest accepted password
	MinPasswordLength = 8
	// sessionRefreshAge is the session age after which each use extends it
	sessionRefreshAge = 12 * time.Hour
)

// AuthResult is a freshly authenticated user with their credentials
type AuthResult struct {
	User         *models.User
	Session      *models.Session
	AccessToken  string
	RefreshToken string
}

// Register creates a new user with hashed password and signs them in
func (s *Service) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = repository.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, newError(ErrInvalidInput, "Valid email is required")
	}
	if len(password) < MinPasswordLength {
		return nil, newError(ErrInvalidInput, "Password must be at least %d characters", MinPasswordLength)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = email[:strings.Index(email, "@")]
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Email: email, Name: name}
	if err := s.repo.CreateUser(ctx, user, models.Credentials{PasswordHash: string(hashedPassword)}); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, newError(ErrConflict, "User already exists")
		}
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return s.startSession(ctx, user)
}

// Login authenticates a user by email and password
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, newError(ErrInvalidInput, "Email and password are required")
	}
	invalid := newError(ErrUnauthorized, "Invalid email or password")

	user, err := s.repo.FindUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}
	creds, err := s.repo.GetCredentials(ctx, user.ID)
	if err != nil {
		return nil, notFound(err, "Credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		return nil, invalid
	}

	s.log.Infof("User logged in: %s", user.Email)
	return s.startSession(ctx, user)
}

func (s *Service) startSession(ctx context.Context, user *models.User) (*AuthResult, error) {
	session, err := s.repo.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResult{User: user, Session: session, AccessToken: access, RefreshToken: refresh}, nil
}

// Logout ends the server-side session
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.repo.DeleteSession(ctx, sessionID)
}

// Refresh exchanges a refresh token for a new access token
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", newError(ErrUnauthorized, "Invalid refresh token")
	}
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", newError(ErrUnauthorized, "Invalid refresh token")
		}
		return "", err
	}
	access, err := s.tokens.IssueAccess(userID)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return access, nil
}

// Authenticate resolves the caller from an access token, falling back to a
// session id. Sessions older than sessionRefreshAge are extended.
func (s *Service) Authenticate(ctx context.Context, accessToken, sessionID string) (*models.User, error) {
	if accessToken != "" {
		if userID, err := s.tokens.VerifyAccess(accessToken); err == nil {
			return s.authenticatedUser(ctx, userID)
		}
	}

	if sessionID != "" {
		session, err := s.repo.GetSession(ctx, sessionID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if err == nil {
			if s.now().Sub(session.CreatedAt) > sessionRefreshAge {
				if err := s.repo.ExtendSession(ctx, sessionID); err != nil {
					s.log.Warnf("Failed to extend session %s: %v", sessionID, err)
				}
			}
			return s.authenticatedUser(ctx, session.UserID)
		}
	}
	return nil, newError(ErrUnauthorized, "Authentication required")
}

func (s *Service) authenticatedUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(ErrUnauthorized, "Authentication required")
	}
	return user, err
}
