package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/google/uuid"
)

// NormalizeEmail lowercases and trims an email for indexing
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser stores a new user, its credentials and the email index
func (r *Repository) CreateUser(ctx context.Context, user *models.User, creds models.Credentials) error {
	user.Email = NormalizeEmail(user.Email)

	var existing string
	err := r.get(ctx, emailKey(user.Email), &existing)
	if err == nil {
		return ErrEmailTaken
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}

	now := r.now()
	user.ID = "user_" + uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := r.set(ctx, userKey(user.ID), user, 0); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if err := r.set(ctx, credentialsKey(user.ID), creds, 0); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	if err := r.set(ctx, emailKey(user.Email), user.ID, 0); err != nil {
		return fmt.Errorf("failed to index email: %w", err)
	}
	return nil
}

// GetUser retrieves a user by id
func (r *Repository) GetUser(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	if err := r.get(ctx, userKey(id), user); err != nil {
		return nil, err
	}
	return user, nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var id string
	if err := r.get(ctx, emailKey(NormalizeEmail(email)), &id); err != nil {
		return nil, err
	}
	return r.GetUser(ctx, id)
}

// GetCredentials retrieves the password hash of a user
func (r *Repository) GetCredentials(ctx context.Context, userID string) (*models.Credentials, error) {
	creds := &models.Credentials{}
	if err := r.get(ctx, credentialsKey(userID), creds); err != nil {
		return nil, err
	}
	return creds, nil
}

// UpdateUser overwrites the stored user
func (r *Repository) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = r.now()
	if err := r.set(ctx, userKey(user.ID), user, 0); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}
