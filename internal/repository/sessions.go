package repository

import (
	"context"
	"fmt"

	"github.com/Dan9191/money-dashboard/internal/models"
	"github.com/google/uuid"
)

// CreateSession starts a SessionTTL long session for userID
func (r *Repository) CreateSession(ctx context.Context, userID string) (*models.Session, error) {
	s := &models.Session{
		ID:        "session_" + uuid.NewString(),
		UserID:    userID,
		CreatedAt: r.now(),
	}
	if err := r.set(ctx, sessionKey(s.ID), s, SessionTTL); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

// GetSession returns a live session
func (r *Repository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	s := &models.Session{}
	if err := r.get(ctx, sessionKey(id), s); err != nil {
		return nil, err
	}
	return s, nil
}

// DeleteSession ends a session
func (r *Repository) DeleteSession(ctx context.Context, id string) error {
	return r.kv.Delete(ctx, sessionKey(id))
}

// ExtendSession resets the session TTL
func (r *Repository) ExtendSession(ctx context.Context, id string) error {
	return r.kv.Expire(ctx, sessionKey(id), SessionTTL)
}
