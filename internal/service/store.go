package service

import (
	"context"
	"time"

	"globetrackr/api/internal/models"
)

// UserStore is the persistence contract the services consume. It is
// implemented by repository.UserRepository; tests substitute an in-memory
// store. ConsumeResetToken and UpdatePassword must be atomic per user so
// concurrent updates cannot interleave into a mixed state.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string, withHash bool) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByIDWithHash(ctx context.Context, id string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, user models.User) error
	UpdatePassword(ctx context.Context, id string, hash []byte, changedAt time.Time) error
	SetResetToken(ctx context.Context, id string, tokenHash []byte, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	ConsumeResetToken(ctx context.Context, tokenHash []byte, newHash []byte, changedAt time.Time) (models.User, error)
	DeleteByID(ctx context.Context, id string) error
	PurgeExpiredResetTokens(ctx context.Context) (int64, error)
}

// AttemptLimiter throttles repeated attempts against a key. Implemented by
// ratelimit.Limiter.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}
