package repository

import (
	"context"
	"errors"
	"time"

	"gtm-backend/internal/features/giveaway/models"
	usermodels "gtm-backend/internal/features/user/models"
)

var (
	ErrGiveawayNotFound = errors.New("giveaway not found")
	ErrResultsExist     = errors.New("results already exist for giveaway")
	ErrAlreadyLocked    = errors.New("resource is already locked")
)

// Ledger is the read side of the ticket ledger the draw depends on.
type Ledger interface {
	ListUsersWithTickets(ctx context.Context) ([]usermodels.User, error)
	GetGiveaway(ctx context.Context, id int64) (*models.Giveaway, error)
}

// ResultsRepository is the durable store of winner records.
type ResultsRepository interface {
	// Read returns records ordered by place, or an empty slice.
	Read(ctx context.Context, giveawayID int64) ([]models.WinnerRecord, error)
	// WriteOnce persists all records atomically or returns ErrResultsExist.
	WriteOnce(ctx context.Context, giveawayID int64, records []models.WinnerRecord) error
	Clear(ctx context.Context, giveawayID int64) error
}

// Locker is a distributed mutual exclusion lease.
type Locker interface {
	// AcquireLock returns ErrAlreadyLocked when another owner holds key.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	ReleaseLock(ctx context.Context, key, token string) error
}
