package repository

import (
	"context"
	"errors"

	"gtm-backend/internal/features/user/models"
)

var ErrNotFound = errors.New("user not found")

type UserRepository interface {
	GetByID(ctx context.Context, telegramID int64) (*models.User, error)
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, telegramID int64, patch models.UserPatch) error
	// ListWithTickets returns every user with total_tickets > 0 ordered by telegram_id.
	ListWithTickets(ctx context.Context) ([]models.User, error)
	// TotalAllTickets reads the aggregate ticket view.
	TotalAllTickets(ctx context.Context) (int64, error)
}
