package service

import (
	"context"

	"gtm-backend/internal/features/user/models"
)

type UserService interface {
	GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*models.User, error)
	GetUserStats(ctx context.Context, telegramID int64) (*models.Stats, error)
	TotalAllTickets(ctx context.Context) (int64, error)
	InvalidateStats(ctx context.Context, telegramID int64)
}
