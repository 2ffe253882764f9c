package service

import (
	"context"

	"gtm-backend/internal/features/giveaway/models"
)

// Oracle answers whether a user is currently a member of every required channel.
type Oracle interface {
	IsSubscribedToAll(ctx context.Context, telegramID int64) (bool, error)
}

// Drawer computes a complete winner list without persisting it.
type Drawer interface {
	Select(ctx context.Context, giveawayID int64) ([]models.WinnerRecord, error)
}

// Notifier delivers best-effort announcements. Its errors never affect a draw.
type Notifier interface {
	NotifyWinners(ctx context.Context, giveawayID int64, winners []models.WinnerRecord) error
}

type ResultsService interface {
	GenerateResults(ctx context.Context, giveawayID int64) ([]models.WinnerRecord, error)
	GetResults(ctx context.Context, giveawayID int64) ([]models.WinnerRecord, error)
	Reset(ctx context.Context, giveawayID int64) error
}
