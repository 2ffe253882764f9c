package service

import (
	"context"

	"gtm-backend/internal/features/subscription/models"
	"gtm-backend/internal/platform/telegram"
)

// MemberChecker looks up channel membership through the Bot API.
type MemberChecker interface {
	Enabled() bool
	GetChatMember(ctx context.Context, chatID, userID int64) (*telegram.ChatMember, error)
}

type UserNotifier interface {
	NotifyUserAsync(telegramID int64, text string)
}

type StatsInvalidator interface {
	InvalidateStats(ctx context.Context, telegramID int64)
}

type SubscriptionService interface {
	// IsSubscribedToAll is the strict check used at draw time: any lookup
	// failure is returned as an error and never as a membership.
	IsSubscribedToAll(ctx context.Context, telegramID int64) (bool, error)
	CheckAndAward(ctx context.Context, telegramID int64) (*models.CheckResult, error)
	Channels() []models.Channel
}
