package service

import (
	"context"

	"gtm-backend/internal/features/referral/models"
)

type UserNotifier interface {
	NotifyUserAsync(telegramID int64, text string)
}

type StatsInvalidator interface {
	InvalidateStats(ctx context.Context, telegramID int64)
}

type ReferralService interface {
	GetOrCreateReferralCode(ctx context.Context, telegramID int64) (string, error)
	// ProcessReferralJoin credits the code owner once per referred user.
	// Business rejections come back in the result, not as errors.
	ProcessReferralJoin(ctx context.Context, code string, referredID int64) (*models.JoinResult, error)
	DirectUpdate(ctx context.Context, req models.DirectUpdate) (*models.DirectUpdateResult, error)
}
