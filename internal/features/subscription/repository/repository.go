package repository

import (
	"context"

	"gtm-backend/internal/features/subscription/models"
)

type SubscriptionRepository interface {
	// SaveSubscriptions upserts confirmed (telegram_id, channel_id) pairs.
	SaveSubscriptions(ctx context.Context, subs []models.Subscription) error
	// AwardTicket asks the ledger to grant the subscription ticket. The ledger
	// decides idempotency and reports whether a ticket was granted now.
	AwardTicket(ctx context.Context, telegramID int64, subscribed bool) (bool, error)
}
