package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/jsonq"

	"gtm-backend/internal/features/subscription/models"
	"gtm-backend/internal/features/subscription/repository"
	"gtm-backend/internal/platform/supabase"
)

const (
	subscriptionsTable = "subscriptions"
	awardRPC           = "check_subscription_and_award_ticket"
)

type subscriptionRepository struct {
	db *supabase.Client
}

func NewSubscriptionRepository(db *supabase.Client) repository.SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) SaveSubscriptions(ctx context.Context, subs []models.Subscription) error {
	if len(subs) == 0 {
		return nil
	}
	return r.db.Upsert(ctx, subscriptionsTable, "telegram_id,channel_id", subs)
}

func (r *subscriptionRepository) AwardTicket(ctx context.Context, telegramID int64, subscribed bool) (bool, error) {
	var raw json.RawMessage
	err := r.db.RPC(ctx, awardRPC, map[string]interface{}{
		"p_telegram_id":   telegramID,
		"p_is_subscribed": subscribed,
	}, &raw)
	if err != nil {
		return false, err
	}
	return ticketAwarded(raw)
}

// ticketAwarded reads ticket_awarded from either a single json object or
// the first row of a set-returning function.
func ticketAwarded(raw json.RawMessage) (bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false, nil
	}

	var row map[string]interface{}
	if raw[0] == '[' {
		var rows []map[string]interface{}
		if err := json.Unmarshal(raw, &rows); err != nil {
			return false, fmt.Errorf("decode %s: %w", awardRPC, err)
		}
		if len(rows) == 0 {
			return false, nil
		}
		row = rows[0]
	} else if err := json.Unmarshal(raw, &row); err != nil {
		return false, fmt.Errorf("decode %s: %w", awardRPC, err)
	}

	awarded, err := jsonq.NewQuery(row).Bool("ticket_awarded")
	if err != nil {
		return false, nil
	}
	return awarded, nil
}
