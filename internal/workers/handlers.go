package workers

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "gtm-backend/internal/common/errors"
	refmodels "gtm-backend/internal/features/referral/models"
	subsmodels "gtm-backend/internal/features/subscription/models"
)

type ReferralProcessor interface {
	ProcessReferralJoin(ctx context.Context, code string, referredID int64) (*refmodels.JoinResult, error)
	DirectUpdate(ctx context.Context, req refmodels.DirectUpdate) (*refmodels.DirectUpdateResult, error)
}

type SubscriptionChecker interface {
	CheckAndAward(ctx context.Context, telegramID int64) (*subsmodels.CheckResult, error)
}

// Handlers maps every job type to the service call that runs it.
func Handlers(referrals ReferralProcessor, subscriptions SubscriptionChecker) map[string]Handler {
	return map[string]Handler{
		JobReferralJoin: func(ctx context.Context, payload []byte) error {
			var p ReferralJoinPayload
			if err := decode(payload, &p); err != nil {
				return err
			}
			_, err := referrals.ProcessReferralJoin(ctx, p.ReferralCode, p.ReferredTelegramID)
			return classify(err)
		},
		JobCheckSubscriptions: func(ctx context.Context, payload []byte) error {
			var p CheckSubscriptionsPayload
			if err := decode(payload, &p); err != nil {
				return err
			}
			_, err := subscriptions.CheckAndAward(ctx, p.TelegramID)
			return classify(err)
		},
		JobDirectUpdate: func(ctx context.Context, payload []byte) error {
			var p refmodels.DirectUpdate
			if err := decode(payload, &p); err != nil {
				return err
			}
			_, err := referrals.DirectUpdate(ctx, p)
			return classify(err)
		},
	}
}

func decode(payload []byte, v interface{}) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: decode payload: %v", ErrPermanent, err)
	}
	return nil
}

// classify marks input and not-found errors as permanent; everything else
// is retried.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok && (appErr.IsValidation() || appErr.IsNotFound()) {
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	return err
}
