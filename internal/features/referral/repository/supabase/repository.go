package supabase

import (
	"context"

	"gtm-backend/internal/features/referral/models"
	"gtm-backend/internal/features/referral/repository"
	"gtm-backend/internal/platform/supabase"
)

const (
	referralsTable = "referrals"
	joinsTable     = "referral_joins"
)

type referralRepository struct {
	db *supabase.Client
}

func NewReferralRepository(db *supabase.Client) repository.ReferralRepository {
	return &referralRepository{db: db}
}

func (r *referralRepository) OwnerByCode(ctx context.Context, code string) (int64, error) {
	var rows []struct {
		TelegramID int64 `json:"telegram_id"`
	}
	err := r.db.Select(ctx, referralsTable, map[string]string{
		"select":        "telegram_id",
		"referral_code": supabase.Eq(code),
		"limit":         "1",
	}, &rows)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || rows[0].TelegramID <= 0 {
		return 0, repository.ErrCodeNotFound
	}
	return rows[0].TelegramID, nil
}

func (r *referralRepository) JoinExists(ctx context.Context, join models.Join) (bool, error) {
	var rows []map[string]interface{}
	err := r.db.Select(ctx, joinsTable, map[string]string{
		"select":      "id",
		"referrer_id": supabase.Eq(join.ReferrerID),
		"referred_id": supabase.Eq(join.ReferredID),
		"limit":       "1",
	}, &rows)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (r *referralRepository) InsertJoin(ctx context.Context, join models.Join) error {
	err := r.db.Insert(ctx, joinsTable, []models.Join{join}, nil)
	if supabase.IsConflict(err) {
		return repository.ErrJoinExists
	}
	return err
}
