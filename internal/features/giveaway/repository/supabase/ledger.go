package supabase

import (
	"context"

	"gtm-backend/internal/features/giveaway/models"
	"gtm-backend/internal/features/giveaway/repository"
	usermodels "gtm-backend/internal/features/user/models"
	userrepo "gtm-backend/internal/features/user/repository"
	"gtm-backend/internal/platform/supabase"
)

const giveawaysTable = "giveaways"

type ledger struct {
	db    *supabase.Client
	users userrepo.UserRepository
}

// NewLedger reads the population through the user repository and giveaway rows directly.
func NewLedger(db *supabase.Client, users userrepo.UserRepository) repository.Ledger {
	return &ledger{db: db, users: users}
}

func (l *ledger) ListUsersWithTickets(ctx context.Context) ([]usermodels.User, error) {
	return l.users.ListWithTickets(ctx)
}

func (l *ledger) GetGiveaway(ctx context.Context, id int64) (*models.Giveaway, error) {
	var rows []models.Giveaway
	err := l.db.Select(ctx, giveawaysTable, map[string]string{
		"select": "id,manual_winner_telegram_id",
		"id":     supabase.Eq(id),
		"limit":  "1",
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repository.ErrGiveawayNotFound
	}
	return &rows[0], nil
}
