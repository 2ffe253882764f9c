package supabase

import (
	"context"
	"fmt"

	"gtm-backend/internal/features/giveaway/models"
	"gtm-backend/internal/features/giveaway/repository"
	"gtm-backend/internal/platform/supabase"
)

const winnersTable = "giveaway_winners"

type resultsRepository struct {
	db *supabase.Client
}

// NewResultsRepository stores winners through PostgREST. The table must carry
// UNIQUE(giveaway_id, place_number); a single bulk insert is one statement,
// so either every row lands or none does.
func NewResultsRepository(db *supabase.Client) repository.ResultsRepository {
	return &resultsRepository{db: db}
}

func (r *resultsRepository) Read(ctx context.Context, giveawayID int64) ([]models.WinnerRecord, error) {
	var rows []models.WinnerRecord
	err := r.db.Select(ctx, winnersTable, map[string]string{
		"select":      "giveaway_id,place_number,winner_telegram_id,winner_username,winner_first_name,prize_name,prize_value,is_manual_winner,created_at",
		"giveaway_id": supabase.Eq(giveawayID),
		"order":       "place_number.asc",
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read winners: %w", err)
	}
	models.SortByPlace(rows)
	return rows, nil
}

func (r *resultsRepository) WriteOnce(ctx context.Context, giveawayID int64, records []models.WinnerRecord) error {
	rows := make([]models.WinnerRecord, len(records))
	for i, rec := range records {
		rec.GiveawayID = giveawayID
		rec.CreatedAt = nil
		rows[i] = rec
	}

	err := r.db.Insert(ctx, winnersTable, rows, nil)
	if supabase.IsConflict(err) {
		return repository.ErrResultsExist
	}
	if err != nil {
		return fmt.Errorf("failed to insert winners: %w", err)
	}
	return nil
}

func (r *resultsRepository) Clear(ctx context.Context, giveawayID int64) error {
	if err := r.db.Delete(ctx, winnersTable, map[string]string{"giveaway_id": supabase.Eq(giveawayID)}); err != nil {
		return fmt.Errorf("failed to clear winners: %w", err)
	}
	return nil
}
