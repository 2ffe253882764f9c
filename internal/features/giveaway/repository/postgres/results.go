package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"gtm-backend/internal/features/giveaway/models"
	"gtm-backend/internal/features/giveaway/repository"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS giveaway_winners (
	id                 BIGSERIAL PRIMARY KEY,
	giveaway_id        BIGINT      NOT NULL,
	place_number       SMALLINT    NOT NULL CHECK (place_number BETWEEN 1 AND 6),
	winner_telegram_id BIGINT      NOT NULL,
	winner_username    TEXT        NOT NULL DEFAULT '',
	winner_first_name  TEXT        NOT NULL DEFAULT '',
	prize_name         TEXT        NOT NULL,
	prize_value        TEXT        NOT NULL,
	is_manual_winner   BOOLEAN     NOT NULL DEFAULT FALSE,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (giveaway_id, place_number),
	UNIQUE (giveaway_id, winner_telegram_id)
)`

type resultsRepository struct {
	db *sql.DB
}

func NewResultsRepository(db *sql.DB) repository.ResultsRepository {
	return &resultsRepository{db: db}
}

// EnsureSchema creates the winners table when it is missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create giveaway_winners: %w", err)
	}
	return nil
}

func (r *resultsRepository) Read(ctx context.Context, giveawayID int64) ([]models.WinnerRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT giveaway_id, place_number, winner_telegram_id, winner_username, winner_first_name,
			prize_name, prize_value, is_manual_winner, created_at
		FROM giveaway_winners
		WHERE giveaway_id = $1
		ORDER BY place_number ASC`, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("failed to read winners: %w", err)
	}
	defer rows.Close()

	records := make([]models.WinnerRecord, 0, models.Places)
	for rows.Next() {
		var rec models.WinnerRecord
		var createdAt sql.NullTime
		if err := rows.Scan(&rec.GiveawayID, &rec.PlaceNumber, &rec.WinnerTelegramID, &rec.WinnerUsername,
			&rec.WinnerFirstName, &rec.PrizeName, &rec.PrizeValue, &rec.IsManualWinner, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan winner: %w", err)
		}
		if createdAt.Valid {
			t := createdAt.Time
			rec.CreatedAt = &t
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate winners: %w", err)
	}
	return records, nil
}

func (r *resultsRepository) WriteOnce(ctx context.Context, giveawayID int64, records []models.WinnerRecord) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, rec := range records {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO giveaway_winners (giveaway_id, place_number, winner_telegram_id, winner_username,
				winner_first_name, prize_name, prize_value, is_manual_winner)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			giveawayID, rec.PlaceNumber, rec.WinnerTelegramID, rec.WinnerUsername,
			rec.WinnerFirstName, rec.PrizeName, rec.PrizeValue, rec.IsManualWinner)
		if err != nil {
			if isUniqueViolation(err) {
				err = repository.ErrResultsExist
				return err
			}
			return fmt.Errorf("failed to insert place %d: %w", rec.PlaceNumber, err)
		}
	}

	if err = tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			err = repository.ErrResultsExist
			return err
		}
		return fmt.Errorf("failed to commit winners: %w", err)
	}
	return nil
}

func (r *resultsRepository) Clear(ctx context.Context, giveawayID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM giveaway_winners WHERE giveaway_id = $1`, giveawayID); err != nil {
		return fmt.Errorf("failed to clear winners: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
