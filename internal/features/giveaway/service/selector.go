package service

import (
	"context"
	"errors"
	"sort"
	"time"

	apperrors "gtm-backend/internal/common/errors"
	"gtm-backend/internal/common/logger"
	"gtm-backend/internal/features/giveaway/models"
	"gtm-backend/internal/features/giveaway/repository"
	"gtm-backend/internal/features/giveaway/sampler"
	usermodels "gtm-backend/internal/features/user/models"
)

type SelectorConfig struct {
	Places        int
	AttemptBudget int
	OracleTimeout time.Duration
	OrganizerIDs  []int64
}

// Selector runs one draw: manual first place, then weighted rejection
// sampling until every place is filled or the attempt budget runs out.
type Selector struct {
	ledger  repository.Ledger
	oracle  Oracle
	sampler *sampler.Sampler
	cfg     SelectorConfig
}

func NewSelector(ledger repository.Ledger, oracle Oracle, smp *sampler.Sampler, cfg SelectorConfig) *Selector {
	if cfg.Places <= 0 {
		cfg.Places = models.Places
	}
	if cfg.AttemptBudget <= 0 {
		cfg.AttemptBudget = 500
	}
	if smp == nil {
		smp = sampler.New(nil)
	}
	return &Selector{ledger: ledger, oracle: oracle, sampler: smp, cfg: cfg}
}

// draw holds the per-call state; nothing here outlives Select.
type draw struct {
	giveawayID int64
	pool       []usermodels.User
	byID       map[int64]*usermodels.User
	entries    []sampler.Entry
	eligible   int
	excluded   map[int64]bool
	rejected   map[int64]bool
	attempts   int
	winners    []models.WinnerRecord
}

func (s *Selector) Select(ctx context.Context, giveawayID int64) ([]models.WinnerRecord, error) {
	if giveawayID <= 0 {
		return nil, apperrors.NewInputError("giveaway_id", "must be a positive integer")
	}

	// A giveaway without a row simply has no manual winner.
	giveaway, err := s.ledger.GetGiveaway(ctx, giveawayID)
	if errors.Is(err, repository.ErrGiveawayNotFound) {
		giveaway, err = &models.Giveaway{ID: giveawayID}, nil
	}
	if err != nil {
		return nil, apperrors.NewDependencyError("ledger", "get_giveaway", err)
	}

	users, err := s.ledger.ListUsersWithTickets(ctx)
	if err != nil {
		return nil, apperrors.NewDependencyError("ledger", "list_users_with_tickets", err)
	}

	d := s.newDraw(giveawayID, users)
	log := logger.Component("selector")
	log.Info().
		Int64("giveaway_id", giveawayID).
		Int("population", len(d.pool)).
		Int("eligible_weighted", d.eligible).
		Msg("draw started")

	if d.eligible == 0 {
		return nil, apperrors.NewPoolExhaustedError(0, s.cfg.Places, stageLoadPopulation, 0)
	}

	manual := false
	if giveaway.ManualWinnerID != nil {
		if u, ok := d.byID[*giveaway.ManualWinnerID]; ok {
			d.place(u, true)
			manual = true
		} else {
			log.Warn().
				Int64("giveaway_id", giveawayID).
				Int64("manual_winner_id", *giveaway.ManualWinnerID).
				Msg("manual winner not in eligible pool, drawing place 1")
		}
	}
	// Unlike a plain single draw, place 1 goes through the same subscription
	// re-check as places 2-6, so an unsubscribed user never holds any place.
	if !manual {
		if err := s.fill(ctx, d, stagePlaceOne, 1); err != nil {
			return nil, err
		}
	}

	if err := s.fill(ctx, d, stagePlaces, s.cfg.Places); err != nil {
		return nil, err
	}

	log.Info().
		Int64("giveaway_id", giveawayID).
		Bool("manual_winner", manual).
		Int("attempts", d.attempts).
		Int("rejected", len(d.rejected)).
		Int("places_filled", len(d.winners)).
		Msg("draw complete")

	return d.winners, nil
}

func (s *Selector) newDraw(giveawayID int64, users []usermodels.User) *draw {
	organizers := make(map[int64]bool, len(s.cfg.OrganizerIDs))
	for _, id := range s.cfg.OrganizerIDs {
		organizers[id] = true
	}

	d := &draw{
		giveawayID: giveawayID,
		pool:       make([]usermodels.User, 0, len(users)),
		byID:       make(map[int64]*usermodels.User, len(users)),
		excluded:   make(map[int64]bool, s.cfg.Places),
		rejected:   make(map[int64]bool),
	}
	sorted := append([]usermodels.User(nil), users...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TelegramID < sorted[j].TelegramID })

	for _, u := range sorted {
		if u.TotalTickets <= 0 || organizers[u.TelegramID] {
			continue
		}
		if _, dup := d.byID[u.TelegramID]; dup {
			continue
		}
		// pool never grows past its capacity, so these pointers stay valid
		d.pool = append(d.pool, u)
		d.byID[u.TelegramID] = &d.pool[len(d.pool)-1]
	}
	d.entries = make([]sampler.Entry, len(d.pool))
	for i, u := range d.pool {
		d.entries[i] = sampler.Entry{ID: u.TelegramID, Weight: u.TotalTickets}
	}
	d.eligible = len(d.pool)
	return d
}

// fill draws until len(d.winners) == target. Every sampler call spends one
// unit of the shared attempt budget.
func (s *Selector) fill(ctx context.Context, d *draw, stage string, target int) error {
	for len(d.winners) < target {
		if err := ctx.Err(); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "draw cancelled")
		}
		if d.attempts >= s.cfg.AttemptBudget || len(d.excluded)+len(d.rejected) >= d.eligible {
			logger.Warn().
				Int64("giveaway_id", d.giveawayID).
				Str("stage", stage).
				Int("attempts", d.attempts).
				Int("places_filled", len(d.winners)).
				Msg("candidate pool exhausted")
			return apperrors.NewPoolExhaustedError(len(d.winners), s.cfg.Places, stage, d.attempts)
		}

		d.attempts++
		id, ok := s.sampler.Draw(d.entries)
		if !ok {
			return apperrors.NewPoolExhaustedError(len(d.winners), s.cfg.Places, stage, d.attempts)
		}
		if d.excluded[id] || d.rejected[id] {
			continue
		}

		u := d.byID[id]
		if !s.accept(ctx, u) {
			d.rejected[id] = true
			continue
		}
		d.place(u, false)
	}
	return nil
}

// accept re-validates subscription-derived tickets. Any oracle failure is a
// rejection.
func (s *Selector) accept(ctx context.Context, u *usermodels.User) bool {
	if u.SubscriptionTickets <= 0 {
		return true
	}
	if s.oracle == nil {
		return false
	}

	octx := ctx
	if s.cfg.OracleTimeout > 0 {
		var cancel context.CancelFunc
		octx, cancel = context.WithTimeout(ctx, s.cfg.OracleTimeout)
		defer cancel()
	}

	ok, err := s.oracle.IsSubscribedToAll(octx, u.TelegramID)
	if err != nil {
		logger.Warn().Err(err).Int64("telegram_id", u.TelegramID).Msg("subscription re-check failed, rejecting candidate")
		return false
	}
	if !ok {
		logger.Info().Int64("telegram_id", u.TelegramID).Msg("candidate no longer subscribed")
	}
	return ok
}

func (d *draw) place(u *usermodels.User, manual bool) {
	place := len(d.winners) + 1
	prize := models.PrizeForPlace(place)
	d.winners = append(d.winners, models.WinnerRecord{
		GiveawayID:       d.giveawayID,
		PlaceNumber:      place,
		WinnerTelegramID: u.TelegramID,
		WinnerUsername:   u.Username,
		WinnerFirstName:  u.FirstName,
		PrizeName:        prize.Name,
		PrizeValue:       prize.Value,
		IsManualWinner:   manual,
	})
	d.excluded[u.TelegramID] = true
}
