package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	apperrors "gtm-backend/internal/common/errors"
	"gtm-backend/internal/common/logger"
	"gtm-backend/internal/features/giveaway/models"
	"gtm-backend/internal/features/giveaway/repository"
)

var errLockWait = errors.New("timed out waiting for giveaway lock")

type ResultsConfig struct {
	LockTTL       time.Duration
	LockWait      time.Duration
	MirrorTTL     time.Duration
	NotifyWinners bool
}

// resultsService makes a draw happen at most once per giveaway. Durable
// storage is the only authority; the in-process mirror is a read fallback.
type resultsService struct {
	results  repository.ResultsRepository
	drawer   Drawer
	locker   repository.Locker
	notifier Notifier
	mirror   *gocache.Cache
	cfg      ResultsConfig

	group singleflight.Group
	local sync.Map // giveaway id -> *sync.Mutex
}

// NewResultsService accepts a nil locker (single instance) and a nil notifier.
func NewResultsService(results repository.ResultsRepository, drawer Drawer, locker repository.Locker, notifier Notifier, cfg ResultsConfig) ResultsService {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = 2 * time.Minute
	}
	if cfg.MirrorTTL <= 0 {
		cfg.MirrorTTL = 10 * time.Minute
	}
	return &resultsService{
		results:  results,
		drawer:   drawer,
		locker:   locker,
		notifier: notifier,
		mirror:   gocache.New(cfg.MirrorTTL, 2*cfg.MirrorTTL),
		cfg:      cfg,
	}
}

func mirrorKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// cloneRecords keeps mirror entries private to the cache.
func cloneRecords(records []models.WinnerRecord) []models.WinnerRecord {
	return append([]models.WinnerRecord(nil), records...)
}

func validateID(id int64) error {
	if id <= 0 {
		return apperrors.NewInputError("giveaway_id", "must be a positive integer")
	}
	return nil
}

func (s *resultsService) GetResults(ctx context.Context, giveawayID int64) ([]models.WinnerRecord, error) {
	if err := validateID(giveawayID); err != nil {
		return nil, err
	}

	records, err := s.results.Read(ctx, giveawayID)
	if err != nil {
		if cached, ok := s.mirror.Get(mirrorKey(giveawayID)); ok {
			logger.Warn().Err(err).Int64("giveaway_id", giveawayID).Msg("results store unreachable, serving mirror")
			return cloneRecords(cached.([]models.WinnerRecord)), nil
		}
		return nil, apperrors.NewDependencyError("results_store", "read", err)
	}

	if len(records) == 0 {
		s.mirror.Delete(mirrorKey(giveawayID))
		return []models.WinnerRecord{}, nil
	}
	s.mirror.SetDefault(mirrorKey(giveawayID), cloneRecords(records))
	return records, nil
}

func (s *resultsService) GenerateResults(ctx context.Context, giveawayID int64) ([]models.WinnerRecord, error) {
	if err := validateID(giveawayID); err != nil {
		return nil, err
	}

	existing, err := s.results.Read(ctx, giveawayID)
	if err != nil {
		return nil, apperrors.NewDependencyError("results_store", "read", err)
	}
	if len(existing) > 0 {
		s.mirror.SetDefault(mirrorKey(giveawayID), cloneRecords(existing))
		return existing, nil
	}

	// Concurrent callers in this process share one draw. The draw itself is
	// detached from the first caller's cancellation.
	v, err, shared := s.group.Do(mirrorKey(giveawayID), func() (interface{}, error) {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ProcessingTimeout)
		defer cancel()
		return s.generate(dctx, giveawayID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug().Int64("giveaway_id", giveawayID).Msg("joined in-flight draw")
	}
	return v.([]models.WinnerRecord), nil
}

func (s *resultsService) generate(ctx context.Context, giveawayID int64) ([]models.WinnerRecord, error) {
	unlock := s.lockLocal(giveawayID)
	defer unlock()

	release, existing, err := s.acquire(ctx, giveawayID)
	if errors.Is(err, errLockWait) {
		return nil, apperrors.NewConflictError("giveaway", "another draw is still in progress")
	}
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}
	defer release()

	existing, err = s.results.Read(ctx, giveawayID)
	if err != nil {
		return nil, apperrors.NewDependencyError("results_store", "read", err)
	}
	if len(existing) > 0 {
		return existing, nil
	}

	records, err := s.drawer.Select(ctx, giveawayID)
	if err != nil {
		return nil, err
	}

	err = s.results.WriteOnce(ctx, giveawayID, records)
	if errors.Is(err, repository.ErrResultsExist) {
		logger.Warn().Int64("giveaway_id", giveawayID).Msg("concurrent writer won, discarding local draw")
		first, rerr := s.results.Read(ctx, giveawayID)
		if rerr != nil {
			return nil, apperrors.NewDependencyError("results_store", "read", rerr)
		}
		return first, nil
	}
	if err != nil {
		return nil, apperrors.NewDependencyError("results_store", "write_once", err)
	}

	models.SortByPlace(records)
	s.mirror.SetDefault(mirrorKey(giveawayID), cloneRecords(records))
	logger.Info().Int64("giveaway_id", giveawayID).Int("winners", len(records)).Msg("results persisted")

	s.notify(giveawayID, records)
	return records, nil
}

func (s *resultsService) Reset(ctx context.Context, giveawayID int64) error {
	if err := validateID(giveawayID); err != nil {
		return err
	}

	unlock := s.lockLocal(giveawayID)
	defer unlock()

	release, err := s.acquireForReset(ctx, giveawayID)
	if err != nil {
		return err
	}
	defer release()

	if err := s.results.Clear(ctx, giveawayID); err != nil {
		return apperrors.NewDependencyError("results_store", "clear", err)
	}
	s.mirror.Delete(mirrorKey(giveawayID))
	logger.Info().Int64("giveaway_id", giveawayID).Msg("results reset")
	return nil
}

func (s *resultsService) lockLocal(giveawayID int64) func() {
	v, _ := s.local.LoadOrStore(giveawayID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// acquire takes the distributed lock, polling until LockWait. While waiting
// it returns early if the holder has already committed results. Lock
// infrastructure errors fall back to the store's unique constraint.
func (s *resultsService) acquire(ctx context.Context, giveawayID int64) (func(), []models.WinnerRecord, error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil, nil
	}

	key := lockKeyPrefix + mirrorKey(giveawayID)
	deadline := time.Now().Add(s.cfg.LockWait)
	for {
		token, err := s.locker.AcquireLock(ctx, key, s.cfg.LockTTL)
		if err == nil {
			return s.releaser(key, token), nil, nil
		}
		if !errors.Is(err, repository.ErrAlreadyLocked) {
			logger.Warn().Err(err).Str("key", key).Msg("lock unavailable, relying on unique constraint")
			return noop, nil, nil
		}

		existing, rerr := s.results.Read(ctx, giveawayID)
		if rerr == nil && len(existing) > 0 {
			return noop, existing, nil
		}
		if time.Now().After(deadline) {
			return noop, nil, errLockWait
		}

		select {
		case <-ctx.Done():
			return noop, nil, apperrors.Wrap(ctx.Err(), apperrors.ErrCodeInternal, "cancelled while waiting for giveaway lock")
		case <-time.After(lockPollInterval):
		}
	}
}

func (s *resultsService) acquireForReset(ctx context.Context, giveawayID int64) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	key := lockKeyPrefix + mirrorKey(giveawayID)
	deadline := time.Now().Add(s.cfg.LockWait)
	for {
		token, err := s.locker.AcquireLock(ctx, key, s.cfg.LockTTL)
		if err == nil {
			return s.releaser(key, token), nil
		}
		if !errors.Is(err, repository.ErrAlreadyLocked) {
			logger.Warn().Err(err).Str("key", key).Msg("lock unavailable during reset")
			return noop, nil
		}
		if time.Now().After(deadline) {
			return noop, apperrors.NewConflictError("giveaway", "a draw is in progress")
		}
		select {
		case <-ctx.Done():
			return noop, apperrors.Wrap(ctx.Err(), apperrors.ErrCodeInternal, "cancelled while waiting for giveaway lock")
		case <-time.After(lockPollInterval):
		}
	}
}

func (s *resultsService) releaser(key, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.locker.ReleaseLock(ctx, key, token); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("failed to release lock")
		}
	}
}

func (s *resultsService) notify(giveawayID int64, records []models.WinnerRecord) {
	if !s.cfg.NotifyWinners || s.notifier == nil {
		return
	}
	winners := append([]models.WinnerRecord(nil), records...)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), NotifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyWinners(ctx, giveawayID, winners); err != nil {
			logger.Warn().Err(err).Int64("giveaway_id", giveawayID).Msg("winner notification failed")
		}
	}()
}
