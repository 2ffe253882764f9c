package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gtm-backend/internal/common/cache"
	apperrors "gtm-backend/internal/common/errors"
	"gtm-backend/internal/common/logger"
	"gtm-backend/internal/features/user/models"
	"gtm-backend/internal/features/user/repository"
)

const totalAllKey = "stats:total_all"

type userService struct {
	repo     repository.UserRepository
	cache    *cache.CacheService
	statsTTL time.Duration
}

func NewUserService(repo repository.UserRepository, cache *cache.CacheService, statsTTL time.Duration) UserService {
	return &userService{repo: repo, cache: cache, statsTTL: statsTTL}
}

func statsKey(id int64) string {
	return fmt.Sprintf("stats:user:%d", id)
}

func (s *userService) GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*models.User, error) {
	if telegramID <= 0 {
		return nil, apperrors.NewInputError("telegram_id", "must be positive")
	}

	user, err := s.repo.GetByID(ctx, telegramID)
	if err == nil {
		patch := models.UserPatch{}
		changed := false
		if username != "" && user.Username != username {
			patch.Username, changed = &username, true
		}
		if firstName != "" && user.FirstName != firstName {
			patch.FirstName, changed = &firstName, true
		}
		if lastName != "" && user.LastName != lastName {
			patch.LastName, changed = &lastName, true
		}
		if changed {
			if err := s.repo.Update(ctx, telegramID, patch); err != nil {
				logger.Warn().Err(err).Int64("telegram_id", telegramID).Msg("failed to refresh user profile")
			}
		}
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewDependencyError("ledger", "get_user", err)
	}

	user = &models.User{
		TelegramID: telegramID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, apperrors.NewDependencyError("ledger", "create_user", err)
	}
	logger.Info().Int64("telegram_id", telegramID).Msg("user created")
	return user, nil
}

// GetUserStats returns zeroes for unknown users.
func (s *userService) GetUserStats(ctx context.Context, telegramID int64) (*models.Stats, error) {
	if telegramID <= 0 {
		return nil, apperrors.NewInputError("telegram_id", "must be positive")
	}

	stats, err := cache.GetOrLoad(ctx, s.cache, statsKey(telegramID), s.statsTTL, func(ctx context.Context) (models.Stats, error) {
		user, err := s.repo.GetByID(ctx, telegramID)
		if errors.Is(err, repository.ErrNotFound) {
			return models.Stats{TelegramID: telegramID}, nil
		}
		if err != nil {
			return models.Stats{}, err
		}
		return user.Stats(), nil
	})
	if err != nil {
		return nil, apperrors.NewDependencyError("ledger", "user_stats", err)
	}
	return &stats, nil
}

func (s *userService) TotalAllTickets(ctx context.Context) (int64, error) {
	total, err := cache.GetOrLoad(ctx, s.cache, totalAllKey, s.statsTTL, s.repo.TotalAllTickets)
	if err != nil {
		return 0, apperrors.NewDependencyError("ledger", "total_all_tickets", err)
	}
	return total, nil
}

// InvalidateStats drops cached stats after a ticket change.
func (s *userService) InvalidateStats(ctx context.Context, telegramID int64) {
	if err := s.cache.Delete(ctx, statsKey(telegramID), totalAllKey); err != nil {
		logger.Warn().Err(err).Int64("telegram_id", telegramID).Msg("failed to invalidate stats cache")
	}
}
