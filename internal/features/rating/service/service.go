package service

import (
	"context"
	"errors"
	"strings"

	apperrors "gtm-backend/internal/common/errors"
	"gtm-backend/internal/common/logger"
	"gtm-backend/internal/features/rating/models"
	"gtm-backend/internal/features/rating/repository"
)

type RatingService interface {
	RateArtist(ctx context.Context, r models.Rating) (*models.RateResult, error)
	GetArtistRating(ctx context.Context, artist string) (models.Stats, error)
}

type ratingService struct {
	repo repository.RatingRepository
}

func NewRatingService(repo repository.RatingRepository) RatingService {
	return &ratingService{repo: repo}
}

func (s *ratingService) RateArtist(ctx context.Context, r models.Rating) (*models.RateResult, error) {
	r.ArtistName = strings.TrimSpace(r.ArtistName)
	r.UserID = strings.TrimSpace(r.UserID)
	if r.ArtistName == "" || r.UserID == "" {
		return nil, apperrors.NewValidationError("artist_name", "artist_name and user_id are required")
	}
	if r.Rating < models.MinRating || r.Rating > models.MaxRating {
		return nil, apperrors.NewValidationError("rating", "must be between 1 and 5")
	}

	err := s.repo.AddRating(ctx, r)
	var rejected *repository.RejectedError
	if errors.As(err, &rejected) {
		return nil, apperrors.NewValidationError("rating", rejected.Reason)
	}
	if err != nil {
		return nil, apperrors.NewDependencyError("ratings", "add_artist_rating", err)
	}
	logger.Info().Str("artist", r.ArtistName).Str("user_id", r.UserID).Int("rating", r.Rating).Msg("rating saved")

	stats, err := s.repo.GetRating(ctx, r.ArtistName)
	if err != nil {
		// the rating is stored; stats are only a convenience
		logger.Warn().Err(err).Str("artist", r.ArtistName).Msg("failed to load rating stats")
		stats = models.Stats("{}")
	}
	return &models.RateResult{Success: true, Message: "Rating saved successfully", Stats: stats}, nil
}

func (s *ratingService) GetArtistRating(ctx context.Context, artist string) (models.Stats, error) {
	artist = strings.TrimSpace(artist)
	if artist == "" {
		return nil, apperrors.NewInputError("artist_name", "required")
	}
	stats, err := s.repo.GetRating(ctx, artist)
	if err != nil {
		return nil, apperrors.NewDependencyError("ratings", "get_artist_rating", err)
	}
	return stats, nil
}
