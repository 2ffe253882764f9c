package supabase

import (
	"context"
	"encoding/json"

	"gtm-backend/internal/features/rating/models"
	"gtm-backend/internal/features/rating/repository"
	"gtm-backend/internal/platform/supabase"
)

type ratingRepository struct {
	db *supabase.Client
}

func NewRatingRepository(db *supabase.Client) repository.RatingRepository {
	return &ratingRepository{db: db}
}

func (r *ratingRepository) AddRating(ctx context.Context, rating models.Rating) error {
	var comment interface{}
	if rating.Comment != "" {
		comment = rating.Comment
	}

	var out struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	err := r.db.RPC(ctx, "add_artist_rating", map[string]interface{}{
		"artist_name_param": rating.ArtistName,
		"user_id_param":     rating.UserID,
		"rating_param":      rating.Rating,
		"comment_param":     comment,
	}, &out)
	if err != nil {
		return err
	}
	if !out.Success {
		reason := out.Error
		if reason == "" {
			reason = "unknown error"
		}
		return &repository.RejectedError{Reason: reason}
	}
	return nil
}

func (r *ratingRepository) GetRating(ctx context.Context, artist string) (models.Stats, error) {
	var raw json.RawMessage
	err := r.db.RPC(ctx, "get_artist_rating", map[string]interface{}{
		"artist_name_param": artist,
	}, &raw)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return models.Stats("{}"), nil
	}
	return models.Stats(raw), nil
}
