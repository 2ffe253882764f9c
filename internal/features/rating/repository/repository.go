package repository

import (
	"context"

	"gtm-backend/internal/features/rating/models"
)

// RejectedError is a rating the database refused with a reason.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "rating rejected: " + e.Reason
}

type RatingRepository interface {
	AddRating(ctx context.Context, r models.Rating) error
	GetRating(ctx context.Context, artist string) (models.Stats, error)
}
