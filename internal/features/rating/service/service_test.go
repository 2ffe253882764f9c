package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gtm-backend/internal/common/errors"
	"gtm-backend/internal/features/rating/models"
	"gtm-backend/internal/features/rating/repository"
)

type fakeRepo struct {
	added    []models.Rating
	addErr   error
	statsErr error
}

func (f *fakeRepo) AddRating(_ context.Context, r models.Rating) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, r)
	return nil
}

func (f *fakeRepo) GetRating(context.Context, string) (models.Stats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return models.Stats(`{"average_rating":5}`), nil
}

func TestRateArtist(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewRatingService(repo)

	res, err := svc.RateArtist(context.Background(), models.Rating{ArtistName: " lin ", UserID: "7", Rating: 5})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.JSONEq(t, `{"average_rating":5}`, string(res.Stats))
	assert.Equal(t, "lin", repo.added[0].ArtistName)
}

func TestRateArtist_Validation(t *testing.T) {
	svc := NewRatingService(&fakeRepo{})
	tests := []models.Rating{
		{ArtistName: "", UserID: "1", Rating: 3},
		{ArtistName: "a", UserID: "", Rating: 3},
		{ArtistName: "a", UserID: "1", Rating: 0},
		{ArtistName: "a", UserID: "1", Rating: 6},
	}
	for _, r := range tests {
		_, err := svc.RateArtist(context.Background(), r)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation), "%+v", r)
	}
}

func TestRateArtist_RepoErrors(t *testing.T) {
	repo := &fakeRepo{addErr: &repository.RejectedError{Reason: "duplicate"}}
	svc := NewRatingService(repo)

	_, err := svc.RateArtist(context.Background(), models.Rating{ArtistName: "a", UserID: "1", Rating: 4})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	repo.addErr = errors.New("connection reset")
	_, err = svc.RateArtist(context.Background(), models.Rating{ArtistName: "a", UserID: "1", Rating: 4})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDependency))

	repo.addErr = nil
	repo.statsErr = errors.New("timeout")
	res, err := svc.RateArtist(context.Background(), models.Rating{ArtistName: "a", UserID: "1", Rating: 4})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(res.Stats))
}

func TestGetArtistRating(t *testing.T) {
	svc := NewRatingService(&fakeRepo{})

	stats, err := svc.GetArtistRating(context.Background(), "lin")
	require.NoError(t, err)
	assert.NotEmpty(t, stats)

	_, err = svc.GetArtistRating(context.Background(), " ")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
}
