package repository

import (
	"context"
	"errors"

	"gtm-backend/internal/features/referral/models"
)

var (
	ErrCodeNotFound = errors.New("referral code not found")
	ErrJoinExists   = errors.New("referral join already recorded")
)

type ReferralRepository interface {
	// OwnerByCode looks the code up in the referrals table.
	OwnerByCode(ctx context.Context, code string) (int64, error)
	JoinExists(ctx context.Context, join models.Join) (bool, error)
	// InsertJoin returns ErrJoinExists when the pair is already stored.
	InsertJoin(ctx context.Context, join models.Join) error
}
