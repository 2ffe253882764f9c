package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	apperrors "gtm-backend/internal/common/errors"
	"gtm-backend/internal/common/logger"
	"gtm-backend/internal/features/referral/models"
	"gtm-backend/internal/features/referral/repository"
	usermodels "gtm-backend/internal/features/user/models"
	userrepo "gtm-backend/internal/features/user/repository"
	"gtm-backend/internal/utils/random"
)

const (
	codeAttempts    = 5
	msgReferralPaid = "🎫 Вам начислен билет за приглашенного друга! Спасибо!"
)

type referralService struct {
	repo     repository.ReferralRepository
	users    userrepo.UserRepository
	notifier UserNotifier
	stats    StatsInvalidator
	src      random.Source

	owners sync.Map // owner telegram id -> *sync.Mutex
}

// NewReferralService uses crypto randomness for codes when src is nil.
func NewReferralService(repo repository.ReferralRepository, users userrepo.UserRepository, notifier UserNotifier, stats StatsInvalidator, src random.Source) ReferralService {
	if src == nil {
		src = random.Crypto()
	}
	return &referralService{repo: repo, users: users, notifier: notifier, stats: stats, src: src}
}

func (s *referralService) GetOrCreateReferralCode(ctx context.Context, telegramID int64) (string, error) {
	if telegramID <= 0 {
		return "", apperrors.NewInputError("telegram_id", "must be positive")
	}

	user, err := s.users.GetByID(ctx, telegramID)
	if err != nil && !errors.Is(err, userrepo.ErrNotFound) {
		return "", apperrors.NewDependencyError("ledger", "get_user", err)
	}
	if user != nil && user.ReferralCode != "" {
		return user.ReferralCode, nil
	}

	code, err := s.newCode(ctx)
	if err != nil {
		return "", err
	}

	if user == nil {
		err = s.users.Create(ctx, &usermodels.User{TelegramID: telegramID, ReferralCode: code})
		if err != nil {
			return "", apperrors.NewDependencyError("ledger", "create_user", err)
		}
		logger.Info().Int64("telegram_id", telegramID).Msg("user created with referral code")
		return code, nil
	}

	if err := s.users.Update(ctx, telegramID, usermodels.UserPatch{ReferralCode: &code}); err != nil {
		return "", apperrors.NewDependencyError("ledger", "set_referral_code", err)
	}
	return code, nil
}

// newCode draws codes until one is unused.
func (s *referralService) newCode(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := random.String(s.src, models.CodeLength, models.CodeAlphabet)
		_, err := s.users.GetByReferralCode(ctx, code)
		if errors.Is(err, userrepo.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", apperrors.NewDependencyError("ledger", "check_referral_code", err)
		}
	}
	return "", apperrors.New(apperrors.ErrCodeConflict, "could not allocate a unique referral code")
}

func (s *referralService) ownerOf(ctx context.Context, code string) (int64, error) {
	owner, err := s.repo.OwnerByCode(ctx, code)
	if err == nil {
		return owner, nil
	}
	if !errors.Is(err, repository.ErrCodeNotFound) {
		logger.Warn().Err(err).Str("code", code).Msg("referrals lookup failed, trying users")
	}

	user, err := s.users.GetByReferralCode(ctx, code)
	if errors.Is(err, userrepo.ErrNotFound) {
		return 0, repository.ErrCodeNotFound
	}
	if err != nil {
		return 0, err
	}
	return user.TelegramID, nil
}

func (s *referralService) lockOwner(id int64) func() {
	v, _ := s.owners.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *referralService) ProcessReferralJoin(ctx context.Context, code string, referredID int64) (*models.JoinResult, error) {
	code = strings.TrimSpace(code)
	if code == "" || referredID <= 0 {
		return nil, apperrors.NewInputError("referral_code", "referral_code and referred_telegram_id required")
	}

	owner, err := s.ownerOf(ctx, code)
	if errors.Is(err, repository.ErrCodeNotFound) {
		return &models.JoinResult{Error: models.OutcomeInvalidCode}, nil
	}
	if err != nil {
		return nil, apperrors.NewDependencyError("ledger", "referral_owner", err)
	}
	if owner == referredID {
		return &models.JoinResult{Error: models.OutcomeSelfReferral}, nil
	}

	unlock := s.lockOwner(owner)
	defer unlock()

	join := models.Join{ReferrerID: owner, ReferredID: referredID}
	exists, err := s.repo.JoinExists(ctx, join)
	if err != nil {
		return nil, apperrors.NewDependencyError("ledger", "referral_join_lookup", err)
	}
	if exists {
		return &models.JoinResult{Success: true, Message: models.OutcomeAlreadyCounted}, nil
	}

	err = s.repo.InsertJoin(ctx, join)
	if errors.Is(err, repository.ErrJoinExists) {
		return &models.JoinResult{Success: true, Message: models.OutcomeAlreadyCounted}, nil
	}
	if err != nil {
		return nil, apperrors.NewDependencyError("ledger", "referral_join_insert", err)
	}

	s.stampInvitedBy(ctx, referredID, owner, code)

	referrer, err := s.users.GetByID(ctx, owner)
	if errors.Is(err, userrepo.ErrNotFound) {
		return &models.JoinResult{Error: models.OutcomeReferrerNotFound}, nil
	}
	if err != nil {
		return nil, apperrors.NewDependencyError("ledger", "get_referrer", err)
	}
	if referrer.ReferralTickets >= usermodels.MaxReferralTickets {
		return &models.JoinResult{Success: true, Message: models.OutcomeCapReached}, nil
	}

	ref := referrer.ReferralTickets + 1
	total := usermodels.ComputeTotal(referrer.SubscriptionTickets, ref)
	err = s.users.Update(ctx, owner, usermodels.UserPatch{ReferralTickets: &ref, TotalTickets: &total})
	if err != nil {
		return nil, apperrors.NewDependencyError("ledger", "award_referral_ticket", err)
	}

	logger.Info().
		Int64("referrer_id", owner).
		Int64("referred_id", referredID).
		Int("referral_tickets", ref).
		Msg("referral ticket awarded")

	if s.stats != nil {
		s.stats.InvalidateStats(ctx, owner)
	}
	if s.notifier != nil {
		s.notifier.NotifyUserAsync(owner, msgReferralPaid)
	}
	return &models.JoinResult{Success: true, TicketAwarded: true}, nil
}

// stampInvitedBy records who invited the user unless already set. Failures
// are logged only.
func (s *referralService) stampInvitedBy(ctx context.Context, referredID, owner int64, code string) {
	patch := usermodels.UserPatch{}
	user, err := s.users.GetByID(ctx, referredID)
	switch {
	case errors.Is(err, userrepo.ErrNotFound):
		patch.InvitedByReferralCode = &code
		patch.InvitedByTelegramID = &owner
	case err != nil:
		logger.Warn().Err(err).Int64("telegram_id", referredID).Msg("invited_by lookup failed")
		return
	default:
		if user.InvitedByReferralCode == nil || *user.InvitedByReferralCode == "" {
			patch.InvitedByReferralCode = &code
		}
		if user.InvitedByTelegramID == nil || *user.InvitedByTelegramID == 0 {
			patch.InvitedByTelegramID = &owner
		}
	}
	if patch.InvitedByReferralCode == nil && patch.InvitedByTelegramID == nil {
		return
	}
	if err := s.users.Update(ctx, referredID, patch); err != nil {
		logger.Warn().Err(err).Int64("telegram_id", referredID).Msg("failed to stamp invited_by")
	}
}

func (s *referralService) DirectUpdate(ctx context.Context, req models.DirectUpdate) (*models.DirectUpdateResult, error) {
	if req.TelegramID <= 0 {
		return nil, apperrors.NewInputError("telegram_id", "must be positive")
	}

	user, err := s.users.GetByID(ctx, req.TelegramID)
	if errors.Is(err, userrepo.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("user", req.TelegramID)
	}
	if err != nil {
		return nil, apperrors.NewDependencyError("ledger", "get_user", err)
	}

	ref := usermodels.ClampReferral(user.ReferralTickets + req.IncReferralTickets)
	subs := usermodels.ClampSubscription(user.SubscriptionTickets + req.IncSubscriptionTickets)
	total := usermodels.ComputeTotal(subs, ref)

	patch := usermodels.UserPatch{
		SubscriptionTickets:   &subs,
		ReferralTickets:       &ref,
		TotalTickets:          &total,
		InvitedByReferralCode: req.SetInvitedByReferralCode,
		InvitedByTelegramID:   req.SetInvitedByUserID,
	}
	if err := s.users.Update(ctx, req.TelegramID, patch); err != nil {
		return nil, apperrors.NewDependencyError("ledger", "direct_update", err)
	}
	if s.stats != nil {
		s.stats.InvalidateStats(ctx, req.TelegramID)
	}

	return &models.DirectUpdateResult{
		Success:             true,
		SubscriptionTickets: subs,
		ReferralTickets:     ref,
		TotalTickets:        total,
	}, nil
}
