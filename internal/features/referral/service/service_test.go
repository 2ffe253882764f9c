package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gtm-backend/internal/common/errors"
	"gtm-backend/internal/features/referral/models"
	usermodels "gtm-backend/internal/features/user/models"
	"gtm-backend/internal/utils/random"
)

const ownerCode = "OWNER123"

// newService leaves the notifier unset when n is nil, as production does
// without a bot token.
func newService(users *memUsers, refs *memReferrals, n *recordingNotifier) ReferralService {
	var notifier UserNotifier
	if n != nil {
		notifier = n
	}
	return NewReferralService(refs, users, notifier, nil, random.Seeded(1))
}

func TestGetOrCreateReferralCode(t *testing.T) {
	users := newUsers(
		usermodels.User{TelegramID: 1, ReferralCode: "EXIST001"},
		usermodels.User{TelegramID: 2},
	)
	svc := newService(users, newReferrals(), nil)
	ctx := context.Background()
	format := regexp.MustCompile(`^[A-Z0-9]{8}$`)

	code, err := svc.GetOrCreateReferralCode(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "EXIST001", code)

	code, err = svc.GetOrCreateReferralCode(ctx, 2)
	require.NoError(t, err)
	assert.Regexp(t, format, code)
	assert.Equal(t, code, users.get(2).ReferralCode)

	again, err := svc.GetOrCreateReferralCode(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, code, again)

	code, err = svc.GetOrCreateReferralCode(ctx, 3)
	require.NoError(t, err)
	assert.Regexp(t, format, code)
	assert.Equal(t, code, users.get(3).ReferralCode)

	_, err = svc.GetOrCreateReferralCode(ctx, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
}

func TestProcessReferralJoin_Awards(t *testing.T) {
	users := newUsers(
		usermodels.User{TelegramID: 10, ReferralCode: ownerCode, SubscriptionTickets: 1, ReferralTickets: 2, TotalTickets: 3},
		usermodels.User{TelegramID: 20},
	)
	notifier := &recordingNotifier{}
	svc := newService(users, newReferrals(), notifier)

	res, err := svc.ProcessReferralJoin(context.Background(), ownerCode, 20)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.TicketAwarded)

	owner := users.get(10)
	assert.Equal(t, 3, owner.ReferralTickets)
	assert.Equal(t, 4, owner.TotalTickets)

	referred := users.get(20)
	require.NotNil(t, referred.InvitedByTelegramID)
	assert.Equal(t, int64(10), *referred.InvitedByTelegramID)
	assert.Equal(t, ownerCode, *referred.InvitedByReferralCode)
	assert.Equal(t, []int64{10}, notifier.ids)

	res, err = svc.ProcessReferralJoin(context.Background(), ownerCode, 20)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAlreadyCounted, res.Message)
	assert.Equal(t, 3, users.get(10).ReferralTickets)
}

func TestProcessReferralJoin_Rejections(t *testing.T) {
	users := newUsers(usermodels.User{TelegramID: 10, ReferralCode: ownerCode})
	svc := newService(users, newReferrals(), nil)
	ctx := context.Background()

	res, err := svc.ProcessReferralJoin(ctx, "UNKNOWN1", 20)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, models.OutcomeInvalidCode, res.Error)

	res, err = svc.ProcessReferralJoin(ctx, ownerCode, 10)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSelfReferral, res.Error)

	_, err = svc.ProcessReferralJoin(ctx, "", 20)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
}

func TestProcessReferralJoin_ReferralsTableFirst(t *testing.T) {
	users := newUsers(usermodels.User{TelegramID: 30})
	refs := newReferrals()
	refs.owners["LEGACY99"] = 30
	svc := newService(users, refs, nil)

	res, err := svc.ProcessReferralJoin(context.Background(), "LEGACY99", 31)
	require.NoError(t, err)
	assert.True(t, res.TicketAwarded)
	assert.Equal(t, 1, users.get(30).ReferralTickets)
}

func TestProcessReferralJoin_WithoutNotifier(t *testing.T) {
	users := newUsers(
		usermodels.User{TelegramID: 10, ReferralCode: ownerCode},
		usermodels.User{TelegramID: 20},
	)
	svc := NewReferralService(newReferrals(), users, nil, nil, random.Seeded(1))

	res, err := svc.ProcessReferralJoin(context.Background(), ownerCode, 20)
	require.NoError(t, err)
	assert.True(t, res.TicketAwarded)
	assert.Equal(t, 1, users.get(10).ReferralTickets)
}

func TestProcessReferralJoin_Cap(t *testing.T) {
	users := newUsers(usermodels.User{TelegramID: 10, ReferralCode: ownerCode, ReferralTickets: 9, TotalTickets: 9})
	svc := newService(users, newReferrals(), nil)
	ctx := context.Background()

	res, err := svc.ProcessReferralJoin(ctx, ownerCode, 100)
	require.NoError(t, err)
	assert.True(t, res.TicketAwarded)

	res, err = svc.ProcessReferralJoin(ctx, ownerCode, 101)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCapReached, res.Message)
	assert.False(t, res.TicketAwarded)
	assert.Equal(t, usermodels.MaxReferralTickets, users.get(10).ReferralTickets)
	assert.Equal(t, 10, users.get(10).TotalTickets)
}

func TestProcessReferralJoin_ConcurrentJoinsRespectCap(t *testing.T) {
	users := newUsers(usermodels.User{TelegramID: 10, ReferralCode: ownerCode})
	svc := newService(users, newReferrals(), nil)

	var wg sync.WaitGroup
	for i := int64(0); i < 25; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := svc.ProcessReferralJoin(context.Background(), ownerCode, 1000+id)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, usermodels.MaxReferralTickets, users.get(10).ReferralTickets)
}

func TestProcessReferralJoin_StampKeepsExistingInviter(t *testing.T) {
	prev := int64(77)
	prevCode := "OLDCODE1"
	users := newUsers(
		usermodels.User{TelegramID: 10, ReferralCode: ownerCode},
		usermodels.User{TelegramID: 20, InvitedByTelegramID: &prev, InvitedByReferralCode: &prevCode},
	)
	svc := newService(users, newReferrals(), nil)

	_, err := svc.ProcessReferralJoin(context.Background(), ownerCode, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(77), *users.get(20).InvitedByTelegramID)
	assert.Equal(t, prevCode, *users.get(20).InvitedByReferralCode)
}

func TestDirectUpdate(t *testing.T) {
	users := newUsers(usermodels.User{TelegramID: 5, ReferralTickets: 9, SubscriptionTickets: 0})
	svc := newService(users, newReferrals(), nil)
	code := "INVITE01"

	res, err := svc.DirectUpdate(context.Background(), models.DirectUpdate{
		TelegramID:               5,
		IncReferralTickets:       4,
		IncSubscriptionTickets:   3,
		SetInvitedByReferralCode: &code,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, res.ReferralTickets)
	assert.Equal(t, 1, res.SubscriptionTickets)
	assert.Equal(t, 11, res.TotalTickets)
	assert.Equal(t, code, *users.get(5).InvitedByReferralCode)

	res, err = svc.DirectUpdate(context.Background(), models.DirectUpdate{TelegramID: 5, IncReferralTickets: -50, IncSubscriptionTickets: -1})
	require.NoError(t, err)
	assert.Zero(t, res.TotalTickets)
}

func TestDirectUpdate_Errors(t *testing.T) {
	users := newUsers()
	svc := newService(users, newReferrals(), nil)

	_, err := svc.DirectUpdate(context.Background(), models.DirectUpdate{TelegramID: 404})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))

	users.err = errors.New("down")
	_, err = svc.DirectUpdate(context.Background(), models.DirectUpdate{TelegramID: 1})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDependency))
}

func TestParseLogLines(t *testing.T) {
	lines := []string{
		"🔔 /start | 09.08.2025 11:00:40 MSK | id=6931629845 | @emitattoo | Emily | ref=5ISJ6W3S",
		"🔔 /start | 09.08.2025 11:01:00 MSK | id=6931629845 | @emitattoo | Emily | ref=5ISJ6W3S",
		"ref=ABCDEF12",
		"some noise",
		"id=555",
		"ref=lower123",
		"id=777 no code here",
	}

	pairs := ParseLogLines(lines)
	assert.Equal(t, []models.Pair{
		{ReferredID: 555, Code: "ABCDEF12"},
		{ReferredID: 6931629845, Code: "5ISJ6W3S"},
	}, pairs)
}

func TestParseLogLines_LookaheadWindow(t *testing.T) {
	lines := []string{"ref=ABCDEF12", "a", "b", "c", "id=1"}
	assert.Empty(t, ParseLogLines(lines))
}

type scriptedJoiner struct {
	ReferralService
	results map[string]*models.JoinResult
}

func (s scriptedJoiner) ProcessReferralJoin(_ context.Context, code string, _ int64) (*models.JoinResult, error) {
	if r, ok := s.results[code]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("boom")
}

func TestReconcile(t *testing.T) {
	joiner := scriptedJoiner{results: map[string]*models.JoinResult{
		"AWARD001": {Success: true, TicketAwarded: true},
		"DUPL0001": {Success: true, Message: models.OutcomeAlreadyCounted},
		"BADCODE1": {Error: models.OutcomeInvalidCode},
	}}
	pairs := []models.Pair{
		{ReferredID: 1, Code: "AWARD001"},
		{ReferredID: 2, Code: "DUPL0001"},
		{ReferredID: 3, Code: "BADCODE1"},
		{ReferredID: 4, Code: "ERRCODE1"},
	}

	sum, err := Reconcile(context.Background(), joiner, pairs, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 2, sum.Success)
	assert.Equal(t, 1, sum.Awarded)
	assert.Equal(t, 1, sum.AlreadyCounted)
	assert.Equal(t, 1, sum.InvalidReferralCode)
	assert.Equal(t, 1, sum.Errors)
	assert.Len(t, sum.Details, 4)
}
