package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gtm-backend/internal/common/errors"
	"gtm-backend/internal/features/subscription/models"
	usermodels "gtm-backend/internal/features/user/models"
	userrepo "gtm-backend/internal/features/user/repository"
	"gtm-backend/internal/platform/telegram"
)

var testChannels = []models.Channel{
	{ChannelID: -1, ChannelUsername: "one"},
	{ChannelID: -2, ChannelUsername: "two"},
	{ChannelID: -3, ChannelUsername: "three"},
}

type fakeMembers struct {
	mu       sync.Mutex
	disabled bool
	status   map[[2]int64]string
	errs     map[int64]error
	rps      int
	calls    int
}

func newMembers() *fakeMembers {
	return &fakeMembers{status: map[[2]int64]string{}, errs: map[int64]error{}}
}

func (m *fakeMembers) subscribe(user int64, channels ...int64) {
	for _, ch := range channels {
		m.status[[2]int64{ch, user}] = "member"
	}
}

func (m *fakeMembers) Enabled() bool { return !m.disabled }

func (m *fakeMembers) GetChatMember(_ context.Context, chatID, userID int64) (*telegram.ChatMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.rps > 0 {
		m.rps--
		return nil, &telegram.RPSError{RetryAfter: 5 * time.Millisecond, Msg: "too many requests"}
	}
	if err := m.errs[chatID]; err != nil {
		return nil, err
	}
	status, ok := m.status[[2]int64{chatID, userID}]
	if !ok {
		status = "left"
	}
	return &telegram.ChatMember{Status: status}, nil
}

type fakeRepo struct {
	mu       sync.Mutex
	saved    []models.Subscription
	awardErr error
	awarded  bool
	calls    []bool
}

func (r *fakeRepo) SaveSubscriptions(_ context.Context, subs []models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, subs...)
	return nil
}

func (r *fakeRepo) AwardTicket(_ context.Context, _ int64, subscribed bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, subscribed)
	if r.awardErr != nil {
		return false, r.awardErr
	}
	return r.awarded && subscribed, nil
}

type fakeUsers struct {
	userrepo.UserRepository
	users   map[int64]*usermodels.User
	patches map[int64]usermodels.UserPatch
}

func newUsers(users ...usermodels.User) *fakeUsers {
	f := &fakeUsers{users: map[int64]*usermodels.User{}, patches: map[int64]usermodels.UserPatch{}}
	for i := range users {
		u := users[i]
		f.users[u.TelegramID] = &u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*usermodels.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, userrepo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Update(_ context.Context, id int64, p usermodels.UserPatch) error {
	f.patches[id] = p
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs map[int64][]string
}

func (n *recordingNotifier) NotifyUserAsync(id int64, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.msgs == nil {
		n.msgs = map[int64][]string{}
	}
	n.msgs[id] = append(n.msgs[id], text)
}

type countingStats struct{ ids []int64 }

func (c *countingStats) InvalidateStats(_ context.Context, id int64) { c.ids = append(c.ids, id) }

func TestIsSubscribedToAll(t *testing.T) {
	members := newMembers()
	members.subscribe(10, -1, -2, -3)
	members.subscribe(20, -1, -2)
	svc := NewSubscriptionService(testChannels, members, &fakeRepo{}, newUsers(), nil, nil)
	ctx := context.Background()

	ok, err := svc.IsSubscribedToAll(ctx, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsSubscribedToAll(ctx, 20)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsSubscribedToAll_FailsClosed(t *testing.T) {
	members := newMembers()
	members.subscribe(10, -1, -2, -3)
	members.errs[-2] = errors.New("bad gateway")
	svc := NewSubscriptionService(testChannels, members, &fakeRepo{}, newUsers(), nil, nil)

	ok, err := svc.IsSubscribedToAll(context.Background(), 10)
	assert.Error(t, err)
	assert.False(t, ok)

	members.disabled = true
	ok, err = svc.IsSubscribedToAll(context.Background(), 10)
	assert.ErrorIs(t, err, telegram.ErrNoToken)
	assert.False(t, ok)
}

func TestIsSubscribedToAll_RetriesRateLimit(t *testing.T) {
	members := newMembers()
	members.subscribe(10, -1, -2, -3)
	members.rps = 1
	svc := NewSubscriptionService(testChannels, members, &fakeRepo{}, newUsers(), nil, nil)

	ok, err := svc.IsSubscribedToAll(context.Background(), 10)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckAndAward_Subscribed(t *testing.T) {
	members := newMembers()
	members.subscribe(10, -1, -2, -3)
	repo := &fakeRepo{awarded: true}
	notifier := &recordingNotifier{}
	stats := &countingStats{}
	svc := NewSubscriptionService(testChannels, members, repo, newUsers(), notifier, stats)

	res, err := svc.CheckAndAward(context.Background(), 10)
	require.NoError(t, err)
	assert.True(t, res.IsSubscribedToAll)
	assert.True(t, res.TicketAwarded)
	assert.Empty(t, res.NotSubscribed)
	assert.Len(t, repo.saved, 3)
	assert.Equal(t, []bool{true}, repo.calls)
	assert.Equal(t, []int64{10}, stats.ids)
	assert.Equal(t, []string{msgTicketAwarded}, notifier.msgs[10])
}

func TestCheckAndAward_Partial(t *testing.T) {
	members := newMembers()
	members.subscribe(10, -1)
	members.errs[-3] = errors.New("timeout")
	repo := &fakeRepo{awarded: true}
	notifier := &recordingNotifier{}
	svc := NewSubscriptionService(testChannels, members, repo, newUsers(), notifier, nil)

	res, err := svc.CheckAndAward(context.Background(), 10)
	require.NoError(t, err)
	assert.False(t, res.IsSubscribedToAll)
	assert.False(t, res.TicketAwarded)
	assert.ElementsMatch(t, []int64{-2, -3}, res.NotSubscribed)
	assert.Len(t, repo.saved, 1)
	assert.Equal(t, []bool{false}, repo.calls)
	assert.Equal(t, []string{msgSubscribeAll}, notifier.msgs[10])
}

func TestCheckAndAward_FallbackWhenRPCFails(t *testing.T) {
	members := newMembers()
	members.subscribe(10, -1, -2, -3)
	members.subscribe(11, -1, -2, -3)
	repo := &fakeRepo{awardErr: errors.New("rpc missing")}
	users := newUsers(
		usermodels.User{TelegramID: 10, ReferralTickets: 12},
		usermodels.User{TelegramID: 11, SubscriptionTickets: 1, TotalTickets: 1},
	)
	svc := NewSubscriptionService(testChannels, members, repo, users, nil, nil)

	res, err := svc.CheckAndAward(context.Background(), 10)
	require.NoError(t, err)
	assert.True(t, res.TicketAwarded)
	patch := users.patches[10]
	require.NotNil(t, patch.SubscriptionTickets)
	assert.Equal(t, 1, *patch.SubscriptionTickets)
	assert.Equal(t, 11, *patch.TotalTickets)

	res, err = svc.CheckAndAward(context.Background(), 11)
	require.NoError(t, err)
	assert.False(t, res.TicketAwarded)
	assert.NotContains(t, users.patches, int64(11))
}

func TestCheckAndAward_Errors(t *testing.T) {
	members := newMembers()
	svc := NewSubscriptionService(testChannels, members, &fakeRepo{}, newUsers(), nil, nil)

	_, err := svc.CheckAndAward(context.Background(), 0)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))

	members.disabled = true
	_, err = svc.CheckAndAward(context.Background(), 10)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDependency))
}
