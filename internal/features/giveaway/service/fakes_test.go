package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"gtm-backend/internal/features/giveaway/models"
	"gtm-backend/internal/features/giveaway/repository"
	usermodels "gtm-backend/internal/features/user/models"
)

type fakeLedger struct {
	users     []usermodels.User
	giveaways map[int64]*models.Giveaway
	listErr   error
	getErr    error
}

func newLedger(users ...usermodels.User) *fakeLedger {
	return &fakeLedger{users: users, giveaways: map[int64]*models.Giveaway{1: {ID: 1}}}
}

func (l *fakeLedger) ListUsersWithTickets(context.Context) ([]usermodels.User, error) {
	if l.listErr != nil {
		return nil, l.listErr
	}
	return append([]usermodels.User(nil), l.users...), nil
}

func (l *fakeLedger) GetGiveaway(_ context.Context, id int64) (*models.Giveaway, error) {
	if l.getErr != nil {
		return nil, l.getErr
	}
	g, ok := l.giveaways[id]
	if !ok {
		return nil, repository.ErrGiveawayNotFound
	}
	return g, nil
}

type fakeOracle struct {
	mu       sync.Mutex
	rejected map[int64]bool
	failing  map[int64]bool
	slow     map[int64]bool
	calls    map[int64]int
}

func newOracle() *fakeOracle {
	return &fakeOracle{
		rejected: map[int64]bool{},
		failing:  map[int64]bool{},
		slow:     map[int64]bool{},
		calls:    map[int64]int{},
	}
}

func (o *fakeOracle) IsSubscribedToAll(ctx context.Context, id int64) (bool, error) {
	o.mu.Lock()
	o.calls[id]++
	slow, failing, rejected := o.slow[id], o.failing[id], o.rejected[id]
	o.mu.Unlock()

	if slow {
		<-ctx.Done()
		return false, ctx.Err()
	}
	if failing {
		return false, context.DeadlineExceeded
	}
	return !rejected, nil
}

func (o *fakeOracle) callsFor(id int64) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[id]
}

type memResults struct {
	mu       sync.Mutex
	data     map[int64][]models.WinnerRecord
	writes   int
	reads    int
	readErr  error
	onWrite  func(id int64) // runs before the write, under no lock
	readHook func(n int) []models.WinnerRecord
}

func newMemResults() *memResults {
	return &memResults{data: map[int64][]models.WinnerRecord{}}
}

func (m *memResults) Read(_ context.Context, id int64) ([]models.WinnerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.readErr != nil {
		return nil, m.readErr
	}
	if m.readHook != nil {
		if recs := m.readHook(m.reads); recs != nil {
			return recs, nil
		}
	}
	return append([]models.WinnerRecord(nil), m.data[id]...), nil
}

func (m *memResults) WriteOnce(_ context.Context, id int64, recs []models.WinnerRecord) error {
	if m.onWrite != nil {
		m.onWrite(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.data[id]) > 0 {
		return repository.ErrResultsExist
	}
	m.writes++
	m.data[id] = append([]models.WinnerRecord(nil), recs...)
	return nil
}

func (m *memResults) Clear(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func (m *memResults) set(id int64, recs []models.WinnerRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = recs
}

func (m *memResults) setReadErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

type memLocker struct {
	mu      sync.Mutex
	held    map[string]string
	err     error
	blocked bool
}

func newMemLocker() *memLocker {
	return &memLocker{held: map[string]string{}}
}

func (l *memLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", l.err
	}
	if _, ok := l.held[key]; ok || l.blocked {
		return "", repository.ErrAlreadyLocked
	}
	token := uuid.New().String()
	l.held[key] = token
	return token, nil
}

func (l *memLocker) ReleaseLock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

type countingDrawer struct {
	mu    sync.Mutex
	calls int
	inner Drawer
	delay time.Duration
}

func (d *countingDrawer) Select(ctx context.Context, id int64) ([]models.WinnerRecord, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	return d.inner.Select(ctx, id)
}

func (d *countingDrawer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type chanNotifier struct {
	ch chan []models.WinnerRecord
}

func (n *chanNotifier) NotifyWinners(_ context.Context, _ int64, w []models.WinnerRecord) error {
	n.ch <- w
	return nil
}

func ref(id int64, tickets int) usermodels.User {
	return usermodels.User{TelegramID: id, ReferralTickets: tickets, TotalTickets: tickets, Username: "u"}
}

func sub(id int64, tickets int) usermodels.User {
	return usermodels.User{TelegramID: id, SubscriptionTickets: 1, ReferralTickets: tickets - 1, TotalTickets: tickets}
}

func population(n int) []usermodels.User {
	users := make([]usermodels.User, 0, n)
	for i := 1; i <= n; i++ {
		if i%2 == 0 {
			users = append(users, sub(int64(i), 1+i%4))
		} else {
			users = append(users, ref(int64(i), 1+i%7))
		}
	}
	return users
}
