package service

import (
	"context"
	"sync"

	"gtm-backend/internal/features/referral/models"
	"gtm-backend/internal/features/referral/repository"
	usermodels "gtm-backend/internal/features/user/models"
	userrepo "gtm-backend/internal/features/user/repository"
)

type memUsers struct {
	mu    sync.Mutex
	users map[int64]*usermodels.User
	err   error
}

func newUsers(users ...usermodels.User) *memUsers {
	m := &memUsers{users: map[int64]*usermodels.User{}}
	for i := range users {
		u := users[i]
		m.users[u.TelegramID] = &u
	}
	return m
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*usermodels.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, userrepo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByReferralCode(_ context.Context, code string) (*usermodels.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ReferralCode == code {
			cp := *u
			return &cp, nil
		}
	}
	return nil, userrepo.ErrNotFound
}

func (m *memUsers) Create(_ context.Context, u *usermodels.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.TelegramID] = &cp
	return nil
}

func (m *memUsers) Update(_ context.Context, id int64, p usermodels.UserPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	if p.ReferralCode != nil {
		u.ReferralCode = *p.ReferralCode
	}
	if p.SubscriptionTickets != nil {
		u.SubscriptionTickets = *p.SubscriptionTickets
	}
	if p.ReferralTickets != nil {
		u.ReferralTickets = *p.ReferralTickets
	}
	if p.TotalTickets != nil {
		u.TotalTickets = *p.TotalTickets
	}
	if p.InvitedByReferralCode != nil {
		u.InvitedByReferralCode = p.InvitedByReferralCode
	}
	if p.InvitedByTelegramID != nil {
		u.InvitedByTelegramID = p.InvitedByTelegramID
	}
	return nil
}

func (m *memUsers) ListWithTickets(context.Context) ([]usermodels.User, error) { return nil, nil }

func (m *memUsers) TotalAllTickets(context.Context) (int64, error) { return 0, nil }

func (m *memUsers) get(id int64) usermodels.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

type memReferrals struct {
	mu     sync.Mutex
	owners map[string]int64
	joins  map[models.Join]bool
}

func newReferrals() *memReferrals {
	return &memReferrals{owners: map[string]int64{}, joins: map[models.Join]bool{}}
}

func (r *memReferrals) OwnerByCode(_ context.Context, code string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.owners[code]; ok {
		return id, nil
	}
	return 0, repository.ErrCodeNotFound
}

func (r *memReferrals) JoinExists(_ context.Context, j models.Join) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joins[j], nil
}

func (r *memReferrals) InsertJoin(_ context.Context, j models.Join) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.joins[j] {
		return repository.ErrJoinExists
	}
	r.joins[j] = true
	return nil
}

type recordingNotifier struct {
	mu  sync.Mutex
	ids []int64
}

func (n *recordingNotifier) NotifyUserAsync(id int64, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, id)
}
