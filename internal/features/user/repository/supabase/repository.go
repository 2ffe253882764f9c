package supabase

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/jmoiron/jsonq"

	"gtm-backend/internal/common/logger"
	"gtm-backend/internal/features/user/models"
	"gtm-backend/internal/features/user/repository"
	"gtm-backend/internal/platform/supabase"
)

const (
	usersTable     = "users"
	totalsView     = "total_all_tickets"
	pageSize       = 1000
	userColumns    = "telegram_id,username,first_name,last_name,subscription_tickets,referral_tickets,total_tickets,referral_code,invited_by_user_id,invited_by_referral_code,created_at"
	maxLedgerPages = 1000
)

// Keys the totals view has used over time, in lookup order.
var totalKeys = []string{"total_all_tickets", "total_all", "total", "value", "count"}

type userRepository struct {
	db *supabase.Client
}

func NewUserRepository(db *supabase.Client) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) getOne(ctx context.Context, column, value string) (*models.User, error) {
	var rows []models.User
	err := r.db.Select(ctx, usersTable, map[string]string{
		"select": userColumns,
		column:   supabase.Eq(value),
		"limit":  "1",
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return &rows[0], nil
}

func (r *userRepository) GetByID(ctx context.Context, telegramID int64) (*models.User, error) {
	return r.getOne(ctx, "telegram_id", strconv.FormatInt(telegramID, 10))
}

func (r *userRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return r.getOne(ctx, "referral_code", code)
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	return r.db.Insert(ctx, usersTable, []*models.User{user}, nil)
}

func (r *userRepository) Update(ctx context.Context, telegramID int64, patch models.UserPatch) error {
	return r.db.Update(ctx, usersTable, map[string]string{
		"telegram_id": supabase.Eq(telegramID),
	}, patch, nil)
}

func (r *userRepository) ListWithTickets(ctx context.Context) ([]models.User, error) {
	var users []models.User
	dropped := 0

	for page := 0; page < maxLedgerPages; page++ {
		var rows []models.User
		err := r.db.Select(ctx, usersTable, map[string]string{
			"select":        userColumns,
			"total_tickets": "gt.0",
			"order":         "telegram_id.asc",
			"limit":         strconv.Itoa(pageSize),
			"offset":        strconv.Itoa(page * pageSize),
		}, &rows)
		if err != nil {
			return nil, fmt.Errorf("list users page %d: %w", page, err)
		}

		for _, u := range rows {
			if err := u.Validate(); err != nil {
				dropped++
				continue
			}
			users = append(users, u)
		}
		if len(rows) < pageSize {
			break
		}
	}

	if dropped > 0 {
		logger.Warn().Int("dropped", dropped).Msg("ledger rows failed validation")
	}
	sort.Slice(users, func(i, j int) bool { return users[i].TelegramID < users[j].TelegramID })
	return users, nil
}

func (r *userRepository) TotalAllTickets(ctx context.Context) (int64, error) {
	var rows []map[string]interface{}
	if err := r.db.Select(ctx, totalsView, map[string]string{"select": "*", "limit": "1"}, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return totalFromRow(rows[0]), nil
}

func totalFromRow(row map[string]interface{}) int64 {
	q := jsonq.NewQuery(row)
	for _, k := range totalKeys {
		if v, err := q.Int(k); err == nil {
			return int64(v)
		}
	}

	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v, err := q.Int(k); err == nil {
			return int64(v)
		}
	}
	return 0
}
