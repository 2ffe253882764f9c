package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "gtm-backend/internal/common/errors"
	"gtm-backend/internal/common/logger"
	"gtm-backend/internal/features/subscription/models"
	"gtm-backend/internal/features/subscription/repository"
	usermodels "gtm-backend/internal/features/user/models"
	userrepo "gtm-backend/internal/features/user/repository"
	"gtm-backend/internal/platform/telegram"
)

const (
	checkConcurrency = 4
	maxRetryAfter    = 5 * time.Second

	msgTicketAwarded  = "✅ Подписки подтверждены. Билет начислен!"
	msgAlreadyAwarded = "✅ Подписки подтверждены. Билет ранее был начислен."
	msgSubscribeAll   = "⚠️ Подпишитесь на все каналы GTM, чтобы получить билет"
)

type subscriptionService struct {
	channels []models.Channel
	members  MemberChecker
	repo     repository.SubscriptionRepository
	users    userrepo.UserRepository
	notifier UserNotifier
	stats    StatsInvalidator
}

// NewSubscriptionService accepts nil notifier and stats.
func NewSubscriptionService(
	channels []models.Channel,
	members MemberChecker,
	repo repository.SubscriptionRepository,
	users userrepo.UserRepository,
	notifier UserNotifier,
	stats StatsInvalidator,
) SubscriptionService {
	return &subscriptionService{
		channels: channels,
		members:  members,
		repo:     repo,
		users:    users,
		notifier: notifier,
		stats:    stats,
	}
}

func (s *subscriptionService) Channels() []models.Channel {
	return append([]models.Channel(nil), s.channels...)
}

func (s *subscriptionService) IsSubscribedToAll(ctx context.Context, telegramID int64) (bool, error) {
	if !s.members.Enabled() {
		return false, telegram.ErrNoToken
	}
	for _, ch := range s.channels {
		member, err := s.getMember(ctx, ch.ChannelID, telegramID)
		if err != nil {
			return false, err
		}
		if !member.IsMember() {
			return false, nil
		}
	}
	return true, nil
}

// getMember retries once when Telegram asks to slow down.
func (s *subscriptionService) getMember(ctx context.Context, chatID, userID int64) (*telegram.ChatMember, error) {
	member, err := s.members.GetChatMember(ctx, chatID, userID)
	var rps *telegram.RPSError
	if !errors.As(err, &rps) {
		return member, err
	}

	wait := rps.RetryAfter
	if wait > maxRetryAfter {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(wait):
	}
	return s.members.GetChatMember(ctx, chatID, userID)
}

// check looks at every channel. Lookup failures count as not subscribed.
func (s *subscriptionService) check(ctx context.Context, telegramID int64) ([]models.Subscription, []int64) {
	ok := make([]bool, len(s.channels))

	var g errgroup.Group
	g.SetLimit(checkConcurrency)
	for i, ch := range s.channels {
		g.Go(func() error {
			member, err := s.getMember(ctx, ch.ChannelID, telegramID)
			if err != nil {
				logger.Warn().Err(err).
					Int64("telegram_id", telegramID).
					Int64("channel_id", ch.ChannelID).
					Msg("membership lookup failed")
				return nil
			}
			ok[i] = member.IsMember()
			return nil
		})
	}
	_ = g.Wait()

	subscribed := make([]models.Subscription, 0, len(s.channels))
	missing := make([]int64, 0)
	for i, ch := range s.channels {
		if !ok[i] {
			missing = append(missing, ch.ChannelID)
			continue
		}
		subscribed = append(subscribed, models.Subscription{
			TelegramID:      telegramID,
			ChannelID:       ch.ChannelID,
			ChannelName:     ch.ChannelName,
			ChannelUsername: ch.ChannelUsername,
		})
	}
	return subscribed, missing
}

func (s *subscriptionService) CheckAndAward(ctx context.Context, telegramID int64) (*models.CheckResult, error) {
	if telegramID <= 0 {
		return nil, apperrors.NewInputError("telegram_id", "must be positive")
	}
	if !s.members.Enabled() {
		return nil, apperrors.NewDependencyError("telegram", "check_subscriptions", telegram.ErrNoToken)
	}

	subscribed, missing := s.check(ctx, telegramID)
	all := len(missing) == 0

	if err := s.repo.SaveSubscriptions(ctx, subscribed); err != nil {
		logger.Warn().Err(err).Int64("telegram_id", telegramID).Msg("failed to record subscriptions")
	}

	awarded, err := s.repo.AwardTicket(ctx, telegramID, all)
	if err != nil {
		logger.Warn().Err(err).Int64("telegram_id", telegramID).Msg("award rpc failed")
		awarded = false
		if all {
			awarded = s.fallbackAward(ctx, telegramID)
		}
	}
	if awarded && s.stats != nil {
		s.stats.InvalidateStats(ctx, telegramID)
	}

	logger.Info().
		Int64("telegram_id", telegramID).
		Bool("subscribed_to_all", all).
		Int("missing", len(missing)).
		Bool("ticket_awarded", awarded).
		Msg("subscriptions checked")

	s.notify(telegramID, all, awarded)
	return &models.CheckResult{
		Success:           true,
		IsSubscribedToAll: all,
		NotSubscribed:     missing,
		TicketAwarded:     awarded,
	}, nil
}

// fallbackAward grants the subscription ticket directly when the user has
// none yet.
func (s *subscriptionService) fallbackAward(ctx context.Context, telegramID int64) bool {
	user, err := s.users.GetByID(ctx, telegramID)
	if err != nil {
		if !errors.Is(err, userrepo.ErrNotFound) {
			logger.Warn().Err(err).Int64("telegram_id", telegramID).Msg("fallback award: user lookup failed")
		}
		return false
	}
	if user.SubscriptionTickets > 0 {
		return false
	}

	subs := usermodels.MaxSubscriptionTickets
	total := usermodels.ComputeTotal(subs, user.ReferralTickets)
	err = s.users.Update(ctx, telegramID, usermodels.UserPatch{
		SubscriptionTickets: &subs,
		TotalTickets:        &total,
	})
	if err != nil {
		logger.Warn().Err(err).Int64("telegram_id", telegramID).Msg("fallback award: update failed")
		return false
	}
	return true
}

func (s *subscriptionService) notify(telegramID int64, all, awarded bool) {
	if s.notifier == nil {
		return
	}
	switch {
	case all && awarded:
		s.notifier.NotifyUserAsync(telegramID, msgTicketAwarded)
	case all:
		s.notifier.NotifyUserAsync(telegramID, msgAlreadyAwarded)
	default:
		s.notifier.NotifyUserAsync(telegramID, msgSubscribeAll)
	}
}
