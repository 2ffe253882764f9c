package notification

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"gtm-backend/internal/common/logger"
	"gtm-backend/internal/features/giveaway/models"
	"gtm-backend/internal/platform/telegram"
)

const defaultTimeout = time.Minute

// Sender is the part of the Bot API client the notifier needs.
type Sender interface {
	Enabled() bool
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// TelegramNotifier sends best-effort messages. A disabled sender turns every
// call into a no-op.
type TelegramNotifier struct {
	sender  Sender
	timeout time.Duration
}

func NewTelegramNotifier(sender Sender, timeout time.Duration) *TelegramNotifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &TelegramNotifier{sender: sender, timeout: timeout}
}

// NotifyUser sends one message, retrying once after a rate limit.
func (n *TelegramNotifier) NotifyUser(ctx context.Context, telegramID int64, text string) error {
	if n == nil || n.sender == nil || !n.sender.Enabled() {
		return nil
	}

	err := n.sender.SendMessage(ctx, telegramID, text)
	var rps *telegram.RPSError
	if errors.As(err, &rps) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rps.RetryAfter):
		}
		err = n.sender.SendMessage(ctx, telegramID, text)
	}
	return err
}

// NotifyUserAsync sends in the background with its own timeout. Failures
// are logged only.
func (n *TelegramNotifier) NotifyUserAsync(telegramID int64, text string) {
	if n == nil || n.sender == nil || !n.sender.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.NotifyUser(ctx, telegramID, text); err != nil {
			logger.Warn().Err(err).Int64("telegram_id", telegramID).Msg("notification failed")
		}
	}()
}

// NotifyWinners messages every winner about their place and prize. It keeps
// going past individual failures and returns them joined.
func (n *TelegramNotifier) NotifyWinners(ctx context.Context, giveawayID int64, winners []models.WinnerRecord) error {
	var errs []error
	for _, w := range winners {
		if err := n.NotifyUser(ctx, w.WinnerTelegramID, WinnerMessage(w)); err != nil {
			errs = append(errs, fmt.Errorf("winner %d (place %d): %w", w.WinnerTelegramID, w.PlaceNumber, err))
		}
	}
	if len(errs) > 0 {
		logger.Warn().Int64("giveaway_id", giveawayID).Int("failed", len(errs)).Msg("some winners were not notified")
	}
	return errors.Join(errs...)
}

func WinnerMessage(w models.WinnerRecord) string {
	return fmt.Sprintf("🎉 Поздравляем! Вы заняли <b>%d место</b> в розыгрыше GTM.\nПриз: <b>%s</b>\n%s",
		w.PlaceNumber, html.EscapeString(w.PrizeName), html.EscapeString(w.PrizeValue))
}
