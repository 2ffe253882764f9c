package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gtm-backend/internal/features/giveaway/models"
	"gtm-backend/internal/platform/telegram"
)

type fakeSender struct {
	mu       sync.Mutex
	disabled bool
	sent     map[int64][]string
	fail     map[int64]error
	rps      int
}

func newSender() *fakeSender {
	return &fakeSender{sent: map[int64][]string{}, fail: map[int64]error{}}
}

func (s *fakeSender) Enabled() bool { return !s.disabled }

func (s *fakeSender) SendMessage(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rps > 0 {
		s.rps--
		return &telegram.RPSError{RetryAfter: 10 * time.Millisecond, Msg: "slow down"}
	}
	if err := s.fail[chatID]; err != nil {
		return err
	}
	s.sent[chatID] = append(s.sent[chatID], text)
	return nil
}

func (s *fakeSender) count(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent[id])
}

func TestNotifyWinners(t *testing.T) {
	sender := newSender()
	sender.fail[2] = errors.New("bot was blocked by the user")
	n := NewTelegramNotifier(sender, time.Second)

	winners := []models.WinnerRecord{
		{WinnerTelegramID: 1, PlaceNumber: 1, PrizeName: "Главный приз", PrizeValue: "20 000 ₽"},
		{WinnerTelegramID: 2, PlaceNumber: 2},
		{WinnerTelegramID: 3, PlaceNumber: 3},
	}
	err := n.NotifyWinners(context.Background(), 1, winners)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "winner 2")

	assert.Equal(t, 1, sender.count(1))
	assert.Equal(t, 1, sender.count(3))
	assert.Contains(t, sender.sent[1][0], "1 место")
}

func TestNotifyUser_RetriesAfterRateLimit(t *testing.T) {
	sender := newSender()
	sender.rps = 1

	require.NoError(t, NewTelegramNotifier(sender, time.Second).NotifyUser(context.Background(), 9, "hi"))
	assert.Equal(t, 1, sender.count(9))
}

func TestNotifyUser_Disabled(t *testing.T) {
	sender := newSender()
	sender.disabled = true
	n := NewTelegramNotifier(sender, time.Second)

	require.NoError(t, n.NotifyUser(context.Background(), 9, "hi"))
	n.NotifyUserAsync(9, "hi")
	assert.Zero(t, sender.count(9))

	var nilNotifier *TelegramNotifier
	assert.NoError(t, nilNotifier.NotifyUser(context.Background(), 9, "hi"))
}

func TestNotifyUserAsync(t *testing.T) {
	sender := newSender()
	NewTelegramNotifier(sender, time.Second).NotifyUserAsync(4, "hello")

	assert.Eventually(t, func() bool { return sender.count(4) == 1 }, time.Second, 10*time.Millisecond)
}

func TestWinnerMessage_Escapes(t *testing.T) {
	msg := WinnerMessage(models.WinnerRecord{PlaceNumber: 6, PrizeName: "<b>", PrizeValue: "a&b"})
	assert.Contains(t, msg, "&lt;b&gt;")
	assert.Contains(t, msg, "a&amp;b")
}
