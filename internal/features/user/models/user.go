package models

import (
	"fmt"
	"time"
)

const (
	MaxSubscriptionTickets = 1
	MaxReferralTickets     = 10
)

// User is a row of the ticket ledger.
type User struct {
	TelegramID            int64      `json:"telegram_id"`
	Username              string     `json:"username,omitempty"`
	FirstName             string     `json:"first_name,omitempty"`
	LastName              string     `json:"last_name,omitempty"`
	SubscriptionTickets   int        `json:"subscription_tickets"`
	ReferralTickets       int        `json:"referral_tickets"`
	TotalTickets          int        `json:"total_tickets"`
	ReferralCode          string     `json:"referral_code,omitempty"`
	InvitedByTelegramID   *int64     `json:"invited_by_user_id,omitempty"`
	InvitedByReferralCode *string    `json:"invited_by_referral_code,omitempty"`
	CreatedAt             *time.Time `json:"created_at,omitempty"`
}

// Validate rejects rows the draw must not see.
func (u User) Validate() error {
	if u.TelegramID <= 0 {
		return fmt.Errorf("invalid telegram_id %d", u.TelegramID)
	}
	if u.SubscriptionTickets < 0 || u.ReferralTickets < 0 || u.TotalTickets < 0 {
		return fmt.Errorf("user %d: negative ticket count", u.TelegramID)
	}
	return nil
}

// DisplayName prefers @username, then first name, then the id.
func (u User) DisplayName() string {
	switch {
	case u.Username != "":
		return "@" + u.Username
	case u.FirstName != "":
		return u.FirstName
	default:
		return fmt.Sprintf("id%d", u.TelegramID)
	}
}

// ClampSubscription bounds a subscription ticket count to 0..1.
func ClampSubscription(n int) int {
	return clamp(n, 0, MaxSubscriptionTickets)
}

// ClampReferral bounds a referral ticket count to 0..10.
func ClampReferral(n int) int {
	return clamp(n, 0, MaxReferralTickets)
}

// ComputeTotal is subscription + capped referral tickets.
func ComputeTotal(subscription, referral int) int {
	return ClampSubscription(subscription) + ClampReferral(referral)
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// UserPatch is a partial update; nil fields are left untouched.
type UserPatch struct {
	Username              *string `json:"username,omitempty"`
	FirstName             *string `json:"first_name,omitempty"`
	LastName              *string `json:"last_name,omitempty"`
	SubscriptionTickets   *int    `json:"subscription_tickets,omitempty"`
	ReferralTickets       *int    `json:"referral_tickets,omitempty"`
	TotalTickets          *int    `json:"total_tickets,omitempty"`
	ReferralCode          *string `json:"referral_code,omitempty"`
	InvitedByTelegramID   *int64  `json:"invited_by_user_id,omitempty"`
	InvitedByReferralCode *string `json:"invited_by_referral_code,omitempty"`
}

// Stats is what the mini app shows a user about their own tickets.
type Stats struct {
	TelegramID          int64  `json:"telegram_id"`
	SubscriptionTickets int    `json:"subscription_tickets"`
	ReferralTickets     int    `json:"referral_tickets"`
	TotalTickets        int    `json:"total_tickets"`
	ReferralCode        string `json:"referral_code,omitempty"`
	Exists              bool   `json:"exists"`
}

func (u User) Stats() Stats {
	return Stats{
		TelegramID:          u.TelegramID,
		SubscriptionTickets: u.SubscriptionTickets,
		ReferralTickets:     u.ReferralTickets,
		TotalTickets:        u.TotalTickets,
		ReferralCode:        u.ReferralCode,
		Exists:              true,
	}
}
