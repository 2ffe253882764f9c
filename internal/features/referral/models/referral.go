package models

const (
	CodeLength   = 8
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Join outcomes reported to callers instead of errors.
const (
	OutcomeInvalidCode      = "invalid_referral_code"
	OutcomeSelfReferral     = "self_referral"
	OutcomeAlreadyCounted   = "already_counted"
	OutcomeCapReached       = "referral cap reached"
	OutcomeReferrerNotFound = "referrer_not_found"
)

// Join links a referrer to a user who started the bot with their code.
type Join struct {
	ReferrerID int64 `json:"referrer_id"`
	ReferredID int64 `json:"referred_id"`
}

type JoinResult struct {
	Success       bool   `json:"success"`
	TicketAwarded bool   `json:"ticket_awarded"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
}

// DirectUpdate adjusts ticket counters when another service already did the checks.
type DirectUpdate struct {
	TelegramID               int64   `json:"telegram_id"`
	IncReferralTickets       int     `json:"inc_referral_tickets,omitempty"`
	IncSubscriptionTickets   int     `json:"inc_subscription_tickets,omitempty"`
	SetInvitedByReferralCode *string `json:"set_invited_by_referral_code,omitempty"`
	SetInvitedByUserID       *int64  `json:"set_invited_by_user_id,omitempty"`
}

type DirectUpdateResult struct {
	Success             bool `json:"success"`
	SubscriptionTickets int  `json:"subscription_tickets"`
	ReferralTickets     int  `json:"referral_tickets"`
	TotalTickets        int  `json:"total_tickets"`
}
