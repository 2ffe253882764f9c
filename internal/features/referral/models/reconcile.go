package models

// Pair is a (referred user, referral code) pair recovered from bot logs.
type Pair struct {
	ReferredID int64  `json:"referred_id"`
	Code       string `json:"code"`
}

type ReconcileDetail struct {
	Pair
	Result *JoinResult `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

type ReconcileSummary struct {
	Total               int               `json:"total"`
	Success             int               `json:"success"`
	Awarded             int               `json:"awarded"`
	AlreadyCounted      int               `json:"already_counted"`
	InvalidReferralCode int               `json:"invalid_referral_code"`
	Errors              int               `json:"errors"`
	Details             []ReconcileDetail `json:"details,omitempty"`
}
