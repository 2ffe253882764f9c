package models

import (
	"sort"
	"time"
)

// Places is the fixed number of winners per giveaway.
const Places = 6

type Giveaway struct {
	ID             int64  `json:"id"`
	ManualWinnerID *int64 `json:"manual_winner_telegram_id,omitempty"`
}

// WinnerRecord is one persisted placement.
type WinnerRecord struct {
	GiveawayID       int64      `json:"giveaway_id"`
	PlaceNumber      int        `json:"place_number"`
	WinnerTelegramID int64      `json:"winner_telegram_id"`
	WinnerUsername   string     `json:"winner_username,omitempty"`
	WinnerFirstName  string     `json:"winner_first_name,omitempty"`
	PrizeName        string     `json:"prize_name"`
	PrizeValue       string     `json:"prize_value"`
	IsManualWinner   bool       `json:"is_manual_winner"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
}

// SortByPlace orders records by ascending place number in place.
func SortByPlace(records []WinnerRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].PlaceNumber < records[j].PlaceNumber
	})
}
