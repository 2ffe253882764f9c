package models

import "encoding/json"

const (
	MinRating = 1
	MaxRating = 5
)

type Rating struct {
	ArtistName string `json:"artist_name"`
	UserID     string `json:"user_id"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment,omitempty"`
}

// Stats is the aggregate returned by get_artist_rating, passed through as is.
type Stats = json.RawMessage

type RateResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Stats   Stats  `json:"stats"`
}
