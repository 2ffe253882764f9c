package models

import (
	"encoding/json"
	"fmt"
)

// Channel is a Telegram channel every participant has to follow.
type Channel struct {
	ChannelID       int64  `json:"channel_id"`
	ChannelUsername string `json:"channel_username"`
	ChannelName     string `json:"channel_name"`
}

var defaultChannels = []Channel{
	{ChannelID: -1002088959587, ChannelUsername: "rejmenyavseryoz", ChannelName: "Режь меня всерьёз"},
	{ChannelID: -1001971855072, ChannelUsername: "chchndra_tattoo", ChannelName: "Чучундра"},
	{ChannelID: -1002133674248, ChannelUsername: "naidenka_tattoo", ChannelName: "naidenka_tattoo"},
	{ChannelID: -1001508215942, ChannelUsername: "l1n_ttt", ChannelName: "Lin++"},
	{ChannelID: -1001555462429, ChannelUsername: "murderd0lll", ChannelName: "MurderdOll"},
	{ChannelID: -1002132954014, ChannelUsername: "poteryashkatattoo", ChannelName: "Потеряшка"},
	{ChannelID: -1001689395571, ChannelUsername: "EMI3MO", ChannelName: "EMI"},
	{ChannelID: -1001767997947, ChannelUsername: "bloodivamp", ChannelName: "bloodivamp"},
	{ChannelID: -1001973736826, ChannelUsername: "G_T_MODEL", ChannelName: "Gothams top model"},
}

// DefaultChannels returns a copy of the built-in channel list.
func DefaultChannels() []Channel {
	return append([]Channel(nil), defaultChannels...)
}

// ParseChannels reads a JSON channel list. An empty string yields the
// built-in list; malformed or empty JSON is an error.
func ParseChannels(raw string) ([]Channel, error) {
	if raw == "" {
		return DefaultChannels(), nil
	}

	var channels []Channel
	if err := json.Unmarshal([]byte(raw), &channels); err != nil {
		return nil, fmt.Errorf("parse channels: %w", err)
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("parse channels: list is empty")
	}
	for _, ch := range channels {
		if ch.ChannelID == 0 {
			return nil, fmt.Errorf("parse channels: channel %q has no channel_id", ch.ChannelUsername)
		}
	}
	return channels, nil
}

// Subscription is one confirmed (user, channel) pair.
type Subscription struct {
	TelegramID      int64  `json:"telegram_id"`
	ChannelID       int64  `json:"channel_id"`
	ChannelName     string `json:"channel_name"`
	ChannelUsername string `json:"channel_username"`
}

// CheckResult is the outcome of a subscription check.
type CheckResult struct {
	Success           bool    `json:"success"`
	IsSubscribedToAll bool    `json:"is_subscribed_to_all"`
	NotSubscribed     []int64 `json:"not_subscribed"`
	TicketAwarded     bool    `json:"ticket_awarded"`
}
