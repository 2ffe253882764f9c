package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"gtm-backend/internal/common/logger"
)

const defaultBaseURL = "https://api.telegram.org"

var ErrNoToken = errors.New("telegram bot token is not configured")

// RPSError is returned when the Bot API answers 429.
type RPSError struct {
	RetryAfter time.Duration
	Msg        string
}

func (e *RPSError) Error() string {
	return e.Msg
}

// APIError is a non-ok Bot API answer other than 429.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

type ChatMember struct {
	Status string `json:"status"`
	User   struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

// IsMember reports statuses that count as a current subscription.
func (m ChatMember) IsMember() bool {
	switch m.Status {
	case "member", "administrator", "creator":
		return true
	}
	return false
}

type response struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters,omitempty"`
}

type Client struct {
	http    *resty.Client
	token   string
	baseURL string
}

type Option func(*Client)

// WithBaseURL points the client at another Bot API host (tests, local bot API server).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

func NewClient(token string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	c := &Client{http: hc, token: token, baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Enabled() bool {
	return c != nil && c.token != ""
}

func (c *Client) GetChatMember(ctx context.Context, chatID, userID int64) (*ChatMember, error) {
	var member ChatMember
	err := c.call(ctx, "getChatMember", map[string]string{
		"chat_id": fmt.Sprint(chatID),
		"user_id": fmt.Sprint(userID),
	}, nil, &member)
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// SendMessage sends an HTML formatted message.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	body := map[string]interface{}{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	return c.call(ctx, "sendMessage", nil, body, nil)
}

func (c *Client) call(ctx context.Context, method string, query map[string]string, body interface{}, out interface{}) error {
	if c.token == "" {
		return ErrNoToken
	}

	req := c.http.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParams(query)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	var (
		resp *resty.Response
		err  error
	)
	if body != nil {
		resp, err = req.SetHeader("Content-Type", "application/json").SetBody(body).Post(url)
	} else {
		resp, err = req.Get(url)
	}
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}

	var r response
	if err := json.Unmarshal(resp.Body(), &r); err != nil {
		return fmt.Errorf("telegram %s: decode (status %d): %w", method, resp.StatusCode(), err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests || r.ErrorCode == http.StatusTooManyRequests {
		retry := time.Second
		if r.Parameters != nil && r.Parameters.RetryAfter > 0 {
			retry = time.Duration(r.Parameters.RetryAfter) * time.Second
		}
		logger.Warn().Str("method", method).Dur("retry_after", retry).Msg("telegram rate limit")
		return &RPSError{RetryAfter: retry, Msg: fmt.Sprintf("telegram %s: too many requests", method)}
	}
	if !r.Ok {
		return &APIError{Method: method, Code: r.ErrorCode, Description: r.Description}
	}

	if out != nil && len(r.Result) > 0 {
		if err := json.Unmarshal(r.Result, out); err != nil {
			return fmt.Errorf("telegram %s: decode result: %w", method, err)
		}
	}
	return nil
}
