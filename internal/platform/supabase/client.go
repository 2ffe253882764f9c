package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"gtm-backend/internal/common/config"
)

// APIError is a non-2xx PostgREST answer.
type APIError struct {
	Op      string
	Status  int
	Code    string
	Message string
	Body    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("supabase %s: %d %s: %s", e.Op, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase %s: %d %s", e.Op, e.Status, e.Body)
}

// IsConflict reports a unique violation, either as HTTP 409 or SQLSTATE 23505.
func IsConflict(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusConflict || apiErr.Code == "23505"
}

// Eq builds a PostgREST equality filter value.
func Eq(v interface{}) string {
	return "eq." + fmt.Sprint(v)
}

// Client talks to the PostgREST surface of a Supabase project.
type Client struct {
	http    *resty.Client
	restURL string
}

func NewClient(baseURL, key string, timeout time.Duration, retries int) *Client {
	hc := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeaders(map[string]string{
			"apikey":        key,
			"Authorization": "Bearer " + key,
			"Accept":        "application/json",
			"Content-Type":  "application/json",
		})
	return &Client{
		http:    hc,
		restURL: strings.TrimSuffix(baseURL, "/") + "/rest/v1",
	}
}

func NewFromConfig(cfg *config.Config) *Client {
	return NewClient(cfg.Supabase.URL, cfg.SupabaseKey(), cfg.Supabase.Timeout, cfg.Supabase.RetryCount)
}

// Select reads rows; params carries select, filters, order, limit and offset.
func (c *Client) Select(ctx context.Context, table string, params map[string]string, out interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(c.restURL + "/" + table)
	return c.decode("select "+table, resp, err, out)
}

// Insert adds rows and, when out is non-nil, decodes the inserted representation.
func (c *Client) Insert(ctx context.Context, table string, rows interface{}, out interface{}) error {
	prefer := "return=minimal"
	if out != nil {
		prefer = "return=representation"
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", prefer).
		SetBody(rows).
		Post(c.restURL + "/" + table)
	return c.decode("insert "+table, resp, err, out)
}

// Upsert merges rows on the given conflict columns.
func (c *Client) Upsert(ctx context.Context, table, onConflict string, rows interface{}) error {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", "resolution=merge-duplicates,return=minimal").
		SetBody(rows)
	if onConflict != "" {
		req.SetQueryParam("on_conflict", onConflict)
	}
	resp, err := req.Post(c.restURL + "/" + table)
	return c.decode("upsert "+table, resp, err, nil)
}

func (c *Client) Update(ctx context.Context, table string, filters map[string]string, patch interface{}, out interface{}) error {
	prefer := "return=minimal"
	if out != nil {
		prefer = "return=representation"
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", prefer).
		SetQueryParams(filters).
		SetBody(patch).
		Patch(c.restURL + "/" + table)
	return c.decode("update "+table, resp, err, out)
}

func (c *Client) Delete(ctx context.Context, table string, filters map[string]string) error {
	if len(filters) == 0 {
		return fmt.Errorf("supabase delete %s: refusing unfiltered delete", table)
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(filters).
		Delete(c.restURL + "/" + table)
	return c.decode("delete "+table, resp, err, nil)
}

// RPC calls a Postgres function exposed under /rpc.
func (c *Client) RPC(ctx context.Context, fn string, args interface{}, out interface{}) error {
	if args == nil {
		args = map[string]interface{}{}
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(args).
		Post(c.restURL + "/rpc/" + fn)
	return c.decode("rpc "+fn, resp, err, out)
}

func (c *Client) decode(op string, resp *resty.Response, err error, out interface{}) error {
	if err != nil {
		return fmt.Errorf("supabase %s: %w", op, err)
	}
	if resp.IsError() {
		apiErr := &APIError{Op: op, Status: resp.StatusCode(), Body: string(resp.Body())}
		var payload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(resp.Body(), &payload) == nil {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Message
		}
		return apiErr
	}
	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("supabase %s: decode: %w", op, err)
	}
	return nil
}
