// Package linxapi is the HTTP client for the monetized-link service:
// link shortening, earnings balance, and the payout (withdrawal) API.
package linxapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rajeshboy669/linxbot/core/logger"
	"log/slog"
)

const (
	// defaultTimeout bounds every remote call so a slow upstream cannot
	// stall an entire message rewrite or a conversation turn.
	defaultTimeout = 15 * time.Second

	statusSuccess = "success"
)

// RemoteError carries a failure payload reported by the service itself,
// as opposed to a transport-level error. Its message is safe to show to
// the user verbatim.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return "linxapi: remote reported failure"
	}
	return "linxapi: " + e.Message
}

// Method describes a payout channel offered by the remote service.
// The set is dynamic and must be fetched fresh for every withdrawal.
type Method struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Status          string `json:"status"`
	AccountRequired bool   `json:"account_required"`
}

// Enabled reports whether the method is currently offered.
func (m Method) Enabled() bool {
	switch strings.ToLower(strings.TrimSpace(m.Status)) {
	case "enabled", "active", "1", "true":
		return true
	}
	return false
}

// Balance holds earnings statistics for an account.
type Balance struct {
	Username   string  `json:"username"`
	UserID     int64   `json:"user_id"`
	Email      string  `json:"email"`
	Available  float64 `json:"balance"`
	Withdrawn  float64 `json:"withdrawn"`
	Referrals  float64 `json:"referrals"`
	TotalLinks int64   `json:"total_links"`
}

// SubmitResult is the remote response to a withdrawal submission.
type SubmitResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Options configures a Client. Zero values fall back to sane defaults
// except the endpoint URLs, which are required.
type Options struct {
	APIURL     string
	BalanceURL string
	PayoutURL  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the shortener and payout endpoints. All methods issue
// exactly one attempt; retry policy belongs to the caller.
type Client struct {
	httpClient *http.Client
	apiURL     string
	balanceURL string
	payoutURL  string
}

// New builds a Client from options.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: httpClient,
		apiURL:     strings.TrimRight(opts.APIURL, "/"),
		balanceURL: strings.TrimRight(opts.BalanceURL, "/"),
		payoutURL:  strings.TrimRight(opts.PayoutURL, "/"),
	}
}

// Shorten exchanges a raw link for its monetized replacement.
// A response without a usable shortenedUrl is treated as failure.
func (c *Client) Shorten(ctx context.Context, apiKey, link string) (string, error) {
	var payload struct {
		Status       string `json:"status"`
		Message      string `json:"message"`
		ShortenedURL string `json:"shortenedUrl"`
	}
	params := url.Values{"api": {apiKey}, "url": {link}}
	if err := c.getJSON(ctx, c.apiURL, params, &payload); err != nil {
		return "", err
	}
	if payload.ShortenedURL == "" {
		if payload.Message != "" {
			return "", &RemoteError{Message: payload.Message}
		}
		return "", &RemoteError{Message: "no shortened url in response"}
	}
	return payload.ShortenedURL, nil
}

// AccountBalance fetches earnings statistics for the credential.
func (c *Client) AccountBalance(ctx context.Context, apiKey string) (*Balance, error) {
	var payload struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Balance
	}
	params := url.Values{"api": {apiKey}}
	if err := c.getJSON(ctx, c.balanceURL, params, &payload); err != nil {
		return nil, err
	}
	if !strings.EqualFold(payload.Status, statusSuccess) {
		return nil, &RemoteError{Message: payload.Message}
	}
	b := payload.Balance
	return &b, nil
}

// PayoutMethods lists the payout channels currently offered to the
// credential, including disabled ones; callers filter by Enabled.
func (c *Client) PayoutMethods(ctx context.Context, apiKey string) ([]Method, error) {
	var payload struct {
		Status  string   `json:"status"`
		Message string   `json:"message"`
		Methods []Method `json:"methods"`
	}
	params := url.Values{"api": {apiKey}}
	if err := c.getJSON(ctx, c.payoutURL+"/methods", params, &payload); err != nil {
		return nil, err
	}
	if !strings.EqualFold(payload.Status, statusSuccess) {
		return nil, &RemoteError{Message: payload.Message}
	}
	return payload.Methods, nil
}

// SubmitWithdrawal submits a payout request. A remote-reported failure
// comes back as *RemoteError so the message can be surfaced verbatim.
func (c *Client) SubmitWithdrawal(ctx context.Context, apiKey string, amount float64, methodID, account string) (*SubmitResult, error) {
	params := url.Values{
		"api":    {apiKey},
		"amount": {strconv.FormatFloat(amount, 'f', -1, 64)},
		"method": {methodID},
	}
	if account != "" {
		params.Set("account", account)
	}
	var payload SubmitResult
	if err := c.getJSON(ctx, c.payoutURL+"/submit", params, &payload); err != nil {
		return nil, err
	}
	if !strings.EqualFold(payload.Status, statusSuccess) {
		return nil, &RemoteError{Message: payload.Message}
	}
	return &payload, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	if endpoint == "" {
		return fmt.Errorf("linxapi: endpoint not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("linxapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn(ctx, "service.linx", "request.fail",
			slog.String("status", "fail"),
			slog.String("endpoint", redactEndpoint(endpoint)),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("linxapi: request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		logger.Warn(ctx, "service.linx", "request.fail",
			slog.String("status", "fail"),
			slog.String("endpoint", redactEndpoint(endpoint)),
			slog.Int("http_code", resp.StatusCode),
			slog.Duration("duration", logger.Took(start)),
		)
		return fmt.Errorf("linxapi: unexpected status %s", resp.Status)
	}

	body := io.LimitReader(resp.Body, 1<<20)
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("linxapi: decode response: %w", err)
	}

	logger.Debug(ctx, "service.linx", "request.ok",
		slog.String("status", "ok"),
		slog.String("endpoint", redactEndpoint(endpoint)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// redactEndpoint strips the query string so API keys never reach logs.
func redactEndpoint(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}
