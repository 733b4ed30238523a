// Package catalog provides a client for the remote app catalog, the
// directory operators browse before installing apps. Catalog lookups never
// participate in extension registry population; they only serve the CLI.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrNotFound indicates the catalog has no app with the requested ID.
var ErrNotFound = errors.New("app not found in catalog")

// ErrUnavailable indicates the catalog is unreachable and the circuit
// breaker is open.
var ErrUnavailable = errors.New("app catalog unavailable")

// Entry describes an app as listed by the remote catalog.
type Entry struct {
	// ID is the app identifier (e.g., "com.acme.crm").
	ID string `json:"id"`

	// Name is the human-readable app name.
	Name string `json:"name"`

	// Version is the latest published version.
	Version string `json:"version"`

	// Description is a brief description of what the app does.
	Description string `json:"description,omitempty"`

	// Author is the app author/publisher name.
	Author string `json:"author,omitempty"`

	// Homepage is the URL to the app documentation or homepage.
	Homepage string `json:"homepage,omitempty"`

	// License is the license under which the app is distributed.
	License string `json:"license,omitempty"`

	// Types are the capability markers the app declares (e.g., "dav").
	Types []string `json:"types,omitempty"`

	// Downloads is the total download count.
	Downloads int64 `json:"downloads,omitempty"`

	// Rating is the average user rating (0-5).
	Rating float64 `json:"rating,omitempty"`

	// Verified indicates if this is a verified publisher app.
	Verified bool `json:"verified,omitempty"`
}

// Config configures the catalog client.
type Config struct {
	// BaseURL is the catalog API base URL (e.g., "https://apps.atrium.dev").
	BaseURL string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// TokenURL, ClientID, ClientSecret and Scopes configure OAuth2
	// client-credentials auth. Auth is skipped when TokenURL or ClientID
	// is empty.
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string

	// MaxRequests is the maximum number of requests allowed in half-open state.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state.
	Interval time.Duration

	// BreakerTimeout is the period of the open state.
	BreakerTimeout time.Duration

	// FailureThreshold is the consecutive-failure count that trips the breaker.
	FailureThreshold uint32
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:          baseURL,
		Timeout:          15 * time.Second,
		MaxRequests:      3,
		Interval:         10 * time.Second,
		BreakerTimeout:   30 * time.Second,
		FailureThreshold: 5,
	}
}

// fetchResult carries a catalog response through the circuit breaker.
// Client errors (4xx) are results, not breaker failures.
type fetchResult struct {
	status int
	body   []byte
}

// Client talks to the remote app catalog.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*fetchResult]
	logger     *slog.Logger
}

// NewClient creates a catalog client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.TokenURL != "" && cfg.ClientID != "" {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		httpClient.Transport = &oauthTransport{
			base:   http.DefaultTransport,
			source: cc.TokenSource(context.Background()),
		}
	}

	settings := gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		breaker:    gobreaker.NewCircuitBreaker[*fetchResult](settings),
		logger:     logger,
	}
}

// Search queries the catalog for apps matching the query string. An empty
// query lists everything the catalog is willing to page out.
func (c *Client) Search(ctx context.Context, query string) ([]Entry, error) {
	searchURL := c.baseURL + "/api/v1/apps"
	if query != "" {
		searchURL += "?q=" + url.QueryEscape(query)
	}

	result, err := c.fetch(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	if result.status != http.StatusOK {
		return nil, fmt.Errorf("catalog search failed: status=%d body=%s", result.status, result.body)
	}

	var response struct {
		Apps []Entry `json:"apps"`
	}
	if err := json.Unmarshal(result.body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse catalog response: %w", err)
	}

	return response.Apps, nil
}

// Show fetches a single catalog entry by app ID.
func (c *Client) Show(ctx context.Context, id string) (*Entry, error) {
	if id == "" {
		return nil, fmt.Errorf("app id is required")
	}

	result, err := c.fetch(ctx, c.baseURL+"/api/v1/apps/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	if result.status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if result.status != http.StatusOK {
		return nil, fmt.Errorf("catalog lookup failed: status=%d body=%s", result.status, result.body)
	}

	var entry Entry
	if err := json.Unmarshal(result.body, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse catalog response: %w", err)
	}

	return &entry, nil
}

// fetch performs a GET through the circuit breaker. Transport errors and
// server errors trip the breaker; 4xx responses come back as results.
func (c *Client) fetch(ctx context.Context, fetchURL string) (*fetchResult, error) {
	result, err := c.breaker.Execute(func() (*fetchResult, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("catalog request failed: status=%d body=%s", resp.StatusCode, body)
		}

		return &fetchResult{status: resp.StatusCode, body: body}, nil
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		c.logger.Warn("catalog circuit open", "url", fetchURL)
		return nil, ErrUnavailable
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// oauthTransport injects bearer tokens from a token source.
type oauthTransport struct {
	base   http.RoundTripper
	source oauth2.TokenSource
}

func (t *oauthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.source.Token()
	if err != nil {
		return nil, err
	}
	authed := req.Clone(req.Context())
	authed.Header.Set("Authorization", "Bearer "+token.AccessToken)
	return t.base.RoundTrip(authed)
}
