// Package auth mints and caches short-lived bearer tokens per authorization
// scope using the OAuth2 client credentials flow.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/scanworth/scanworth/internal/metrics"
)

// refreshBuffer is the safety margin before expiry at which a cached token
// is treated as stale.
const refreshBuffer = 60 * time.Second

// ErrNoCredentials is returned when the manager was constructed without the
// client id/secret required for a credential exchange.
var ErrNoCredentials = errors.New("auth: client credentials not configured")

// ExchangeError reports a rejected or unusable credential exchange.
type ExchangeError struct {
	Status int
	Reason string
}

func (e *ExchangeError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("auth: token exchange failed (status %d): %s", e.Status, e.Reason)
	}
	return "auth: token exchange failed: " + e.Reason
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// Manager exchanges client credentials for bearer tokens and caches them
// keyed by scope. The cache is owned by the instance, never global, so tests
// can inject a fake clock without touching shared state. Thread-safe via
// mutex; concurrent callers for an uncached scope serialize on the mint.
type Manager struct {
	clientID     string
	clientSecret string
	tokenURL     string
	client       *http.Client
	nowFunc      func() time.Time

	mu    sync.Mutex
	cache map[string]cachedToken
}

// Option configures the Manager.
type Option func(*Manager)

// WithTokenURL overrides the token endpoint.
func WithTokenURL(u string) Option {
	return func(m *Manager) {
		m.tokenURL = u
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) {
		m.client = c
	}
}

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) Option {
	return func(m *Manager) {
		m.nowFunc = f
	}
}

// NewManager creates a token manager for the given client credentials.
func NewManager(clientID, clientSecret, tokenURL string, opts ...Option) *Manager {
	m := &Manager{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenURL,
		client:       &http.Client{Timeout: 10 * time.Second},
		nowFunc:      time.Now,
		cache:        make(map[string]cachedToken),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Token returns a valid bearer token for the scope, minting a fresh one when
// the cached token is absent or within the safety margin of expiry.
func (m *Manager) Token(ctx context.Context, scope string) (string, error) {
	if m.clientID == "" || m.clientSecret == "" {
		return "", ErrNoCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if tok, ok := m.cache[scope]; ok && m.nowFunc().Before(tok.expiresAt.Add(-refreshBuffer)) {
		return tok.value, nil
	}

	return m.mintLocked(ctx, scope)
}

func (m *Manager) mintLocked(ctx context.Context, scope string) (string, error) {
	form := url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {scope},
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		m.tokenURL,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	creds := base64.StdEncoding.EncodeToString(
		[]byte(m.clientID + ":" + m.clientSecret),
	)
	req.Header.Set("Authorization", "Basic "+creds)

	resp, err := m.client.Do(req)
	if err != nil {
		metrics.TokenMintFailuresTotal.Inc()
		return "", fmt.Errorf("executing token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.TokenMintFailuresTotal.Inc()
		return "", fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.TokenMintFailuresTotal.Inc()
		var errResp tokenErrorResponse
		_ = json.Unmarshal(body, &errResp) //nolint:errcheck // best-effort error parsing
		reason := errResp.Error
		if errResp.ErrorDescription != "" {
			reason += " - " + errResp.ErrorDescription
		}
		return "", &ExchangeError{Status: resp.StatusCode, Reason: reason}
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		metrics.TokenMintFailuresTotal.Inc()
		return "", fmt.Errorf("parsing token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		metrics.TokenMintFailuresTotal.Inc()
		return "", &ExchangeError{Status: resp.StatusCode, Reason: "empty access token"}
	}

	expiresIn := tokenResp.ExpiresIn
	if expiresIn < 0 {
		expiresIn = 0
	}

	m.cache[scope] = cachedToken{
		value:     tokenResp.AccessToken,
		expiresAt: m.nowFunc().Add(time.Duration(expiresIn) * time.Second),
	}
	metrics.TokenMintsTotal.Inc()

	return tokenResp.AccessToken, nil
}
