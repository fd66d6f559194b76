package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/scanworth/scanworth/internal/metrics"
	domain "github.com/scanworth/scanworth/pkg/types"
)

const (
	// SourceEbayBrowse tags items produced by the Browse adapter.
	SourceEbayBrowse = "ebay_browse"

	defaultBrowseURL   = "https://api.ebay.com/buy/browse/v1/item_summary/search"
	defaultBrowseScope = "https://api.ebay.com/oauth/api_scope"
	defaultMarketplace = "EBAY_US"
	defaultLimit       = 50
)

// Candidate paths per field, tried in order. The Browse API has shifted
// field names across versions and compatibility headers, so the adapter
// tolerates every shape it has been seen to produce.
var (
	browseArrayPaths     = []string{"itemSummaries", "item_summaries", "searchResult.itemSummaries"}
	browseTitlePaths     = []string{"title", "itemTitle"}
	browsePricePaths     = []string{"price.value", "currentBidPrice.value", "price.convertedFromValue", "marketingPrice.discountedPrice.value"}
	browseConditionPaths = []string{"condition", "conditionDescription"}
	browseURLPaths       = []string{"itemWebUrl", "itemHref"}
)

// BrowseAdapter queries the eBay Browse API for current listings.
type BrowseAdapter struct {
	tokens      TokenProvider
	scope       string
	browseURL   string
	marketplace string
	client      *http.Client
	rateLimiter *RateLimiter
	limit       int
}

// BrowseOption configures the BrowseAdapter.
type BrowseOption func(*BrowseAdapter)

// WithBrowseURL overrides the default Browse API endpoint.
func WithBrowseURL(u string) BrowseOption {
	return func(a *BrowseAdapter) {
		a.browseURL = u
	}
}

// WithBrowseScope overrides the OAuth scope requested for Browse calls.
func WithBrowseScope(s string) BrowseOption {
	return func(a *BrowseAdapter) {
		a.scope = s
	}
}

// WithMarketplace overrides the default marketplace header.
func WithMarketplace(m string) BrowseOption {
	return func(a *BrowseAdapter) {
		a.marketplace = m
	}
}

// WithBrowseHTTPClient overrides the default HTTP client.
func WithBrowseHTTPClient(hc *http.Client) BrowseOption {
	return func(a *BrowseAdapter) {
		a.client = hc
	}
}

// WithBrowseRateLimiter injects an outbound rate limiter. When set, every
// Search() call goes through Wait() first.
func WithBrowseRateLimiter(r *RateLimiter) BrowseOption {
	return func(a *BrowseAdapter) {
		a.rateLimiter = r
	}
}

// WithBrowseLimit caps results per query.
func WithBrowseLimit(n int) BrowseOption {
	return func(a *BrowseAdapter) {
		a.limit = n
	}
}

// NewBrowseAdapter creates a current-listings adapter over the eBay Browse API.
func NewBrowseAdapter(tokens TokenProvider, opts ...BrowseOption) *BrowseAdapter {
	a := &BrowseAdapter{
		tokens:      tokens,
		scope:       defaultBrowseScope,
		browseURL:   defaultBrowseURL,
		marketplace: defaultMarketplace,
		client:      &http.Client{Timeout: 30 * time.Second},
		limit:       defaultLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID implements Adapter.
func (*BrowseAdapter) ID() string {
	return SourceEbayBrowse
}

// Search implements Adapter by querying the Browse API. A numeric product
// code becomes an exact gtin lookup; anything else is a keyword query.
func (a *BrowseAdapter) Search(ctx context.Context, term string) (*Result, error) {
	metrics.SourceCallsTotal.WithLabelValues(SourceEbayBrowse).Inc()

	if a.rateLimiter != nil {
		if err := a.rateLimiter.Wait(ctx); err != nil {
			if errors.Is(err, ErrDailyQuotaExceeded) {
				metrics.SourceRateLimitedTotal.WithLabelValues(SourceEbayBrowse).Inc()
				return nil, &RateLimitError{
					Source:  SourceEbayBrowse,
					Code:    "local_quota",
					Message: err.Error(),
				}
			}
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	token, err := a.tokens.Token(ctx, a.scope)
	if err != nil {
		metrics.SourceErrorsTotal.WithLabelValues(SourceEbayBrowse).Inc()
		return nil, fmt.Errorf("getting auth token: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, a.buildSearchURL(term), http.NoBody,
	)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", a.marketplace)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		metrics.SourceErrorsTotal.WithLabelValues(SourceEbayBrowse).Inc()
		return nil, fmt.Errorf("executing search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.SourceErrorsTotal.WithLabelValues(SourceEbayBrowse).Inc()
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		metrics.SourceRateLimitedTotal.WithLabelValues(SourceEbayBrowse).Inc()
		return nil, &RateLimitError{
			Source:  SourceEbayBrowse,
			Code:    strconv.Itoa(resp.StatusCode),
			Message: truncateBody(body),
		}
	}
	if resp.StatusCode != http.StatusOK {
		metrics.SourceErrorsTotal.WithLabelValues(SourceEbayBrowse).Inc()
		return nil, &HTTPError{
			Source: SourceEbayBrowse,
			Status: resp.StatusCode,
			Body:   truncateBody(body),
		}
	}

	items := extractBrowseItems(body)
	metrics.SourceItemsReturned.WithLabelValues(SourceEbayBrowse).Observe(float64(len(items)))

	return &Result{
		Items: items,
		Note:  fmt.Sprintf("%s: %d items", SourceEbayBrowse, len(items)),
	}, nil
}

func (a *BrowseAdapter) buildSearchURL(term string) string {
	params := url.Values{}
	if domain.ClassifyTerm(term) == domain.TermProductCode {
		params.Set("gtin", term)
	} else {
		params.Set("q", term)
	}
	params.Set("limit", strconv.Itoa(a.limit))

	return a.browseURL + "?" + params.Encode()
}

func extractBrowseItems(body []byte) []domain.Item {
	arr := firstArray(body, browseArrayPaths)
	if !arr.Exists() {
		return []domain.Item{}
	}

	records := arr.Array()
	items := make([]domain.Item, 0, len(records))
	for _, rec := range records {
		price, _, ok := firstFinite(rec, browsePricePaths)
		if !ok {
			// No parseable price anywhere: drop the record, never emit NaN.
			continue
		}
		items = append(items, domain.Item{
			Title:     firstString(rec, browseTitlePaths),
			Price:     price,
			Condition: firstString(rec, browseConditionPaths),
			URL:       firstString(rec, browseURLPaths),
			Source:    SourceEbayBrowse,
		})
	}
	return items
}
