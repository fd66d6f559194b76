package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/scanworth/scanworth/internal/metrics"
	domain "github.com/scanworth/scanworth/pkg/types"
)

const (
	// SourcePriceCharting tags items produced by the price-guide adapter.
	SourcePriceCharting = "pricecharting"

	defaultPriceChartingURL = "https://www.pricecharting.com/api/products"
)

var priceChartingArrayPaths = []string{"products", "results"}

// priceChartingPricePaths are probed in order; prices are integer pennies.
// The matching field also names the condition of the quoted price.
var (
	priceChartingPricePaths      = []string{"loose-price", "cib-price", "new-price", "graded-price"}
	priceChartingPriceConditions = []string{"loose", "complete in box", "new", "graded"}
)

// PriceChartingAdapter queries the PriceCharting product API. It serves as
// the secondary current-listing source: a price guide rather than a live
// marketplace, but it normalizes into the same canonical shape.
type PriceChartingAdapter struct {
	token  string
	apiURL string
	client *http.Client
}

// PriceChartingOption configures the PriceChartingAdapter.
type PriceChartingOption func(*PriceChartingAdapter)

// WithPriceChartingURL overrides the default API endpoint.
func WithPriceChartingURL(u string) PriceChartingOption {
	return func(a *PriceChartingAdapter) {
		a.apiURL = u
	}
}

// WithPriceChartingHTTPClient overrides the default HTTP client.
func WithPriceChartingHTTPClient(hc *http.Client) PriceChartingOption {
	return func(a *PriceChartingAdapter) {
		a.client = hc
	}
}

// NewPriceChartingAdapter creates a price-guide adapter. Authentication is a
// token query parameter.
func NewPriceChartingAdapter(token string, opts ...PriceChartingOption) *PriceChartingAdapter {
	a := &PriceChartingAdapter{
		token:  token,
		apiURL: defaultPriceChartingURL,
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID implements Adapter.
func (*PriceChartingAdapter) ID() string {
	return SourcePriceCharting
}

// Search implements Adapter. Product codes and keywords both go through the
// q parameter; PriceCharting matches UPCs in keyword position.
func (a *PriceChartingAdapter) Search(ctx context.Context, term string) (*Result, error) {
	metrics.SourceCallsTotal.WithLabelValues(SourcePriceCharting).Inc()

	params := url.Values{}
	params.Set("t", a.token)
	params.Set("q", term)

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, a.apiURL+"?"+params.Encode(), http.NoBody,
	)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		metrics.SourceErrorsTotal.WithLabelValues(SourcePriceCharting).Inc()
		return nil, fmt.Errorf("executing search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.SourceErrorsTotal.WithLabelValues(SourcePriceCharting).Inc()
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.SourceErrorsTotal.WithLabelValues(SourcePriceCharting).Inc()
		return nil, &HTTPError{
			Source: SourcePriceCharting,
			Status: resp.StatusCode,
			Body:   truncateBody(body),
		}
	}

	root := gjson.ParseBytes(body)
	if status := root.Get("status").String(); status != "" && status != "success" {
		metrics.SourceErrorsTotal.WithLabelValues(SourcePriceCharting).Inc()
		return nil, fmt.Errorf("%s: provider reported %s: %s",
			SourcePriceCharting, status, root.Get("error-message").String())
	}

	items := extractPriceChartingItems(body)
	metrics.SourceItemsReturned.WithLabelValues(SourcePriceCharting).Observe(float64(len(items)))

	return &Result{
		Items: items,
		Note:  fmt.Sprintf("%s: %d guide prices", SourcePriceCharting, len(items)),
	}, nil
}

func extractPriceChartingItems(body []byte) []domain.Item {
	arr := firstArray(body, priceChartingArrayPaths)
	if !arr.Exists() {
		return []domain.Item{}
	}

	records := arr.Array()
	items := make([]domain.Item, 0, len(records))
	for _, rec := range records {
		pennies, idx, ok := firstFinite(rec, priceChartingPricePaths)
		if !ok {
			continue
		}

		title := firstString(rec, []string{"product-name", "name"})
		if console := firstString(rec, []string{"console-name"}); console != "" {
			title = title + " (" + console + ")"
		}

		var itemURL string
		if id := firstString(rec, []string{"id"}); id != "" {
			itemURL = "https://www.pricecharting.com/game/" + id
		}

		items = append(items, domain.Item{
			Title:     title,
			Price:     pennies / 100,
			Condition: priceChartingPriceConditions[idx],
			URL:       itemURL,
			Source:    SourcePriceCharting,
		})
	}
	return items
}
