package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/scanworth/scanworth/internal/metrics"
	domain "github.com/scanworth/scanworth/pkg/types"
)

const (
	// SourceEbayFinding tags sold-comp items produced by the Finding adapter.
	SourceEbayFinding = "ebay_finding"

	defaultFindingURL = "https://svcs.ebay.com/services/search/FindingService/v1"

	findingOperation = "findCompletedItems"
	findingVersion   = "1.13.0"

	// rateLimitErrorID is the Finding API error id for an exhausted call
	// quota, delivered inside an HTTP 200 payload.
	rateLimitErrorID = "10001"
)

// The Finding API wraps every field in single-element arrays and has two
// known envelope nestings depending on the routing tier.
var (
	findingArrayPaths = []string{
		"findCompletedItemsResponse.0.searchResult.0.item",
		"searchResult.0.item",
		"searchResult.item",
	}
	findingTitlePaths     = []string{"title.0", "title"}
	findingPricePaths     = []string{"sellingStatus.0.currentPrice.0.__value__", "sellingStatus.0.convertedCurrentPrice.0.__value__", "sellingStatus.currentPrice.__value__"}
	findingConditionPaths = []string{"condition.0.conditionDisplayName.0", "condition.conditionDisplayName"}
	findingURLPaths       = []string{"viewItemURL.0", "viewItemURL"}

	findingAckPaths     = []string{"findCompletedItemsResponse.0.ack.0", "ack.0", "ack"}
	findingErrorIDPaths = []string{
		"findCompletedItemsResponse.0.errorMessage.0.error.0.errorId.0",
		"errorMessage.0.error.0.errorId.0",
		"errorMessage.error.0.errorId",
	}
	findingErrorMsgPaths = []string{
		"findCompletedItemsResponse.0.errorMessage.0.error.0.message.0",
		"errorMessage.0.error.0.message.0",
		"errorMessage.error.0.message",
	}
)

// FindingAdapter queries the eBay Finding API for sold comparables
// (completed listings that ended with a sale).
type FindingAdapter struct {
	appID      string
	findingURL string
	client     *http.Client
	limit      int
}

// FindingOption configures the FindingAdapter.
type FindingOption func(*FindingAdapter)

// WithFindingURL overrides the default Finding API endpoint.
func WithFindingURL(u string) FindingOption {
	return func(a *FindingAdapter) {
		a.findingURL = u
	}
}

// WithFindingHTTPClient overrides the default HTTP client.
func WithFindingHTTPClient(hc *http.Client) FindingOption {
	return func(a *FindingAdapter) {
		a.client = hc
	}
}

// WithFindingLimit caps entries per page.
func WithFindingLimit(n int) FindingOption {
	return func(a *FindingAdapter) {
		a.limit = n
	}
}

// NewFindingAdapter creates a sold-comps adapter over the eBay Finding API.
// The Finding API authenticates with an application id header, not OAuth.
func NewFindingAdapter(appID string, opts ...FindingOption) *FindingAdapter {
	a := &FindingAdapter{
		appID:      appID,
		findingURL: defaultFindingURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		limit:      defaultLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID implements Adapter.
func (*FindingAdapter) ID() string {
	return SourceEbayFinding
}

// Search implements Adapter by querying findCompletedItems with the
// sold-items-only filter. Product codes and keywords both travel in the
// keywords parameter; the Finding API resolves numeric codes itself.
func (a *FindingAdapter) Search(ctx context.Context, term string) (*Result, error) {
	metrics.SourceCallsTotal.WithLabelValues(SourceEbayFinding).Inc()

	params := url.Values{}
	params.Set("OPERATION-NAME", findingOperation)
	params.Set("SERVICE-VERSION", findingVersion)
	params.Set("RESPONSE-DATA-FORMAT", "JSON")
	params.Set("keywords", term)
	params.Set("itemFilter(0).name", "SoldItemsOnly")
	params.Set("itemFilter(0).value", "true")
	params.Set("paginationInput.entriesPerPage", strconv.Itoa(a.limit))

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, a.findingURL+"?"+params.Encode(), http.NoBody,
	)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	req.Header.Set("X-EBAY-SOA-SECURITY-APPNAME", a.appID)

	resp, err := a.client.Do(req)
	if err != nil {
		metrics.SourceErrorsTotal.WithLabelValues(SourceEbayFinding).Inc()
		return nil, fmt.Errorf("executing search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.SourceErrorsTotal.WithLabelValues(SourceEbayFinding).Inc()
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.SourceErrorsTotal.WithLabelValues(SourceEbayFinding).Inc()
		return nil, &HTTPError{
			Source: SourceEbayFinding,
			Status: resp.StatusCode,
			Body:   truncateBody(body),
		}
	}

	if err := checkFindingAck(body); err != nil {
		if _, ok := err.(*RateLimitError); ok { //nolint:errorlint // freshly constructed, never wrapped
			metrics.SourceRateLimitedTotal.WithLabelValues(SourceEbayFinding).Inc()
		} else {
			metrics.SourceErrorsTotal.WithLabelValues(SourceEbayFinding).Inc()
		}
		return nil, err
	}

	items := extractFindingItems(body)
	metrics.SourceItemsReturned.WithLabelValues(SourceEbayFinding).Observe(float64(len(items)))

	return &Result{
		Items: items,
		Note:  fmt.Sprintf("%s: %d sold comps", SourceEbayFinding, len(items)),
	}, nil
}

// checkFindingAck inspects the payload-level acknowledgment. The Finding API
// reports quota exhaustion with HTTP 200 and an error id in the envelope, so
// throttling has to be classified here rather than from the status code.
func checkFindingAck(body []byte) error {
	root := gjson.ParseBytes(body)

	ack := firstString(root, findingAckPaths)
	if ack == "" || ack == "Success" || ack == "Warning" {
		return nil
	}

	errID := firstString(root, findingErrorIDPaths)
	errMsg := firstString(root, findingErrorMsgPaths)

	if errID == rateLimitErrorID {
		return &RateLimitError{
			Source:  SourceEbayFinding,
			Code:    errID,
			Message: errMsg,
		}
	}

	return fmt.Errorf("%s: provider reported %s (error %s): %s",
		SourceEbayFinding, ack, errID, errMsg)
}

func extractFindingItems(body []byte) []domain.Item {
	arr := firstArray(body, findingArrayPaths)
	if !arr.Exists() {
		return []domain.Item{}
	}

	records := arr.Array()
	items := make([]domain.Item, 0, len(records))
	for _, rec := range records {
		// Defensive: the sold-items filter should guarantee this, but skip
		// anything explicitly marked as ended without a sale.
		state := firstString(rec, []string{"sellingStatus.0.sellingState.0", "sellingStatus.sellingState"})
		if state != "" && state != "EndedWithSales" {
			continue
		}

		price, _, ok := firstFinite(rec, findingPricePaths)
		if !ok {
			continue
		}
		items = append(items, domain.Item{
			Title:     firstString(rec, findingTitlePaths),
			Price:     price,
			Condition: firstString(rec, findingConditionPaths),
			URL:       firstString(rec, findingURLPaths),
			Source:    SourceEbayFinding,
		})
	}
	return items
}
