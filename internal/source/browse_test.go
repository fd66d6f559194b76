package source_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanworth/scanworth/internal/source"
)

// staticTokens is a TokenProvider stub returning a fixed token or error.
type staticTokens struct {
	token string
	err   error
}

func (s *staticTokens) Token(_ context.Context, _ string) (string, error) {
	return s.token, s.err
}

func TestBrowseAdapter_Search(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		term       string
		handler    http.HandlerFunc
		tokenErr   error
		wantErr    bool
		errContain string
		wantItems  int
	}{
		{
			name: "keyword search with results",
			term: "charizard holo",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
				assert.Equal(t, "EBAY_US", r.Header.Get("X-EBAY-C-MARKETPLACE-ID"))
				assert.Equal(t, "charizard holo", r.URL.Query().Get("q"))
				assert.Empty(t, r.URL.Query().Get("gtin"))

				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{
					"itemSummaries": [
						{"title": "Charizard Holo", "price": {"value": "120.00", "currency": "USD"}, "condition": "Used", "itemWebUrl": "https://ebay.com/1"},
						{"title": "Charizard PSA 9", "price": {"value": "310.50", "currency": "USD"}, "itemWebUrl": "https://ebay.com/2"}
					],
					"total": 2
				}`))
			},
			wantItems: 2,
		},
		{
			name: "product code routes to gtin lookup",
			term: "820650850158",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "820650850158", r.URL.Query().Get("gtin"))
				assert.Empty(t, r.URL.Query().Get("q"))

				_, _ = w.Write([]byte(`{"itemSummaries": []}`))
			},
			wantItems: 0,
		},
		{
			name: "unparseable price dropped",
			term: "test",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{
					"itemSummaries": [
						{"title": "good", "price": {"value": "10.00"}},
						{"title": "bad", "price": {"value": "see description"}}
					]
				}`))
			},
			wantItems: 1,
		},
		{
			name: "unknown response shape degrades to empty",
			term: "test",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"somethingElse": {"deep": true}}`))
			},
			wantItems: 0,
		},
		{
			name: "non-success status",
			term: "test",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(`{"errors": [{"message": "upstream broken"}]}`))
			},
			wantErr:    true,
			errContain: "status 502",
		},
		{
			name:       "token provider error",
			term:       "test",
			handler:    func(_ http.ResponseWriter, _ *http.Request) {},
			tokenErr:   errors.New("mint failed"),
			wantErr:    true,
			errContain: "getting auth token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			adapter := source.NewBrowseAdapter(
				&staticTokens{token: "test-token", err: tt.tokenErr},
				source.WithBrowseURL(srv.URL),
			)

			res, err := adapter.Search(context.Background(), tt.term)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContain)
				return
			}

			require.NoError(t, err)
			assert.Len(t, res.Items, tt.wantItems)
			assert.Contains(t, res.Note, "ebay_browse")
			for _, item := range res.Items {
				assert.Equal(t, source.SourceEbayBrowse, item.Source)
				assert.True(t, item.Valid())
			}
		})
	}
}

func TestBrowseAdapter_HTTPErrorType(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	adapter := source.NewBrowseAdapter(
		&staticTokens{token: "t"},
		source.WithBrowseURL(srv.URL),
	)

	_, err := adapter.Search(context.Background(), "test")
	require.Error(t, err)

	var httpErr *source.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
	assert.Equal(t, "boom", httpErr.Body)
}

func TestBrowseAdapter_TransportRateLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	adapter := source.NewBrowseAdapter(
		&staticTokens{token: "t"},
		source.WithBrowseURL(srv.URL),
	)

	_, err := adapter.Search(context.Background(), "test")
	require.Error(t, err)

	var rlErr *source.RateLimitError
	assert.True(t, errors.As(err, &rlErr))
}

func TestBrowseAdapter_DailyQuotaAsRateLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"itemSummaries": []}`))
	}))
	defer srv.Close()

	// Budget of one call: the second must classify as throttling.
	adapter := source.NewBrowseAdapter(
		&staticTokens{token: "t"},
		source.WithBrowseURL(srv.URL),
		source.WithBrowseRateLimiter(source.NewRateLimiter(100, 1, 1)),
	)

	_, err := adapter.Search(context.Background(), "test")
	require.NoError(t, err)

	_, err = adapter.Search(context.Background(), "test")
	require.Error(t, err)

	var rlErr *source.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "local_quota", rlErr.Code)
}
