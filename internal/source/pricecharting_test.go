package source_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanworth/scanworth/internal/source"
)

func TestPriceChartingAdapter_Search(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantErr    bool
		errContain string
		wantItems  int
	}{
		{
			name: "guide prices extracted with price-field fallback",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "secret-token", r.URL.Query().Get("t"))
				assert.Equal(t, "earthbound snes", r.URL.Query().Get("q"))

				_, _ = w.Write([]byte(`{
					"status": "success",
					"products": [
						{"id": "6910", "product-name": "EarthBound", "console-name": "Super Nintendo", "loose-price": 18500},
						{"id": "6911", "product-name": "EarthBound [Big Box]", "console-name": "Super Nintendo", "cib-price": 75000},
						{"id": "6912", "product-name": "EarthBound Guide", "console-name": "Super Nintendo"}
					]
				}`))
			},
			wantItems: 2,
		},
		{
			name: "provider error status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"status": "error", "error-message": "invalid token"}`))
			},
			wantErr:    true,
			errContain: "invalid token",
		},
		{
			name: "transport failure",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantErr:    true,
			errContain: "status 502",
		},
		{
			name: "missing products array degrades to empty",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"status": "success"}`))
			},
			wantItems: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			adapter := source.NewPriceChartingAdapter(
				"secret-token",
				source.WithPriceChartingURL(srv.URL),
			)

			res, err := adapter.Search(context.Background(), "earthbound snes")

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContain)
				return
			}

			require.NoError(t, err)
			assert.Len(t, res.Items, tt.wantItems)
			for _, item := range res.Items {
				assert.Equal(t, source.SourcePriceCharting, item.Source)
			}
		})
	}
}

func TestPriceChartingAdapter_Normalization(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"status": "success",
			"products": [
				{"id": "6910", "product-name": "EarthBound", "console-name": "Super Nintendo", "loose-price": 18500}
			]
		}`))
	}))
	defer srv.Close()

	adapter := source.NewPriceChartingAdapter("t", source.WithPriceChartingURL(srv.URL))

	res, err := adapter.Search(context.Background(), "earthbound")
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	item := res.Items[0]
	// Pennies become currency units; the matched price field names the condition.
	assert.InDelta(t, 185.0, item.Price, 1e-9)
	assert.Equal(t, "EarthBound (Super Nintendo)", item.Title)
	assert.Equal(t, "loose", item.Condition)
	assert.Equal(t, "https://www.pricecharting.com/game/6910", item.URL)
}
