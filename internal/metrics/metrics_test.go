package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistered(t *testing.T) {
	t.Parallel()

	// Verify all metrics are non-nil (registered via promauto on package init).
	assert.NotNil(t, HTTPRequestDuration)
	assert.NotNil(t, HTTPRequestsTotal)
	assert.NotNil(t, EstimatesTotal)
	assert.NotNil(t, EstimateDuration)
	assert.NotNil(t, CascadesTotal)
	assert.NotNil(t, SourceCallsTotal)
	assert.NotNil(t, SourceErrorsTotal)
	assert.NotNil(t, SourceRateLimitedTotal)
	assert.NotNil(t, SourceItemsReturned)
	assert.NotNil(t, TokenMintsTotal)
	assert.NotNil(t, TokenMintFailuresTotal)
	assert.NotNil(t, CacheHitsTotal)
	assert.NotNil(t, CacheMissesTotal)
	assert.NotNil(t, HealthzUp)
	assert.NotNil(t, ReadyzUp)
}
