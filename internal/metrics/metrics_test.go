package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.DocumentWrites.WithLabelValues(ResultOK).Inc()
	m.DocumentWrites.WithLabelValues(ResultBadRequest).Add(2)
	m.RateLimitRejects.Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.DocumentWrites.WithLabelValues(ResultOK)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.DocumentWrites.WithLabelValues(ResultBadRequest)))

	expected := `
# HELP biolink_rate_limit_rejections_total Requests rejected by the login rate limiter.
# TYPE biolink_rate_limit_rejections_total counter
biolink_rate_limit_rejections_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "biolink_rate_limit_rejections_total"))
}

func TestNewWithoutRegisterer(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil).PageRenders.WithLabelValues(ResultOK).Inc()
		New(nil).PageRenders.WithLabelValues(ResultOK).Inc()
	})
}
