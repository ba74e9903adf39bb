package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustRegisterIdempotent(t *testing.T) {
	assert.NotPanics(t, MustRegister)
	assert.NotPanics(t, MustRegister)

	Tests.WithLabelValues("ttest_pooled").Inc()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["abtest_tests_total"])
}
