package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustRegister(t *testing.T) {
	c := MustRegisterCounter("test", "events_total", "Test events")
	c.Inc()
	c.Inc()
	assert.Equal(t, 2.0, testutil.ToFloat64(c))

	cv := MustRegisterCounterVec("test", "signals_total", "Test signals", "signal")
	cv.WithLabelValues("reset").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(cv.WithLabelValues("reset")))

	g := MustRegisterGauge("test", "level", "Test level")
	g.Set(42)
	assert.Equal(t, 42.0, testutil.ToFloat64(g))

	gv := MustRegisterGaugeVec("test", "duty", "Test duty", "output")
	gv.WithLabelValues("0").Set(0.5)
	assert.Equal(t, 0.5, testutil.ToFloat64(gv.WithLabelValues("0")))

	// names are namespaced
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["cnc_test_events_total"])
	assert.True(t, names["cnc_test_duty"])

	assert.Panics(t, func() { MustRegisterCounter("test", "events_total", "duplicate") })
}
