package monitor

import (
	"errors"
	"testing"

	"github.com/icodeforyou/powerwindow/average"
	"github.com/icodeforyou/powerwindow/config"
	"github.com/icodeforyou/powerwindow/ingest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSignals = []config.AppConfigSignal{
	{Name: "solar", Topic: "t/solar", Window: 5},
	{Name: "grid", Topic: "t/grid", Window: 2},
}

func TestMonitorObserve(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	m, err := New(testSignals, metrics)
	require.NoError(t, err)

	var hooked []Sample
	m.OnSample = func(s Sample) { hooked = append(hooked, s) }

	assert.False(t, m.Healthy())

	for _, r := range []ingest.Reading{
		{Signal: "solar", Time: 0, Value: 1},
		{Signal: "solar", Time: 3, Value: 2},
		{Signal: "grid", Time: 10, Value: 4},
	} {
		_, err := m.Observe(r)
		require.NoError(t, err)
	}

	s, err := m.Observe(ingest.Reading{Signal: "solar", Time: 5, Value: 3})
	require.NoError(t, err)
	assert.InDelta(t, 1.8, s.Average, 1e-9)
	assert.Equal(t, uint64(5), s.Window)

	assert.True(t, m.Healthy())
	assert.Len(t, hooked, 4)

	current := m.Current()
	require.Len(t, current, 2)
	assert.Equal(t, "grid", current[0].Signal)
	assert.Equal(t, "solar", current[1].Signal)
	assert.InDelta(t, 1.8, current[1].Average, 1e-9)

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.readings.WithLabelValues("solar")))
	assert.InDelta(t, 1.8, testutil.ToFloat64(metrics.average.WithLabelValues("solar")), 1e-9)
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.latched.WithLabelValues("solar")))
}

func TestMonitorRejects(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	m, err := New(testSignals, metrics)
	require.NoError(t, err)

	_, err = m.Observe(ingest.Reading{Signal: "grid", Time: 10, Value: 1})
	require.NoError(t, err)

	_, err = m.Observe(ingest.Reading{Signal: "grid", Time: 10, Value: 2})
	assert.True(t, errors.Is(err, average.ErrNonIncreasingTimestamp))

	_, err = m.Observe(ingest.Reading{Signal: "wind", Time: 1, Value: 2})
	assert.True(t, errors.Is(err, ErrUnknownSignal))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.dropped.WithLabelValues("grid", DropOutOfOrder)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.dropped.WithLabelValues("wind", DropUnknown)))

	// The rejected reading must not replace the latest sample.
	current := m.Current()
	require.Len(t, current, 1)
	assert.Equal(t, 1.0, current[0].Value)
}

func TestMonitorZeroWindow(t *testing.T) {
	_, err := New([]config.AppConfigSignal{{Name: "bad", Topic: "t", Window: 0}}, nil)
	assert.True(t, errors.Is(err, average.ErrInvalidWindowSize))
}

func TestMonitorWithoutMetrics(t *testing.T) {
	m, err := New(testSignals, nil)
	require.NoError(t, err)
	_, err = m.Observe(ingest.Reading{Signal: "grid", Time: 1, Value: 1})
	assert.NoError(t, err)
	_, err = m.Observe(ingest.Reading{Signal: "grid", Time: 1, Value: 1})
	assert.Error(t, err)
}
