package monitor

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/icodeforyou/powerwindow/average"
	"github.com/icodeforyou/powerwindow/config"
	"github.com/icodeforyou/powerwindow/ingest"
)

var ErrUnknownSignal = errors.New("unknown signal")

// Sample is the window average reported after one reading.
type Sample struct {
	Signal  string  `json:"signal"`
	Time    uint64  `json:"ts"`
	Value   float64 `json:"value"`
	Average float64 `json:"average"`
	Window  uint64  `json:"window"`
}

// Monitor owns one tracker per signal. Trackers are not safe for
// concurrent use, so every access goes through mu.
type Monitor struct {
	mu       sync.Mutex
	trackers map[string]*average.Tracker
	latest   map[string]Sample
	metrics  *Metrics
	OnSample func(s Sample)
}

// New creates the trackers. metrics may be nil.
func New(signals []config.AppConfigSignal, metrics *Metrics) (*Monitor, error) {
	m := &Monitor{
		trackers: make(map[string]*average.Tracker, len(signals)),
		latest:   make(map[string]Sample, len(signals)),
		metrics:  metrics,
	}
	for _, s := range signals {
		tr, err := average.New(s.Window)
		if err != nil {
			return nil, fmt.Errorf("signal %s: %w", s.Name, err)
		}
		m.trackers[s.Name] = tr
	}
	return m, nil
}

// Observe feeds r to its signal's tracker. Readings that are not newer
// than the previous one are rejected with average.ErrNonIncreasingTimestamp.
func (m *Monitor) Observe(r ingest.Reading) (Sample, error) {
	s, err := m.observe(r)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownSignal):
			m.metrics.Dropped(r.Signal, DropUnknown)
		case errors.Is(err, average.ErrNonIncreasingTimestamp):
			m.metrics.Dropped(r.Signal, DropOutOfOrder)
		}
		return Sample{}, err
	}

	m.metrics.observe(s)
	if m.OnSample != nil {
		m.OnSample(s)
	}
	return s, nil
}

func (m *Monitor) observe(r ingest.Reading) (Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tr, ok := m.trackers[r.Signal]
	if !ok {
		return Sample{}, fmt.Errorf("%w: %s", ErrUnknownSignal, r.Signal)
	}

	avg, err := tr.TryAdd(r.Time, r.Value)
	if err != nil {
		return Sample{}, fmt.Errorf("signal %s: %w", r.Signal, err)
	}

	s := Sample{
		Signal:  r.Signal,
		Time:    r.Time,
		Value:   r.Value,
		Average: avg,
		Window:  tr.WindowSize(),
	}
	m.latest[r.Signal] = s
	return s, nil
}

// Current returns the latest sample of every signal that has one,
// ordered by signal name.
func (m *Monitor) Current() []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()

	samples := make([]Sample, 0, len(m.latest))
	for _, s := range m.latest {
		samples = append(samples, s)
	}
	slices.SortFunc(samples, func(a, b Sample) int { return strings.Compare(a.Signal, b.Signal) })
	return samples
}

// Healthy reports whether every signal has produced at least one sample.
func (m *Monitor) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.latest) == len(m.trackers)
}
