package www

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/icodeforyou/powerwindow/database"
	"github.com/icodeforyou/powerwindow/monitor"
)

type SampleReader interface {
	GetSamples(ctx context.Context, signal string, since time.Time, limit int) ([]database.SampleRow, error)
}

type CurrentSamples interface {
	Current() []monitor.Sample
	Healthy() bool
}

type sampleRow struct {
	Time       uint64    `json:"ts"`
	Value      float64   `json:"value"`
	Average    float64   `json:"average"`
	RecordedAt time.Time `json:"recordedAt"`
}

func NewAveragesHandler(logger *slog.Logger, source CurrentSamples) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(logger, w, source.Current())
	}
}

// NewHealthHandler answers 503 until every signal has reported a sample.
func NewHealthHandler(logger *slog.Logger, source CurrentSamples) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		healthy := source.Healthy()
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		writeJSONStatus(logger, w, status, struct {
			Healthy bool `json:"healthy"`
		}{healthy})
	}
}

// NewSamplesHandler serves stored samples. The hours parameter is capped
// at maxHours, samples older than that are purged anyway.
func NewSamplesHandler(logger *slog.Logger, db SampleReader, maxHours int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		signal := r.URL.Query().Get("signal")
		if signal == "" {
			http.Error(w, "missing signal", http.StatusBadRequest)
			return
		}
		hours := min(intOrDefault(r.URL, "hours", 1), max(maxHours, 1))
		since := time.Now().Add(-time.Duration(hours) * time.Hour)

		rows, err := db.GetSamples(r.Context(), signal, since, intOrDefault(r.URL, "limit", 500))
		if err != nil {
			logger.Error("handling samples request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		samples := make([]sampleRow, 0, len(rows))
		for _, row := range rows {
			samples = append(samples, sampleRow{
				Time:       row.Time,
				Value:      row.Value,
				Average:    row.Average,
				RecordedAt: row.RecordedAt,
			})
		}
		writeJSON(logger, w, samples)
	}
}
