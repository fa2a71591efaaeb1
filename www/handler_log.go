package www

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/icodeforyou/powerwindow/database"
)

type LogReader interface {
	GetLogEntries(ctx context.Context, minLvl slog.Level, page, pageSize int) ([]database.LogEntryRow, error)
}

type logEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Attrs     string    `json:"attrs,omitempty"`
}

func NewLogHandler(logger *slog.Logger, db LogReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := intOrDefault(r.URL, "page", 1)
		pageSize := intOrDefault(r.URL, "pageSize", 25)

		minLvl := slog.LevelDebug
		if lvl := r.URL.Query().Get("level"); lvl != "" {
			if err := minLvl.UnmarshalText([]byte(lvl)); err != nil {
				http.Error(w, "invalid level", http.StatusBadRequest)
				return
			}
		}

		rows, err := db.GetLogEntries(r.Context(), minLvl, page, pageSize)
		if err != nil {
			logger.Error("handling log request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		entries := make([]logEntry, 0, len(rows))
		for _, row := range rows {
			entries = append(entries, logEntry{
				Timestamp: row.Timestamp,
				Level:     slog.Level(row.Level).String(),
				Message:   row.Message,
				Attrs:     row.Attrs,
			})
		}

		writeJSON(logger, w, struct {
			Page     int        `json:"page"`
			PageSize int        `json:"pageSize"`
			Entries  []logEntry `json:"entries"`
		}{page, pageSize, entries})
	}
}
