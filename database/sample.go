package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// SampleRow is one reported window average.
type SampleRow struct {
	Signal     string
	Time       uint64 // reading timestamp in the signal's own time unit
	Value      float64
	Average    float64
	RecordedAt time.Time
}

func (d *Database) SaveSample(ctx context.Context, row SampleRow) error {
	// ts is kept as text, uint64 does not fit an sqlite integer
	_, err := d.write.ExecContext(ctx, `
		INSERT INTO sample (signal, ts, value, average, recorded_at)
		VALUES (?, ?, ?, ?, ?)`,
		row.Signal,
		strconv.FormatUint(row.Time, 10),
		row.Value,
		row.Average,
		row.RecordedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("saving sample for %s: %w", row.Signal, err)
	}
	return nil
}

// GetSamples returns up to limit samples of signal recorded at or after
// since, oldest first.
func (d *Database) GetSamples(ctx context.Context, signal string, since time.Time, limit int) ([]SampleRow, error) {
	if limit < 1 {
		limit = 500
	}

	rows, err := d.read.QueryContext(ctx, `
		SELECT signal, ts, value, average, recorded_at
		FROM (
			SELECT id, signal, ts, value, average, recorded_at
			FROM sample
			WHERE signal = ? AND recorded_at >= ?
			ORDER BY id DESC
			LIMIT ?
		)
		ORDER BY id ASC`,
		signal, since.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("fetching samples for %s: %w", signal, err)
	}
	defer rows.Close()

	samples, err := scanSamples(rows)
	if err != nil {
		return nil, fmt.Errorf("scanning samples for %s: %w", signal, err)
	}
	return samples, nil
}

func scanSamples(rows *sql.Rows) ([]SampleRow, error) {
	var samples []SampleRow
	for rows.Next() {
		var s SampleRow
		var ts string
		var recordedAt int64
		if err := rows.Scan(&s.Signal, &ts, &s.Value, &s.Average, &recordedAt); err != nil {
			return nil, err
		}
		t, err := strconv.ParseUint(ts, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing sample timestamp %q: %w", ts, err)
		}
		s.Time = t
		s.RecordedAt = time.UnixMilli(recordedAt)
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func (d *Database) PurgeSamples(ctx context.Context, retentionDays int) error {
	d.logger.Debug("purging samples", slog.Int("retentionDays", retentionDays))
	before := time.Now().Add(-24 * time.Hour * time.Duration(retentionDays))
	res, err := d.write.ExecContext(ctx, `DELETE FROM sample WHERE recorded_at < ?`, before.UnixMilli())
	if err != nil {
		return fmt.Errorf("error when purging sample: %w", err)
	}
	d.logRowsAffected(res, "sample")
	return nil
}

func (d *Database) logRowsAffected(res sql.Result, table string) {
	rows, err := res.RowsAffected()
	if err != nil {
		d.logger.Warn("can't get rows affected by purge", slog.String("table", table), slog.Any("error", err))
		return
	}
	d.logger.Debug(fmt.Sprintf("purged %d rows from %s", rows, table))
}
