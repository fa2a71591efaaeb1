package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/icodeforyou/powerwindow/config"
)

type MaintenanceStore interface {
	PurgeSamples(ctx context.Context, retentionDays int) error
	PurgeLog(ctx context.Context, maxLogEntries int) error
}

func NewMaintenanceTask(logger *slog.Logger, db MaintenanceStore, cnfg *config.AppConfig) func() {
	return func() {
		logger.Debug("running maintenance task...")

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()

		if err := db.PurgeLog(ctx, cnfg.Logging.GetDbMaxEntries()); err != nil {
			logger.Error("log maintenance error", slog.Any("error", err))
		}

		if err := db.PurgeSamples(ctx, cnfg.Database.GetDataRetentionDays()); err != nil {
			logger.Error("sample maintenance error", slog.Any("error", err))
		}

		logger.Info("maintenance task done")
	}
}
