package task

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/icodeforyou/powerwindow/config"
	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	retentionDays int
	maxEntries    int
	failSamples   bool
}

func (s *fakeStore) PurgeSamples(_ context.Context, retentionDays int) error {
	s.retentionDays = retentionDays
	if s.failSamples {
		return errors.New("disk full")
	}
	return nil
}

func (s *fakeStore) PurgeLog(_ context.Context, maxLogEntries int) error {
	s.maxEntries = maxLogEntries
	return nil
}

func TestMaintenanceTask(t *testing.T) {
	days := 7
	cnfg := &config.AppConfig{Database: config.AppConfigDatabase{DataRetentionDays: &days}}

	store := &fakeStore{failSamples: true}
	NewMaintenanceTask(slog.Default(), store, cnfg)()

	assert.Equal(t, 7, store.retentionDays)
	assert.Equal(t, 10000, store.maxEntries)
}

func TestTasksRun(t *testing.T) {
	bad := "not a cron spec"
	tasks := NewTasks(&fakeStore{}, &config.AppConfig{Maintenance: config.AppConfigMaintenance{RunAt: &bad}})
	assert.Error(t, tasks.Run())

	tasks = NewTasks(&fakeStore{}, &config.AppConfig{})
	assert.NoError(t, tasks.Run())
	<-tasks.Stop().Done()
}
