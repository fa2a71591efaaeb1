package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
api:
  port: 8080
database:
  path: /tmp/powerwindow.db
mqtt:
  host: broker.local
  port: 1883
signals:
  - name: grid_power
    topic: sensors/grid/power
    window: 300
  - name: solar_power
    topic: sensors/solar/power
    window: 60000
    time_unit: ms
logging:
  console_level: debug
  db_attrs_format: text
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("API_PORT", "40000")

	c, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	t.Run("Api", func(t *testing.T) {
		assert.Equal(t, 40000, c.Api.Port)
	})

	t.Run("Signals", func(t *testing.T) {
		require.Len(t, c.Signals, 2)
		assert.Equal(t, "grid_power", c.Signals[0].Name)
		assert.Equal(t, uint64(300), c.Signals[0].Window)
		assert.Equal(t, TimeUnitSecond, c.Signals[0].GetTimeUnit())
		assert.Equal(t, TimeUnitMillisecond, c.Signals[1].GetTimeUnit())
	})

	t.Run("Defaults", func(t *testing.T) {
		assert.Equal(t, 30, c.Database.GetDataRetentionDays())
		assert.Equal(t, "powerwindow", c.Mqtt.GetClientId())
		assert.Equal(t, 60, c.Mqtt.GetInactivityTimeout())
		assert.Equal(t, "30 2 * * *", c.Maintenance.GetRunAt())
		assert.Equal(t, 10000, c.Logging.GetDbMaxEntries())
		assert.Equal(t, slog.LevelInfo, c.Logging.GetDbLevel())
	})

	t.Run("Logging", func(t *testing.T) {
		assert.Equal(t, slog.LevelDebug, c.Logging.GetConsoleLevel())
		assert.EqualValues(t, "TEXT", c.Logging.GetDbAttrsFormat())
	})
}

func TestValidate(t *testing.T) {
	ms := "ms"
	minutes := "min"

	tests := []struct {
		name    string
		api     int
		mqtt    int
		signals []AppConfigSignal
		wantErr bool
	}{
		{"no signals", 0, 0, nil, true},
		{"ok", 0, 0, []AppConfigSignal{{Name: "a", Topic: "t/a", Window: 1}}, false},
		{"ms unit", 0, 0, []AppConfigSignal{{Name: "a", Topic: "t/a", Window: 1, TimeUnit: &ms}}, false},
		{"missing name", 0, 0, []AppConfigSignal{{Topic: "t/a", Window: 1}}, true},
		{"missing topic", 0, 0, []AppConfigSignal{{Name: "a", Window: 1}}, true},
		{"zero window", 0, 0, []AppConfigSignal{{Name: "a", Topic: "t/a"}}, true},
		{"bad unit", 0, 0, []AppConfigSignal{{Name: "a", Topic: "t/a", Window: 1, TimeUnit: &minutes}}, true},
		{"high ports", 65000, 65535, []AppConfigSignal{{Name: "a", Topic: "t/a", Window: 1}}, false},
		{"api port too large", 70000, 0, []AppConfigSignal{{Name: "a", Topic: "t/a", Window: 1}}, true},
		{"negative mqtt port", 0, -1, []AppConfigSignal{{Name: "a", Topic: "t/a", Window: 1}}, true},
		{"duplicate", 0, 0, []AppConfigSignal{
			{Name: "a", Topic: "t/a", Window: 1},
			{Name: "a", Topic: "t/b", Window: 1},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := AppConfig{
				Api:     AppConfigApi{Port: tt.api},
				Mqtt:    AppConfigMqtt{Port: tt.mqtt},
				Signals: tt.signals,
			}
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
