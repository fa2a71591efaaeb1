package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/icodeforyou/powerwindow/logging"
	"github.com/spf13/viper"
)

type TimeUnit string

const (
	TimeUnitSecond      TimeUnit = "s"
	TimeUnitMillisecond TimeUnit = "ms"
)

type AppConfigApi struct {
	Address string
	Port    int
}

type AppConfigDatabase struct {
	Path string
	// How many days samples should be stored in database before they get purged
	DataRetentionDays *int `mapstructure:"data_retention_days"`
}

func (d AppConfigDatabase) GetDataRetentionDays() int {
	if d.DataRetentionDays == nil {
		return 30
	}
	return *d.DataRetentionDays
}

type AppConfigMqtt struct {
	Host     string
	Port     int
	Username string
	Password string
	ClientId *string `mapstructure:"client_id"`
	// Seconds without any incoming message before the link is reported as dead
	InactivityTimeout *int `mapstructure:"inactivity_timeout"`
}

func (m AppConfigMqtt) GetClientId() string {
	if m.ClientId == nil || *m.ClientId == "" {
		return "powerwindow"
	}
	return *m.ClientId
}

func (m AppConfigMqtt) GetInactivityTimeout() int {
	if m.InactivityTimeout == nil {
		return 60
	}
	return *m.InactivityTimeout
}

// AppConfigSignal is one MQTT topic carrying readings of a single quantity,
// averaged over its own window.
type AppConfigSignal struct {
	Name  string
	Topic string
	// Window size in time units
	Window uint64
	// Unit of the reading timestamps: "s" or "ms", default: "s"
	TimeUnit *string `mapstructure:"time_unit"`
}

func (s AppConfigSignal) GetTimeUnit() TimeUnit {
	if s.TimeUnit == nil {
		return TimeUnitSecond
	}
	return TimeUnit(strings.ToLower(*s.TimeUnit))
}

type AppConfigMaintenance struct {
	// Cron spec, default: "30 2 * * *"
	RunAt *string `mapstructure:"run_at"`
}

func (m AppConfigMaintenance) GetRunAt() string {
	if m.RunAt == nil || *m.RunAt == "" {
		return "30 2 * * *"
	}
	return *m.RunAt
}

type AppConfigLogging struct {
	// Min log level for database : "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	DbLevel *string `mapstructure:"db_level"`
	// Log attributes format: "TEXT", "JSON", default: "JSON"
	DbAttrsFormat *string `mapstructure:"db_attrs_format"`
	// Maximum number of log entries in the database, default: 10000
	DbMaxEntries *int `mapstructure:"db_max_entries"`
	// Min log level for console: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	ConsoleLevel *string `mapstructure:"console_level"`
}

func (l AppConfigLogging) GetDbLevel() slog.Level {
	return logging.LevelFromString(l.DbLevel)
}

func (l AppConfigLogging) GetDbAttrsFormat() logging.LogAttrFormat {
	if l.DbAttrsFormat != nil && strings.EqualFold(*l.DbAttrsFormat, "text") {
		return logging.LogAttrFormatText
	}
	return logging.LogAttrFormatJSON
}

func (l AppConfigLogging) GetDbMaxEntries() int {
	if l.DbMaxEntries == nil {
		return 10000
	}
	return *l.DbMaxEntries
}

func (l AppConfigLogging) GetConsoleLevel() slog.Level {
	return logging.LevelFromString(l.ConsoleLevel)
}

type AppConfig struct {
	Api         AppConfigApi
	Database    AppConfigDatabase
	Mqtt        AppConfigMqtt
	Signals     []AppConfigSignal
	Maintenance AppConfigMaintenance `mapstructure:"maintenance"`
	Logging     AppConfigLogging     `mapstructure:"logging"`
}

func validPort(port int) bool {
	return port >= 0 && port <= 65535
}

func (c *AppConfig) Validate() error {
	if !validPort(c.Api.Port) {
		return fmt.Errorf("api: port %d out of range", c.Api.Port)
	}
	if !validPort(c.Mqtt.Port) {
		return fmt.Errorf("mqtt: port %d out of range", c.Mqtt.Port)
	}
	if len(c.Signals) == 0 {
		return errors.New("no signals configured")
	}
	names := make(map[string]bool, len(c.Signals))
	for i, s := range c.Signals {
		if s.Name == "" {
			return fmt.Errorf("signal #%d: missing name", i+1)
		}
		if names[s.Name] {
			return fmt.Errorf("signal %q: duplicate name", s.Name)
		}
		names[s.Name] = true
		if s.Topic == "" {
			return fmt.Errorf("signal %q: missing topic", s.Name)
		}
		if s.Window == 0 {
			return fmt.Errorf("signal %q: window must be greater than zero", s.Name)
		}
		if u := s.GetTimeUnit(); u != TimeUnitSecond && u != TimeUnitMillisecond {
			return fmt.Errorf("signal %q: unknown time unit %q", s.Name, u)
		}
	}
	return nil
}

var mu sync.Mutex

func Load(path string) (*AppConfig, error) {
	mu.Lock()
	defer mu.Unlock()

	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.AddConfigPath("config")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	return unmarshal()
}

func unmarshal() (*AppConfig, error) {
	var c AppConfig
	if err := viper.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}

// Watch calls onChange with the reloaded config every time the file that
// Load read is written. Invalid edits are logged and skipped.
func Watch(logger *slog.Logger, onChange func(*AppConfig)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		c, err := unmarshal()
		mu.Unlock()
		if err != nil {
			logger.Warn("ignoring config change", slog.String("file", e.Name), slog.Any("error", err))
			return
		}
		logger.Info("config changed", slog.String("file", e.Name), slog.String("op", e.Op.String()))
		onChange(c)
	})
	viper.WatchConfig()
}
