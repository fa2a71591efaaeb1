package logging

import (
	"log/slog"
)

// LevelFromString parses "DEBUG", "INFO", "WARN" or "ERROR" (any case,
// optionally with an offset like "INFO+2"). Nil or unknown strings give INFO.
func LevelFromString(str *string) slog.Level {
	var lvl slog.Level
	if str == nil || lvl.UnmarshalText([]byte(*str)) != nil {
		return slog.LevelInfo
	}
	return lvl
}
