// Package logging sets up the global zerolog logger for the binaries.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const EnvLogLevel = "UNIDEN_LOG_LEVEL"

type Config struct {
	App   string
	Level string
	// Optional rotating JSON log file next to the console output.
	File string
}

// Configure installs a console logger (plus a rotating file when configured) as the global logger.
func Configure(cfg Config) zerolog.Logger {
	var out io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	if cfg.File != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
	}

	logger := zerolog.New(out).
		Level(ResolveLevel(cfg.Level)).
		With().Timestamp().Str("app", cfg.App).
		Logger()
	log.Logger = logger
	return logger
}

// ResolveLevel picks the level from UNIDEN_LOG_LEVEL, then the configured name, then info.
func ResolveLevel(configured string) zerolog.Level {
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		return lvl
	}
	if lvl, ok := parseLevel(configured); ok {
		return lvl
	}
	return zerolog.InfoLevel
}

// Names zerolog does not know itself.
var levelAliases = map[string]zerolog.Level{
	"warning": zerolog.WarnLevel,
	"off":     zerolog.Disabled,
	"none":    zerolog.Disabled,
}

func parseLevel(raw string) (zerolog.Level, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return zerolog.InfoLevel, false
	}
	if lvl, ok := levelAliases[name]; ok {
		return lvl, true
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel, false
	}
	return lvl, true
}
