// Package logging builds the zap logger used across PitchCheck and exposes
// runtime level control for operators.
package logging

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the level, encoding and preset of the logger.
type Config struct {
	Level string
	// Format is "json" or "console".
	Format string
	// Environment "production" selects zap's production preset; anything
	// else gets the development one.
	Environment string
}

// DefaultConfig is used when New is given nil.
func DefaultConfig() *Config {
	return &Config{Level: "info", Format: "json", Environment: "development"}
}

// Logger is a zap.Logger whose level can be changed while the server runs.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// New builds a Logger writing to stderr.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zc := zap.NewDevelopmentConfig()
	if cfg.Environment == "production" {
		zc = zap.NewProductionConfig()
		// request logs are already one line per request
		zc.Sampling = nil
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.Encoding = "json"
	if cfg.Format == "console" {
		zc.Encoding = "console"
	}
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	z, err := zc.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &Logger{Logger: z, level: zc.Level}, nil
}

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
func ParseLevel(level string) (zapcore.Level, error) {
	s := strings.ToLower(strings.TrimSpace(level))
	if s == "warning" {
		s = "warn"
	}
	switch s {
	case "debug", "info", "warn", "error":
		return zapcore.ParseLevel(s)
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown level: %q", level)
}

// SetLevel changes the level at runtime. An invalid level leaves it as is.
func (l *Logger) SetLevel(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	prev := l.level.Level()
	l.level.SetLevel(lvl)
	l.Info("log level changed", zap.Stringer("from", prev), zap.Stringer("to", lvl))
	return nil
}

// GetLevel returns the current level name.
func (l *Logger) GetLevel() string {
	return l.level.String()
}

// ServeHTTP reports the level on GET and changes it on PUT or POST with
// ?level=debug.
func (l *Logger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reply := func(code int, key, value string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{key: value})
	}

	switch r.Method {
	case http.MethodGet:
	case http.MethodPut, http.MethodPost:
		lvl := r.URL.Query().Get("level")
		if lvl == "" {
			reply(http.StatusBadRequest, "error", "level parameter required")
			return
		}
		if err := l.SetLevel(lvl); err != nil {
			reply(http.StatusBadRequest, "error", err.Error())
			return
		}
	default:
		reply(http.StatusMethodNotAllowed, "error", "method not allowed")
		return
	}
	reply(http.StatusOK, "level", l.GetLevel())
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	switch {
	case email == "":
		return ""
	case at <= 0:
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

// Email is a zap field carrying a masked e-mail address.
func Email(key, email string) zap.Field {
	return zap.String(key, MaskEmail(email))
}
