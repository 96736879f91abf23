// Package logging configures the global zerolog logger shared by the GraphQL
// client, the explore adapters and the proxy.
//
// Every package logs through a child of the global logger carrying a
// "component" field (graphql-client, explore, pagination, explore-proxy).
// Further fields in use across the module:
//
//	backend      GraphQL backend name (analytics, assets, indexer)
//	adapter      explore adapter such as top_pools
//	operation    GraphQL operation name
//	error_class  client, server, rate_limit, network, graphql, decode
//	source       pagination source name (v3, v2)
//	remaining    requests left in the rate limit window
//
// Debug covers cache hits, skipped adapters and pagination bookkeeping. Info
// covers lifecycle events. Warn is for partial GraphQL responses, malformed
// rows, retries and throttling. Error is for failed queries and blocked
// requests.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a level name as accepted from flags and LOG_LEVEL.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config selects level, format and destination of the global logger.
type Config struct {
	Level LogLevel

	// Pretty switches from JSON lines to zerolog's console format.
	Pretty bool

	// Output defaults to os.Stderr.
	Output io.Writer

	// Service, when set, is stamped on every entry.
	Service string
}

// DefaultConfig logs JSON at info level to stderr.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Output: os.Stderr}
}

// zerologLevels maps accepted level names, aliases included.
var zerologLevels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

// ParseLevel validates a level name such as a LOG_LEVEL value. Empty means info.
func ParseLevel(s string) (LogLevel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return LevelInfo, nil
	}
	level, ok := zerologLevels[name]
	if !ok {
		return "", fmt.Errorf("unknown log level %q", s)
	}
	return LogLevel(level.String()), nil
}

// zerologLevel resolves a LogLevel, falling back to info.
func zerologLevel(level LogLevel) zerolog.Level {
	if l, ok := zerologLevels[strings.ToLower(string(level))]; ok {
		return l
	}
	return zerolog.InfoLevel
}

// Setup replaces the global logger and level, and returns the new logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(zerologLevel(cfg.Level))

	var out io.Writer = os.Stderr
	if cfg.Output != nil {
		out = cfg.Output
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	builder := zerolog.New(out).With().Timestamp()
	if cfg.Service != "" {
		builder = builder.Str("service", cfg.Service)
	}

	log.Logger = builder.Logger()
	return log.Logger
}

// NewLogger derives a component logger from the global one.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
