package main

import (
	"github.com/grafana/pyroscope-go"
	"github.com/rs/zerolog"
)

func startProfiler(serverAddress string, logger zerolog.Logger) (*pyroscope.Profiler, error) {
	return pyroscope.Start(pyroscope.Config{
		ApplicationName: "explore-proxy",
		ServerAddress:   serverAddress,
		Logger:          profilerLogger{logger: logger.With().Str("component", "pyroscope").Logger()},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
}

// profilerLogger routes pyroscope logs through zerolog.
type profilerLogger struct {
	logger zerolog.Logger
}

func (l profilerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info().Msgf(format, args...)
}

func (l profilerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l profilerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}
