package migration

import (
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

type gooseAdapter struct {
	logger zerolog.Logger
}

// NewGooseAdapter routes goose's log output through zerolog.
func NewGooseAdapter(logger zerolog.Logger) goose.Logger {
	return &gooseAdapter{logger: logger.With().Str("component", "goose").Logger()}
}

func (a *gooseAdapter) Fatalf(format string, v ...any) {
	a.logger.Fatal().Msgf(format, v...)
}

func (a *gooseAdapter) Printf(format string, v ...any) {
	a.logger.Info().Msgf(format, v...)
}
