// Package logging carries the zerolog logger through sitecfg.
//
// A reconciliation stores its logger in the context and narrows it as it
// goes, so every line names the site, feature or configuration it concerns:
//
//	ctx = logging.WithSite(ctx, "file:///opt/app/")
//	logging.FromContext(ctx).Info().Msg("Configured new site")
package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// defaultLogger is used when a context carries no logger.
var defaultLogger = NewLoggerFromConfig(&Config{
	Level:  os.Getenv("LOG_LEVEL"),
	Format: os.Getenv("LOG_FORMAT"),
})

// Default returns the process-wide logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}
