package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey struct{}

// WithLogger adds a logger to the context. A nil logger stores the default.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the context's logger, or the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(contextKey{}).(*zerolog.Logger); ok && logger != nil {
			return logger
		}
	}
	return Default()
}

// WithSite tags the context's logger with a site location.
func WithSite(ctx context.Context, location string) context.Context {
	return withField(ctx, "site", location)
}

// WithFeature tags the context's logger with a feature identity.
func WithFeature(ctx context.Context, feature string) context.Context {
	return withField(ctx, "feature", feature)
}

// WithConfiguration tags the context's logger with a configuration ID.
func WithConfiguration(ctx context.Context, id string) context.Context {
	return withField(ctx, "configuration_id", id)
}

// WithOperation tags the context's logger with the running operation.
func WithOperation(ctx context.Context, operation string) context.Context {
	return withField(ctx, "operation", operation)
}

func withField(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, &logger)
}
