package utils

import "go.uber.org/zap"

// ServiceName tags every log entry.
const ServiceName = "lectern"

// NewLogger returns a zap logger tagged with the service name. When debug is
// true, uses development config (human-readable, debug level); otherwise
// uses production config (JSON, info level). opts are applied when building.
func NewLogger(debug bool, opts ...zap.Option) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment(opts...)
	} else {
		logger, err = zap.NewProduction(opts...)
	}
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", ServiceName)), nil
}
