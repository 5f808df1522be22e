// Package report defines the pluggable reporting sink the display
// manager emits diagnostics through. Reporting is best effort and
// never changes the outcome of an operation.
package report

import "go.uber.org/zap"

// Reporter receives formatted error and warning messages.
type Reporter interface {
	Errorf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

type zapReporter struct{}

func (zapReporter) Errorf(format string, args ...interface{}) {
	zap.S().Errorf(format, args...)
}

func (zapReporter) Warnf(format string, args ...interface{}) {
	zap.S().Warnf(format, args...)
}

// Default returns a reporter backed by zap's global sugared logger.
func Default() Reporter {
	return zapReporter{}
}
