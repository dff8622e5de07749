// Package loggertest provides loggers for tests.
package loggertest

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// New returns a logger that writes through tb.Log.
func New(tb testing.TB) *zap.SugaredLogger {
	return zaptest.NewLogger(tb).Sugar()
}
