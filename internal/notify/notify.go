// Package notify delivers user-facing toast messages.
package notify

import (
	"go.uber.org/zap"

	"github.com/xenking/checkout-flow/internal/domain/checkout"
)

// Log writes toasts to the structured log. It stands in for a UI toast
// surface in headless runs.
type Log struct {
	lg *zap.Logger
}

var _ checkout.Notifier = (*Log)(nil)

// NewLog creates a Log notifier.
func NewLog(lg *zap.Logger) *Log {
	return &Log{lg: lg}
}

// Info reports a success or progress toast.
func (l *Log) Info(msg string) {
	l.lg.Info("toast", zap.String("level", "info"), zap.String("message", msg))
}

// Error reports a failure toast.
func (l *Log) Error(msg string) {
	l.lg.Warn("toast", zap.String("level", "error"), zap.String("message", msg))
}
