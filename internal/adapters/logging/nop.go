// Package logging implements ports.Logger: a console logger for normal
// operation and a no-op logger for tests and disabled output.
package logging

import (
	"context"

	"github.com/doylet/guardrails-ai-sub001/internal/ports"
)

// Nop discards every message. Useful as a default and in tests.
type Nop struct{}

// NewNop creates a no-op logger.
func NewNop() *Nop {
	return &Nop{}
}

func (Nop) Debug(context.Context, string, ...ports.Field) {}
func (Nop) Info(context.Context, string, ...ports.Field)  {}
func (Nop) Warn(context.Context, string, ...ports.Field)  {}
func (Nop) Error(context.Context, string, ...ports.Field) {}

// With returns itself; a no-op logger has no fields to attach.
func (n Nop) With(...ports.Field) ports.Logger {
	return n
}

var _ ports.Logger = Nop{}
