package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/doylet/guardrails-ai-sub001/internal/ports"
)

// Console logs structured messages to an io.Writer, either as plain text
// or as one JSON object per line.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	level  ports.Level
	fields []ports.Field
	json   bool
}

// Option configures a Console logger.
type Option func(*Console)

// WithOutput sets the output writer (default os.Stderr).
func WithOutput(w io.Writer) Option {
	return func(c *Console) { c.out = w }
}

// WithLevel sets the minimum emitted level (default LevelInfo).
func WithLevel(level ports.Level) Option {
	return func(c *Console) { c.level = level }
}

// WithJSON switches to one-JSON-object-per-line output.
func WithJSON(enabled bool) Option {
	return func(c *Console) { c.json = enabled }
}

// NewConsole creates a Console logger.
func NewConsole(opts ...Option) *Console {
	c := &Console{out: os.Stderr, level: ports.LevelInfo}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Console) Debug(ctx context.Context, msg string, fields ...ports.Field) {
	c.log(ports.LevelDebug, msg, fields)
}

func (c *Console) Info(ctx context.Context, msg string, fields ...ports.Field) {
	c.log(ports.LevelInfo, msg, fields)
}

func (c *Console) Warn(ctx context.Context, msg string, fields ...ports.Field) {
	c.log(ports.LevelWarn, msg, fields)
}

func (c *Console) Error(ctx context.Context, msg string, fields ...ports.Field) {
	c.log(ports.LevelError, msg, fields)
}

// With returns a new logger that always includes the given fields.
func (c *Console) With(fields ...ports.Field) ports.Logger {
	merged := make([]ports.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &Console{out: c.out, level: c.level, json: c.json, fields: merged}
}

func (c *Console) log(level ports.Level, msg string, fields []ports.Field) {
	if level < c.level {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	all := make([]ports.Field, 0, len(c.fields)+len(fields))
	all = append(all, c.fields...)
	all = append(all, fields...)

	if c.json {
		c.writeJSON(level, msg, all)
		return
	}
	c.writeText(level, msg, all)
}

func (c *Console) writeJSON(level ports.Level, msg string, fields []ports.Field) {
	entry := map[string]any{
		"time":  time.Now().UTC().Format(time.RFC3339),
		"level": level.String(),
		"msg":   msg,
	}
	for _, f := range fields {
		entry[f.Key] = f.Value
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	fmt.Fprintln(c.out, string(data))
}

func (c *Console) writeText(level ports.Level, msg string, fields []ports.Field) {
	line := fmt.Sprintf("%s [%s] %s", time.Now().Format("15:04:05"), level, msg)
	for _, f := range fields {
		line += fmt.Sprintf(" %s=%v", f.Key, f.Value)
	}
	fmt.Fprintln(c.out, line)
}

var _ ports.Logger = (*Console)(nil)
