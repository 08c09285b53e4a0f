// Package log provides logging output for the simulator. It is a thin
// wrapper over log/slog with a handler that formats records as labelled
// multi-line blocks, which reads better next to memory dumps than a single
// packed line.
package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"
	"time"
)

var (
	// DefaultLogger returns the process-wide logger. Components call it at
	// startup and cache the result; the default does not change at runtime.
	DefaultLogger = func() *Logger { return NewFormattedLogger(os.Stderr) }

	// SetDefault overrides the default slog logger.
	SetDefault = slog.SetDefault

	// LogLevel holds the level; it can be changed at runtime.
	LogLevel = &slog.LevelVar{}
)

// NewFormattedLogger returns a logger that writes formatted records to out.
func NewFormattedLogger(out io.Writer) *Logger {
	return slog.New(NewHandler(out))
}

// Handler implements slog.Handler to produce the formatted output.
type Handler struct {
	mut *sync.Mutex // Synchronizes writes to out.
	out io.Writer

	opts  *slog.HandlerOptions
	group string
	attrs []Attr
}

// Options for log handlers.
var Options = &slog.HandlerOptions{
	AddSource: true,
	Level:     LogLevel,
}

// NewHandler creates a Handler writing to out.
func NewHandler(out io.Writer) *Handler {
	return &Handler{
		out:  out,
		mut:  new(sync.Mutex),
		opts: Options,
	}
}

// Enabled returns true if the record's level is at or above the current
// logging level.
func (h *Handler) Enabled(_ context.Context, level Level) bool {
	return level >= h.opts.Level.Level()
}

// Handle formats and writes a record to the handler's writer.
func (h *Handler) Handle(_ context.Context, rec slog.Record) error {
	out := bytes.Buffer{}

	if !rec.Time.IsZero() {
		fmt.Fprintf(&out, "%10s : %s\n", "TIMESTAMP", rec.Time.Format(time.RFC3339))
	}

	fmt.Fprintf(&out, "%10s : %s\n", "LEVEL", rec.Level.String())

	if h.opts.AddSource && rec.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{rec.PC})
		f, _ := frames.Next()
		_, file := path.Split(f.File)
		fmt.Fprintf(&out, "%10s : %s:%d\n", "SOURCE", file, f.Line)
	}

	fmt.Fprintf(&out, "%10s : %s\n", "MESSAGE", rec.Message)

	for _, a := range h.attrs {
		if err := h.appendAttr(&out, a, false); err != nil {
			return err
		}
	}

	var attrErr error

	rec.Attrs(func(attr Attr) bool {
		attrErr = h.appendAttr(&out, attr, false)
		return attrErr == nil
	})

	if attrErr != nil {
		return attrErr
	}

	fmt.Fprintln(&out)

	h.mut.Lock()
	defer h.mut.Unlock()

	_, err := h.out.Write(out.Bytes())

	return err
}

// WithGroup returns a handler that records a group name. The formatted
// output does not print the name: later attributes are written unqualified.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	attrs := make([]Attr, len(h.attrs))
	copy(attrs, h.attrs)

	return &Handler{
		mut:   h.mut,
		out:   h.out,
		opts:  h.opts,
		attrs: attrs,
		group: name,
	}
}

// WithAttrs returns a handler that prepends attrs to every record.
func (h *Handler) WithAttrs(attrs []Attr) slog.Handler {
	as := make([]Attr, 0, len(h.attrs)+len(attrs))
	as = append(as, h.attrs...)
	as = append(as, attrs...)

	return &Handler{
		mut:   h.mut,
		out:   h.out,
		opts:  h.opts,
		attrs: as,
	}
}

func (h *Handler) appendAttr(out io.Writer, attr slog.Attr, grouped bool) error {
	attr.Value = attr.Value.Resolve()
	key, value := strings.ToUpper(attr.Key), attr.Value

	switch {
	case attr.Equal(Attr{}):
		return nil

	case value.Kind() != slog.KindGroup:
		if grouped {
			fmt.Fprint(out, "  ")
		}

		_, err := fmt.Fprintf(out, "%10s : %v\n", key, value.Any())

		return err

	case key != "":
		if _, err := fmt.Fprintf(out, "%10s :\n", key); err != nil {
			return err
		}

		grouped = true

		fallthrough

	default:
		for _, a := range value.Group() {
			if err := h.appendAttr(out, a, grouped); err != nil {
				return err
			}
		}
	}

	return nil
}

// Type and function aliases so other packages only import this one.
type (
	Attr   = slog.Attr
	Level  = slog.Level
	Logger = slog.Logger
	Value  = slog.Value
)

var (
	String      = slog.String
	Int64       = slog.Int64
	StringValue = slog.StringValue
	Group       = slog.Group
	GroupValue  = slog.GroupValue
	Any         = slog.Any
	AnyValue    = slog.AnyValue
)

const (
	Debug = slog.LevelDebug
	Info  = slog.LevelInfo
	Warn  = slog.LevelWarn
	Error = slog.LevelError
)
