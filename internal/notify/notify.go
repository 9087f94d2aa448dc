// Package notify defines the toast and confirmation collaborators the core
// reports through, with logging, recording and fixed-answer
// implementations.
package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Severity of a toast.
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Toaster shows fire-and-forget feedback. Implementations must not block.
type Toaster interface {
	Toast(message string, severity Severity, duration time.Duration)
}

// ConfirmOptions describe a destructive action awaiting consent.
type ConfirmOptions struct {
	Title        string
	Message      string
	ConfirmLabel string
	CancelLabel  string
	Severity     Severity
}

// Confirmer asks for consent. A false result without error means the user
// declined.
type Confirmer interface {
	Confirm(ctx context.Context, opts ConfirmOptions) (bool, error)
}

// LogToaster writes toasts to a logger.
type LogToaster struct {
	Logger *slog.Logger
}

// NewLogToaster returns a toaster logging to logger, or discarding when
// logger is nil.
func NewLogToaster(logger *slog.Logger) *LogToaster {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogToaster{Logger: logger}
}

func (t *LogToaster) Toast(message string, severity Severity, duration time.Duration) {
	level := slog.LevelInfo
	switch severity {
	case Warning:
		level = slog.LevelWarn
	case Error:
		level = slog.LevelError
	}
	attrs := []any{"severity", string(severity)}
	if duration > 0 {
		attrs = append(attrs, "duration", duration)
	}
	t.Logger.Log(context.Background(), level, message, attrs...)
}

// Toast is one recorded toast.
type Toast struct {
	Message  string
	Severity Severity
	Duration time.Duration
}

// Recorder keeps every toast it receives and optionally forwards them.
type Recorder struct {
	Next Toaster

	mu     sync.Mutex
	toasts []Toast
}

func (r *Recorder) Toast(message string, severity Severity, duration time.Duration) {
	r.mu.Lock()
	r.toasts = append(r.toasts, Toast{Message: message, Severity: severity, Duration: duration})
	r.mu.Unlock()
	if r.Next != nil {
		r.Next.Toast(message, severity, duration)
	}
}

// Toasts returns a copy of the recorded toasts.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}

// Last returns the newest toast.
func (r *Recorder) Last() (Toast, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return Toast{}, false
	}
	return r.toasts[len(r.toasts)-1], true
}

// Reset forgets recorded toasts.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.toasts = nil
	r.mu.Unlock()
}

// Static answers every confirmation with the same value and remembers what
// it was asked.
type Static struct {
	Answer bool

	mu    sync.Mutex
	asked []ConfirmOptions
}

func (s *Static) Confirm(ctx context.Context, opts ConfirmOptions) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	s.asked = append(s.asked, opts)
	s.mu.Unlock()
	return s.Answer, nil
}

// Asked returns the prompts seen so far.
func (s *Static) Asked() []ConfirmOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ConfirmOptions(nil), s.asked...)
}

// Discard drops toasts.
type Discard struct{}

func (Discard) Toast(string, Severity, time.Duration) {}
