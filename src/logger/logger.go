package logger

import (
	"fmt"
	"io"
	"os"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, structured, etc.)
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// KitLogger writes logfmt lines through go-kit log, filtered by Level.
type KitLogger struct {
	base kitlog.Logger
}

// NewKitLogger returns a KitLogger writing to w. Lines carry a UTC
// timestamp and a level key.
func NewKitLogger(w io.Writer, lvl Level) *KitLogger {
	base := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	base = kitlog.With(base, "ts", kitlog.DefaultTimestampUTC)
	return &KitLogger{base: level.NewFilter(base, lvl.option())}
}

// NewStderrLogger is the logger used by the CLI.
func NewStderrLogger(lvl Level) *KitLogger {
	return NewKitLogger(os.Stderr, lvl)
}

// With returns a logger that adds keyvals to every line.
func (k *KitLogger) With(keyvals ...interface{}) *KitLogger {
	return &KitLogger{base: kitlog.With(k.base, keyvals...)}
}

func (k *KitLogger) Info(msg string, args ...interface{}) {
	_ = level.Info(k.base).Log("msg", fmt.Sprintf(msg, args...))
}

func (k *KitLogger) Error(msg string, args ...interface{}) {
	_ = level.Error(k.base).Log("msg", fmt.Sprintf(msg, args...))
}

func (k *KitLogger) Debug(msg string, args ...interface{}) {
	_ = level.Debug(k.base).Log("msg", fmt.Sprintf(msg, args...))
}

// SilentLogger discards all log messages.
// Used by the MCP server, where stdout carries the protocol, and in tests.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}
