// Package logging owns the bridge's single log stream.
//
// Structured records from every component and raw guest output (print,
// XPLuaLog.write) share one sink, in the order they were written.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TimeLayout is the timestamp layout of every record.
const TimeLayout = "2006-01-02T15:04:05.000"

// Options configures Open.
type Options struct {
	// Path is the log file.
	Path string

	// Preserve appends to Path instead of truncating it.
	Preserve bool

	// Level is the minimum level written.
	Level zapcore.Level

	// Fallback receives output when Path cannot be opened. Defaults to
	// os.Stdout.
	Fallback io.Writer

	// Name names the root logger.
	Name string
}

// Stream is the log sink. It is safe for concurrent use.
type Stream struct {
	mu       sync.Mutex
	w        io.Writer
	file     *os.File
	path     string
	fellBack bool
	logger   *zap.Logger
}

// Open opens the log stream. If the file cannot be opened the stream
// writes to the fallback writer instead and records a warning; Open
// itself never fails.
func Open(opts Options) *Stream {
	if opts.Fallback == nil {
		opts.Fallback = os.Stdout
	}

	s := &Stream{path: opts.Path}
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if opts.Preserve {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(opts.Path, flags, 0o644)
	if err != nil {
		s.w = opts.Fallback
		s.fellBack = true
	} else {
		s.w = f
		s.file = f
	}

	s.logger = zap.New(zapcore.NewCore(encoder(), s, opts.Level))
	if opts.Name != "" {
		s.logger = s.logger.Named(opts.Name)
	}
	if err != nil {
		s.logger.Warn("couldn't open log file, writing to fallback",
			zap.String("path", opts.Path), zap.Error(err))
	}
	return s
}

func encoder() zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.TimeEncoderOfLayout(TimeLayout),
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	}
	return zapcore.NewConsoleEncoder(cfg)
}

// Logger returns the root logger writing to the stream.
func (s *Stream) Logger() *zap.Logger {
	return s.logger
}

// Path returns the configured log file path.
func (s *Stream) Path() string {
	return s.path
}

// FellBack reports whether the stream writes to the fallback writer.
func (s *Stream) FellBack() bool {
	return s.fellBack
}

// Write writes p verbatim. Guest output goes through here.
func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Sync flushes the log file.
func (s *Stream) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	return s.file.Sync()
}

// Close flushes and closes the log file. The fallback writer is left open.
func (s *Stream) Close() error {
	_ = s.logger.Sync()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.w = io.Discard
	if err != nil {
		return fmt.Errorf("closing log %s: %w", s.path, err)
	}
	return nil
}
