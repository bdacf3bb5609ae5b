package testdoubles

import (
	"context"
	"log/slog"
	"os"
	"slices"
	"sync"
)

// LogHandlerSpy is a slog.Handler implementation that captures log records for testing.
type LogHandlerSpy struct {
	records     []slog.Record
	mu          sync.Mutex
	logToStdout bool
}

// NewLogHandlerSpy creates a new LogHandlerSpy.
// Switchable to log to stdout, which helps when debugging a test.
func NewLogHandlerSpy(logToStdout bool) *LogHandlerSpy {
	return &LogHandlerSpy{logToStdout: logToStdout}
}

// Handle implements slog.Handler interface.
func (s *LogHandlerSpy) Handle(ctx context.Context, record slog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)

	if s.logToStdout {
		_ = slog.NewJSONHandler(os.Stdout, nil).Handle(ctx, record)
	}

	return nil
}

// Enabled implements slog.Handler interface.
func (s *LogHandlerSpy) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

// WithAttrs implements slog.Handler interface.
func (s *LogHandlerSpy) WithAttrs(_ []slog.Attr) slog.Handler {
	return s
}

// WithGroup implements slog.Handler interface.
func (s *LogHandlerSpy) WithGroup(_ string) slog.Handler {
	return s
}

// GetRecords returns a copy of all captured log records.
func (s *LogHandlerSpy) GetRecords() []slog.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.records)
}

// SpyLogRecordMatcher provides a fluent interface for checking log record attributes.
type SpyLogRecordMatcher struct {
	record *slog.Record
	found  bool
}

// HasLog starts a fluent chain to check the first log record with the level and message.
func (s *LogHandlerSpy) HasLog(level slog.Level, message string) *SpyLogRecordMatcher {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.records {
		if record.Level == level && record.Message == message {
			return &SpyLogRecordMatcher{record: &record, found: true}
		}
	}

	return &SpyLogRecordMatcher{}
}

// HasDebugLogWithMessage starts a fluent chain to check a debug-level log record.
func (s *LogHandlerSpy) HasDebugLogWithMessage(message string) *SpyLogRecordMatcher {
	return s.HasLog(slog.LevelDebug, message)
}

// HasInfoLogWithMessage starts a fluent chain to check an info-level log record.
func (s *LogHandlerSpy) HasInfoLogWithMessage(message string) *SpyLogRecordMatcher {
	return s.HasLog(slog.LevelInfo, message)
}

// HasErrorLogWithMessage starts a fluent chain to check an error-level log record.
func (s *LogHandlerSpy) HasErrorLogWithMessage(message string) *SpyLogRecordMatcher {
	return s.HasLog(slog.LevelError, message)
}

// WithAttr checks if the log record has the attribute and its value renders as value.
func (m *SpyLogRecordMatcher) WithAttr(key string, value string) *SpyLogRecordMatcher {
	if !m.found {
		return m
	}

	hasAttr := false
	m.record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key && attr.Value.String() == value {
			hasAttr = true
			return false
		}

		return true
	})

	m.found = hasAttr

	return m
}

// WithDurationMS checks if the log record has a duration_ms attribute with a non-negative value.
func (m *SpyLogRecordMatcher) WithDurationMS() *SpyLogRecordMatcher {
	if !m.found {
		return m
	}

	hasDurationMS := false
	m.record.Attrs(func(attr slog.Attr) bool {
		if attr.Key != "duration_ms" {
			return true
		}

		switch attr.Value.Kind() {
		case slog.KindInt64:
			hasDurationMS = attr.Value.Int64() >= 0
		case slog.KindFloat64:
			hasDurationMS = attr.Value.Float64() >= 0
		default:
			// other kinds are not durations
		}

		return false
	})

	m.found = hasDurationMS

	return m
}

// Assert returns true if all conditions in the fluent chain were met.
func (m *SpyLogRecordMatcher) Assert() bool {
	return m.found
}
