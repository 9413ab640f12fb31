package testutil

import (
	"sync"

	"chronovault/internal/chrono"
)

// RecordingNotifier keeps every notification it receives.
type RecordingNotifier struct {
	mu    sync.Mutex
	items []chrono.Notification
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) Notify(note chrono.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, note)
}

// All returns the notifications in arrival order.
func (n *RecordingNotifier) All() []chrono.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]chrono.Notification(nil), n.items...)
}

// Last returns the most recent notification, or the zero value.
func (n *RecordingNotifier) Last() chrono.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.items) == 0 {
		return chrono.Notification{}
	}
	return n.items[len(n.items)-1]
}

// Levels returns the level of each notification in order.
func (n *RecordingNotifier) Levels() []chrono.NotificationLevel {
	n.mu.Lock()
	defer n.mu.Unlock()
	levels := make([]chrono.NotificationLevel, len(n.items))
	for i, item := range n.items {
		levels[i] = item.Level
	}
	return levels
}

// RecordingLogger keeps log messages by level.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

// LogEntry is one call to a RecordingLogger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []any
}

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{}
}

func (l *RecordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *RecordingLogger) Debug(msg string, args ...any) { l.record("DEBUG", msg, args) }
func (l *RecordingLogger) Info(msg string, args ...any)  { l.record("INFO", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...any)  { l.record("WARN", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...any) { l.record("ERROR", msg, args) }

// Entries returns entries at level, or all entries when level is empty.
func (l *RecordingLogger) Entries(level string) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LogEntry
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

var (
	_ chrono.Notifier = (*RecordingNotifier)(nil)
	_ chrono.Logger   = (*RecordingLogger)(nil)
)
