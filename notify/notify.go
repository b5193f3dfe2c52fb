// Package notify is the user-facing toast sink. Notifications are
// fire-and-forget; implementations must not block the caller.
package notify

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Notifier delivers transient messages to the user.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
	// Warning shows msg for the given duration instead of the UI default.
	Warning(msg string, duration time.Duration)
}

// Log emits notifications to the structured log, standing in for the toast
// UI that a graphical frontend would render.
type Log struct {
	Logger logrus.FieldLogger
}

func NewLog(log logrus.FieldLogger) *Log { return &Log{Logger: log} }

func (l *Log) Success(msg string) { l.Logger.WithField("toast", "success").Info(msg) }
func (l *Log) Error(msg string)   { l.Logger.WithField("toast", "error").Warn(msg) }
func (l *Log) Info(msg string)    { l.Logger.WithField("toast", "info").Info(msg) }

func (l *Log) Warning(msg string, duration time.Duration) {
	l.Logger.WithFields(logrus.Fields{
		"toast":    "warning",
		"duration": duration.String(),
	}).Warn(msg)
}

// Entry is one captured notification.
type Entry struct {
	Level    string
	Message  string
	Duration time.Duration
}

// Recorder captures notifications for assertions in tests.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) record(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *Recorder) Success(msg string) { r.record(Entry{Level: "success", Message: msg}) }
func (r *Recorder) Error(msg string)   { r.record(Entry{Level: "error", Message: msg}) }
func (r *Recorder) Info(msg string)    { r.record(Entry{Level: "info", Message: msg}) }

func (r *Recorder) Warning(msg string, duration time.Duration) {
	r.record(Entry{Level: "warning", Message: msg, Duration: duration})
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]Entry, len(r.entries))
	copy(cp, r.entries)
	return cp
}

// Last returns the most recent entry, if any.
func (r *Recorder) Last() (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return Entry{}, false
	}
	return r.entries[len(r.entries)-1], true
}
