package gcode

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fsandov/klipper-gotify/pkg/logs"
)

// Console writes responses the way the host's terminal shows them:
// "// " before every info line, "!! " before the first error line.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) RespondInfo(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeInfo(msg)
}

// RespondError prints extra lines of a multi-line error as info first, then
// the first line flagged as an error.
func (c *Console) RespondError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := strings.Split(strings.TrimSpace(msg), "\n")
	if len(lines) > 1 {
		c.writeInfo(strings.Join(lines, "\n"))
	}
	fmt.Fprintf(c.w, "!! %s\n", lines[0])
}

func (c *Console) writeInfo(msg string) {
	for _, line := range strings.Split(msg, "\n") {
		fmt.Fprintf(c.w, "// %s\n", line)
	}
}

const DefaultStoreSize = 1000

type EntryType string

const (
	EntryCommand  EntryType = "command"
	EntryResponse EntryType = "response"
	EntryError    EntryType = "error"
)

type Entry struct {
	Message string    `json:"message"`
	Time    float64   `json:"time"`
	Type    EntryType `json:"type"`
}

// Store keeps the most recent console traffic in a fixed size ring.
type Store struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
	now     func() time.Time
}

func NewStore(size int) *Store {
	if size <= 0 {
		size = DefaultStoreSize
	}
	return &Store{entries: make([]Entry, size), now: time.Now}
}

func (s *Store) RespondInfo(msg string)    { s.add(EntryResponse, msg) }
func (s *Store) RespondError(msg string)   { s.add(EntryError, msg) }
func (s *Store) RecordCommand(line string) { s.add(EntryCommand, line) }

func (s *Store) add(t EntryType, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.now()
	s.entries[s.next] = Entry{
		Message: msg,
		Time:    float64(ts.UnixNano()) / float64(time.Second),
		Type:    t,
	}
	s.next = (s.next + 1) % len(s.entries)
	if s.next == 0 {
		s.full = true
	}
}

// Last returns up to n of the newest entries, oldest first. n <= 0 returns all.
func (s *Store) Last(n int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ordered []Entry
	if s.full {
		ordered = append(ordered, s.entries[s.next:]...)
	}
	ordered = append(ordered, s.entries[:s.next]...)
	if n > 0 && n < len(ordered) {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}

type teeSink []ReportingSink

// Tee fans every response out to all sinks.
func Tee(sinks ...ReportingSink) ReportingSink {
	return teeSink(sinks)
}

func (t teeSink) RespondInfo(msg string) {
	for _, s := range t {
		s.RespondInfo(msg)
	}
}

func (t teeSink) RespondError(msg string) {
	for _, s := range t {
		s.RespondError(msg)
	}
}

func (t teeSink) RecordCommand(line string) {
	for _, s := range t {
		if rec, ok := s.(commandRecorder); ok {
			rec.RecordCommand(line)
		}
	}
}

type logSink struct {
	logger *logs.Logger
}

// NewLogSink mirrors console traffic into the structured log.
func NewLogSink(logger *logs.Logger) ReportingSink {
	if logger == nil {
		logger = logs.GetLogger()
	}
	return logSink{logger: logger}
}

func (l logSink) RespondInfo(msg string) {
	l.logger.Info(context.Background(), "gcode response", "message", msg)
}

func (l logSink) RespondError(msg string) {
	l.logger.Warn(context.Background(), "gcode error", "message", msg)
}
