package audit

import (
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// Level classifies audit entries.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Entry is one structured audit record for a significant transition
// (token issued/rotated, reuse detected, limit denied, trial assigned...).
type Entry struct {
	ID        string
	Level     Level
	Action    string
	Message   string
	UserID    uint
	ErrorCode string
	Metadata  map[string]interface{}
}

// Sink accepts audit entries. Emission is fire-and-forget: sinks must not
// fail the calling operation.
type Sink interface {
	Record(entry Entry)
}

// LogSink writes audit entries through the fiber logger.
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Record(entry Entry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	fields := []interface{}{
		"audit_id", entry.ID,
		"action", entry.Action,
		"user_id", entry.UserID,
	}
	if entry.ErrorCode != "" {
		fields = append(fields, "error_code", entry.ErrorCode)
	}
	for k, v := range entry.Metadata {
		fields = append(fields, k, v)
	}
	switch entry.Level {
	case LevelError:
		log.Errorw(entry.Message, fields...)
	case LevelWarn:
		log.Warnw(entry.Message, fields...)
	default:
		log.Infow(entry.Message, fields...)
	}
}

// NopSink discards all entries.
type NopSink struct{}

func (NopSink) Record(Entry) {}

// MemorySink collects entries for assertions in tests.
type MemorySink struct {
	Entries []Entry
}

func (s *MemorySink) Record(entry Entry) {
	s.Entries = append(s.Entries, entry)
}

// Actions returns the recorded action names in order.
func (s *MemorySink) Actions() []string {
	actions := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		actions = append(actions, e.Action)
	}
	return actions
}
