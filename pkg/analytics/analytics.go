package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event names.
const (
	EventLessonProgress    = "lesson_progress"
	EventCourseEnrolled    = "course_enrolled"
	EventCourseCompleted   = "course_completed"
	EventExamSubmitted     = "exam_submitted"
	EventCertificateIssued = "certificate_issued"
)

var ErrEmptyEventName = errors.New("analytics event name is required")

// Event is a product analytics event.
type Event struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	UserID     string         `json:"user_id,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewEvent stamps an event with an id and the current time.
func NewEvent(name, userID string, props map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Name:       name,
		UserID:     userID,
		Properties: props,
		OccurredAt: time.Now().UTC(),
	}
}

// Tracker records analytics events. Callers treat failures as non-fatal.
type Tracker interface {
	Track(ctx context.Context, event Event) error
}

// Publisher is the subset of *nats.Conn used by NATSTracker.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSTracker publishes events as JSON to "<prefix>.<event name>".
type NATSTracker struct {
	pub    Publisher
	prefix string
}

func NewNATSTracker(pub Publisher, prefix string) *NATSTracker {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		prefix = "learnpro.analytics"
	}
	return &NATSTracker{pub: pub, prefix: prefix}
}

func (t *NATSTracker) Track(ctx context.Context, event Event) error {
	if event.Name == "" {
		return ErrEmptyEventName
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal analytics event: %w", err)
	}
	if err := t.pub.Publish(t.prefix+"."+event.Name, data); err != nil {
		return fmt.Errorf("publish analytics event: %w", err)
	}
	return nil
}

// LogTracker writes events to the log. Used when NATS is not configured.
type LogTracker struct {
	log *slog.Logger
}

func NewLogTracker(log *slog.Logger) *LogTracker {
	return &LogTracker{log: log}
}

func (t *LogTracker) Track(ctx context.Context, event Event) error {
	if event.Name == "" {
		return ErrEmptyEventName
	}
	t.log.DebugContext(ctx, "analytics event",
		slog.String("event", event.Name),
		slog.String("user_id", event.UserID),
		slog.Any("properties", event.Properties),
	)
	return nil
}

// Noop discards events.
type Noop struct{}

func (Noop) Track(context.Context, Event) error { return nil }
