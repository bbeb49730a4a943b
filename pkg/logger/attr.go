package logger

import "log/slog"

// Error records err under the key "error". Nil errors produce an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// anyAttr returns an empty Attr for nil values so optional ids can be
// passed without checks at the call site.
func anyAttr(key string, v any) slog.Attr {
	if v == nil {
		return slog.Attr{}
	}
	return slog.Any(key, v)
}

func UserID(id any) slog.Attr         { return anyAttr("user_id", id) }
func CourseID(id any) slog.Attr       { return anyAttr("course_id", id) }
func LessonID(id any) slog.Attr       { return anyAttr("lesson_id", id) }
func ExamID(id any) slog.Attr         { return anyAttr("exam_id", id) }
func PlanID(id any) slog.Attr         { return anyAttr("plan_id", id) }
func SubscriptionID(id any) slog.Attr { return anyAttr("subscription_id", id) }
func RequestID(id any) slog.Attr      { return anyAttr("request_id", id) }
func Role(role any) slog.Attr         { return anyAttr("role", role) }

// Tier records a subscription or course tier under the key "tier".
func Tier(tier string) slog.Attr {
	return slog.String("tier", tier)
}

// Provider records a billing provider name under the key "provider".
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// EventType records the event type under the key "event_type".
func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}
