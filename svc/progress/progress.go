package progress

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/learnpro/learnpro/svc/enrollment"
	"github.com/learnpro/learnpro/svc/exam"
)

var (
	ErrNotEnrolled       = errors.New("not enrolled")
	ErrAccessRevoked     = errors.New("course access requires an active subscription")
	ErrLessonNotInCourse = errors.New("lesson does not belong to course")
)

// LessonProgress is a learner's state on one lesson. Watch time only grows
// and completion is never undone.
type LessonProgress struct {
	UserID           uuid.UUID `json:"user_id"`
	LessonID         uuid.UUID `json:"lesson_id"`
	CourseID         uuid.UUID `json:"course_id"`
	Completed        bool      `json:"is_completed"`
	WatchTimeSeconds int       `json:"watch_time_seconds"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Update is a progress report from the player.
type Update struct {
	UserID           uuid.UUID `json:"-"`
	Email            string    `json:"-"`
	LessonID         uuid.UUID `json:"lesson_id" validate:"required"`
	CourseID         uuid.UUID `json:"course_id" validate:"required"`
	WatchTimeSeconds int       `json:"watch_time_seconds" validate:"gte=0,lte=86400"`
	Completed        bool      `json:"is_completed"`
}

// Result is what a progress update changed.
type Result struct {
	Lesson      *LessonProgress        `json:"lesson"`
	Enrollment  *enrollment.Enrollment `json:"enrollment"`
	Certificate *exam.Certificate      `json:"certificate,omitempty"`
}

// CourseProgress is the learner's enrollment with per-lesson progress.
type CourseProgress struct {
	Enrollment *enrollment.Enrollment `json:"enrollment"`
	Lessons    []LessonProgress       `json:"lessons"`
}

// Percentage returns round(100 * completed / total) clamped to [0, 100].
// A course without lessons is at 0.
func Percentage(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(completed) / float64(total)))
	return min(max(p, 0), 100)
}
