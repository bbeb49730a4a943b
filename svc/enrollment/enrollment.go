package enrollment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status of an enrollment. Enrollments move from active to completed and
// are never removed.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

var ErrNotFound = errors.New("enrollment not found")

// Enrollment links a learner to a course they were granted access to.
type Enrollment struct {
	UserID             uuid.UUID  `json:"user_id"`
	CourseID           uuid.UUID  `json:"course_id"`
	Status             Status     `json:"status"`
	ProgressPercentage int        `json:"progress_percentage"`
	EnrolledAt         time.Time  `json:"enrolled_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`

	// Created is set by Upsert when the row did not exist before.
	Created bool `json:"-"`
}

func (e *Enrollment) IsCompleted() bool {
	return e.Status == StatusCompleted
}
