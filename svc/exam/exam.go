package exam

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

var (
	ErrExamNotFound        = errors.New("exam not found")
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrAttemptNotFound     = errors.New("no passing attempt")
	ErrInvalidQuestion     = errors.New("correct option is out of range")
	ErrAnswerCount         = errors.New("answer count does not match question count")
	ErrNotEnrolled         = errors.New("not enrolled")
	ErrAccessRevoked       = errors.New("course access requires an active subscription")
)

// Exam is a multiple choice test closing a course.
type Exam struct {
	ID           uuid.UUID  `json:"id"`
	CourseID     uuid.UUID  `json:"course_id"`
	Title        string     `json:"title"`
	PassingScore int        `json:"passing_score"`
	Questions    []Question `json:"questions"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Question is one exam question. CorrectOption is never sent to learners.
type Question struct {
	ID            uuid.UUID `json:"id"`
	Position      int       `json:"position"`
	Prompt        string    `json:"prompt"`
	Options       []string  `json:"options"`
	CorrectOption int       `json:"-"`
}

// ExamInput is the admin payload for a new exam.
type ExamInput struct {
	CourseID     uuid.UUID       `json:"course_id" validate:"required"`
	Title        string          `json:"title" validate:"required,notblank,max=200"`
	PassingScore int             `json:"passing_score" validate:"gte=0,lte=100"`
	Questions    []QuestionInput `json:"questions" validate:"required,min=1,max=200,dive"`
}

type QuestionInput struct {
	Prompt        string   `json:"prompt" validate:"required,notblank,max=2000"`
	Options       []string `json:"options" validate:"required,min=2,max=10,dive,required,max=500"`
	CorrectOption int      `json:"correct_option" validate:"gte=0"`
}

// Answers holds the chosen option index for each question, in order.
type Answers struct {
	Answers []int `json:"answers" validate:"required,max=200"`
}

// Attempt is a graded exam submission.
type Attempt struct {
	ID          uuid.UUID    `json:"id"`
	ExamID      uuid.UUID    `json:"exam_id"`
	UserID      uuid.UUID    `json:"user_id"`
	Score       int          `json:"score"`
	Passed      bool         `json:"passed"`
	Correct     int          `json:"correct"`
	Total       int          `json:"total"`
	Answers     []int        `json:"answers"`
	CreatedAt   time.Time    `json:"created_at"`
	Certificate *Certificate `json:"certificate,omitempty"`
}

// Certificate proves a learner completed a course and passed its exam.
type Certificate struct {
	ID          uuid.UUID  `json:"id"`
	Number      string     `json:"number"`
	UserID      uuid.UUID  `json:"user_id"`
	CourseID    uuid.UUID  `json:"course_id"`
	CourseTitle string     `json:"course_title,omitempty"`
	ExamID      *uuid.UUID `json:"exam_id,omitempty"`
	Score       int        `json:"score"`
	IssuedAt    time.Time  `json:"issued_at"`
	VerifyURL   string     `json:"verify_url,omitempty"`
	Created     bool       `json:"-"`
}

// Learner identifies who submits an attempt. Email and Name are used for
// the certificate email only.
type Learner struct {
	ID    uuid.UUID
	Email string
	Name  string
}

// Grade counts correct answers and returns the score as
// round(100 * correct / total).
func Grade(questions []Question, answers []int) (correct, score int) {
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.CorrectOption {
			correct++
		}
	}
	if len(questions) == 0 {
		return 0, 0
	}
	score = int(math.Round(100 * float64(correct) / float64(len(questions))))
	return correct, min(max(score, 0), 100)
}
