package catalog

import "errors"

var (
	ErrCourseNotFound  = errors.New("course not found")
	ErrLessonNotFound  = errors.New("lesson not found")
	ErrPlanNotFound    = errors.New("plan not found")
	ErrInvalidTier     = errors.New("invalid subscription tier")
	ErrInvalidPlan     = errors.New("invalid plan definition")
	ErrNothingToUpdate = errors.New("no fields to update")
)
