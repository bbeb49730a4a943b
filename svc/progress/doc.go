// Package progress records how far learners got through a course.
//
// A report upserts the lesson row, keeping the highest watch time seen and
// never clearing completion, then recomputes the enrollment percentage as
// round(100 * completed / published lessons) in the same transaction. A
// course at 100% is marked completed. Reports require an enrollment and a
// subscription that still covers the course.
//
// Analytics events are sent after the write and never fail the request.
package progress
