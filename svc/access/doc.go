// Package access decides whether a learner may open a course.
//
// A learner needs an active, unexpired subscription whose plan tier ranks at
// least as high as the course tier (free < basic < premium). The
// subscription and course are looked up concurrently, but reasons are
// reported in a fixed order: missing subscription first, then missing or
// unpublished course, then tier mismatch.
//
// Check enrolls the learner when access is granted. The enrollment upsert
// is idempotent, so repeated or concurrent checks converge on one row.
// CanAccess answers the same question without side effects.
//
// Access is always evaluated against the current subscription. An existing
// enrollment never grants access on its own.
package access
