// Package enrollment stores the link between learners and the courses they
// were granted access to.
//
// Enrollments are created lazily by the access check through Upsert, which
// is safe under concurrent calls for the same learner and course and never
// resets progress. Progress and completion are maintained by the progress
// package.
package enrollment
