// Package binder populates request structs from JSON bodies, path parameters
// and query strings. Each binder reads only its own struct tags, so several
// binders can be combined for one request type.
//
//	type SubmitAttemptRequest struct {
//		ExamID  string `path:"examID" json:"-"`
//		Answers []int  `json:"answers"`
//	}
//
// All binder failures wrap one of the package errors; IsBindError reports
// whether an error should be answered with 400 Bad Request.
package binder
