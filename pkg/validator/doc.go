// Package validator wraps github.com/go-playground/validator/v10 so request
// structs can be checked with `validate` tags and the failures rendered as a
// handler.ValidationError keyed by JSON field path.
//
// Besides the built-in tags it registers:
//
//	notblank  string must contain a non-space character
//	tier      one of free, basic, premium
package validator
