package config

import "errors"

var (
	ErrParsingConfig   = errors.New("config: cannot parse environment")
	ErrConfigNotLoaded = errors.New("config: cached value has an unexpected type")
	ErrNilPointer      = errors.New("config: Load called with a nil pointer")
)
