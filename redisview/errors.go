package redisview

import (
	"errors"
)

var (
	ErrNilClient              = errors.New("redis client must not be nil")
	ErrEmptyViewTypeSupplied  = errors.New("empty view type supplied")
	ErrLoadingViewFailed      = errors.New("loading view from redis failed")
	ErrStoringViewFailed      = errors.New("storing view in redis failed")
	ErrUnexpectedScriptResult = errors.New("unexpected result of the update script")
)
