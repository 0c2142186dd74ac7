package redis

import "errors"

var (
	ErrEmptyConnectionURL = errors.New("redis: empty connection url")
	ErrParseURL           = errors.New("redis: failed to parse connection url")
	ErrNotReady           = errors.New("redis: server did not become ready in time")
	ErrHealthcheckFailed  = errors.New("redis: healthcheck failed")
)
