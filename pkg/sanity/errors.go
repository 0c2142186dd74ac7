package sanity

import "errors"

var (
	ErrDisabled     = errors.New("sanity: project not configured")
	ErrPostNotFound = errors.New("sanity: post not found")
	ErrQuery        = errors.New("sanity: query failed")
)
