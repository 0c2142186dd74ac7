package projects

import "errors"

var (
	ErrProjectNotFound = errors.New("projects: project not found")
	ErrProjectExists   = errors.New("projects: a project with this URL already exists")
	ErrInvalidURL      = errors.New("projects: invalid website URL")
	ErrKeywordNotFound = errors.New("projects: keyword not found")
	ErrKeywordExists   = errors.New("projects: keyword is already tracked")

	// ErrCapacityReached is returned by Storage when an insert would take the
	// user past the limit it was given.
	ErrCapacityReached = errors.New("projects: plan capacity reached")
)
