package github

import "errors"

var (
	// ErrInvalidURL marks repository URLs an identifier cannot be derived from.
	ErrInvalidURL = errors.New("invalid repository URL")
	// ErrCloneFailure marks network, authentication or not-found failures while cloning.
	ErrCloneFailure = errors.New("clone failed")
)
