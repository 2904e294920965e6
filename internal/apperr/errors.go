// Package apperr holds the sentinel errors shared across packages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidQuery  = errors.New("invalid query")
	ErrAlreadyExists = errors.New("already exists")

	ErrIndexUnavailable = errors.New("index unavailable")
	ErrWriterBusy       = errors.New("index writer busy")

	ErrRepositoryUnavailable = errors.New("repository unavailable")
	ErrRootNotFound          = fmt.Errorf("%w: root not found", ErrRepositoryUnavailable)
	ErrNotRepository         = fmt.Errorf("%w: not a git repository", ErrRepositoryUnavailable)
	ErrRootNotAbsolute       = fmt.Errorf("%w: root is not an absolute path", ErrRepositoryUnavailable)
)
