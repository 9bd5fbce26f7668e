package common

import (
	"errors"

	"github.com/tsubakihara/ringi/internal/domain/repository"
)

// Exit codes of the control surface.
const (
	ExitOK         = 0 // success
	ExitValidation = 1 // validation/config error, store failure
	ExitNotFound   = 2 // unknown workflow id
	ExitConflict   = 3 // conflict or stale write after retry exhausted
)

// ExitCode translates an error kind into a process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, repository.ErrNotFound) {
		return ExitNotFound
	}

	var conflict *repository.ConflictError
	if errors.As(err, &conflict) {
		return ExitConflict
	}
	var stale *repository.StaleWriteError
	if errors.As(err, &stale) {
		return ExitConflict
	}

	return ExitValidation
}
