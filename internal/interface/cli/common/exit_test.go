package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tsubakihara/ringi/internal/domain/repository"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, ExitOK},
		{"not found", repository.ErrNotFound, ExitNotFound},
		{"wrapped not found", fmt.Errorf("find: %w", repository.ErrNotFound), ExitNotFound},
		{"conflict", &repository.ConflictError{}, ExitConflict},
		{"wrapped conflict", fmt.Errorf("approve: %w", &repository.ConflictError{}), ExitConflict},
		{"stale write", &repository.StaleWriteError{}, ExitConflict},
		{"store failure", &repository.StoreError{Op: "create", Err: errors.New("disk full")}, ExitValidation},
		{"anything else", errors.New("bad flag"), ExitValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
