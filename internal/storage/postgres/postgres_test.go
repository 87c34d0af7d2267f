package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"spotbooker/internal/storage"
)

func TestMapPQError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		err      error
		expected error
	}{
		{
			name:     "unique violation becomes duplicate booking",
			err:      &pq.Error{Code: pgUniqueViolation},
			expected: storage.ErrDuplicateBooking,
		},
		{
			name:     "check violation becomes capacity exceeded",
			err:      &pq.Error{Code: pgCheckViolation},
			expected: storage.ErrCapacityExceeded,
		},
		{
			name:     "lock not available becomes lock timeout",
			err:      &pq.Error{Code: pgLockNotAvail},
			expected: storage.ErrLockTimeout,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.ErrorIs(t, mapPQError(tc.err), tc.expected)
		})
	}
}

func TestMapPQErrorPassesThroughWrapped(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("failed to lock event: %w", &pq.Error{Code: pgLockNotAvail})
	assert.ErrorIs(t, mapPQError(wrapped), storage.ErrLockTimeout)
}

func TestMapPQErrorLeavesOtherErrorsAlone(t *testing.T) {
	t.Parallel()

	connErr := errors.New("connection refused")
	assert.Equal(t, connErr, mapPQError(connErr))

	otherPQ := &pq.Error{Code: "42601"}
	assert.Equal(t, error(otherPQ), mapPQError(otherPQ))
}
