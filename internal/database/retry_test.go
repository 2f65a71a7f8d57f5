package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := retry(context.Background(), zerolog.Nop(), "db", 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUp(t *testing.T) {
	refused := errors.New("refused")
	calls := 0
	err := retry(context.Background(), zerolog.Nop(), "db", 2, time.Millisecond, func(context.Context) error {
		calls++
		return refused
	})

	assert.ErrorIs(t, err, refused)
	assert.ErrorContains(t, err, "after 2 attempts")
	assert.Equal(t, 2, calls)
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retry(ctx, zerolog.Nop(), "db", 5, time.Hour, func(context.Context) error {
		return errors.New("refused")
	})

	assert.ErrorIs(t, err, context.Canceled)
}
