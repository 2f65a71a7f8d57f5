package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// retry runs connect up to attempts times, doubling the wait after each
// failure. It gives up early when ctx is done.
func retry(ctx context.Context, log zerolog.Logger, target string, attempts int, backoff time.Duration, connect func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if err = connect(ctx); err == nil {
			return nil
		}
		if i == attempts {
			break
		}

		log.Warn().
			Err(err).
			Str("target", target).
			Int("attempt", i).
			Dur("retry_in", backoff).
			Msg("Connection failed, retrying")

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", target, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("%s after %d attempts: %w", target, attempts, err)
}
