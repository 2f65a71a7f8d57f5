package exam

import (
	"context"
	"sync"
	"time"
)

// TickInterval is how often a running exam re-reads the clock.
const TickInterval = time.Second

// Timer drives Tick on a session until it finishes or is stopped.
type Timer struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// StartTimer begins ticking s every interval in its own goroutine.
func StartTimer(ctx context.Context, s *Session, interval time.Duration) *Timer {
	if interval <= 0 {
		interval = TickInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	t := &Timer{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.Tick(context.WithoutCancel(ctx)) {
					return
				}
			}
		}
	}()
	return t
}

// Stop halts the timer without waiting for its goroutine, so it may be
// called from a finalize hook running on that goroutine. Safe to call repeatedly.
func (t *Timer) Stop() {
	t.once.Do(t.cancel)
}

// Done is closed once the timer goroutine has exited.
func (t *Timer) Done() <-chan struct{} { return t.done }
