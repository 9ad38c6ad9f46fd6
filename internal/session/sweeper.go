package session

import (
	"context"
	"time"

	"github.com/patric-chuzhbe/biolink/internal/logger"
)

type expirer interface {
	DeleteExpired(ctx context.Context) (int, error)
}

// Sweeper periodically removes expired sessions from a store that does not
// expire them on its own.
type Sweeper struct {
	store        expirer
	interval     time.Duration
	errorChannel chan error
}

func NewSweeper(store expirer, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:        store,
		interval:     interval,
		errorChannel: make(chan error, 1),
	}
}

// ListenErrors hands every sweep failure to callback.
func (s *Sweeper) ListenErrors(callback func(error)) {
	go func() {
		for err := range s.errorChannel {
			callback(err)
		}
	}()
}

// Run sweeps until ctx is cancelled. It closes the error channel on return.
func (s *Sweeper) Run(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		defer close(s.errorChannel)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.store.DeleteExpired(ctx)
				if err != nil {
					select {
					case s.errorChannel <- err:
					default:
					}
					continue
				}
				if removed > 0 {
					logger.Log.Debugf("removed %d expired sessions", removed)
				}
			}
		}
	}()
}
