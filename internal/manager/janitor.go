package manager

import (
	"log/slog"
	"time"
)

// Janitor periodically sweeps expired entries from a manager's caches.
// The engine expires lazily on read; the janitor bounds how long dead
// entries occupy space between reads.
type Janitor struct {
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	logger   *slog.Logger
}

// StartJanitor begins a background sweep loop with the given interval.
// Stop the returned Janitor to end the loop.
func (m *Manager[V]) StartJanitor(interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}

	j := &Janitor{
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   m.logger,
	}

	go func() {
		defer close(j.done)
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				total := 0
				for _, n := range m.CleanupExpired() {
					total += n
				}
				if total > 0 {
					j.logger.Debug("expired entries swept", "removed", total)
				}
			case <-j.stop:
				return
			}
		}
	}()

	return j
}

// Stop ends the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	close(j.stop)
	<-j.done
}
