package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ms-booking/internal/logger"
)

// Sweeper periodically expires stale pending bookings.
type Sweeper struct {
	service   *Service
	interval  time.Duration
	batchSize int
	log       *logger.Logger

	stopChan chan struct{}
	done     chan struct{}
	once     sync.Once
}

func NewSweeper(service *Service, interval time.Duration, log *logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Sweeper{
		service:   service,
		interval:  interval,
		batchSize: 100,
		log:       log,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs one sweep immediately, then one per interval until Stop is
// called or ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.log.Info("SCHEDULER", fmt.Sprintf("Hold expiry sweeper started (every %s, ttl %s)", s.interval, s.service.opts.HoldTTL))

	go func() {
		defer close(s.done)

		s.sweep(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-s.stopChan:
				s.log.Info("SCHEDULER", "Hold expiry sweeper stopped")
				return
			case <-ctx.Done():
				s.log.Info("SCHEDULER", "Hold expiry sweeper stopped by context")
				return
			}
		}
	}()
}

// Stop halts the sweeper and waits for an in-flight sweep to finish. It
// must only be called after Start.
func (s *Sweeper) Stop() {
	s.once.Do(func() { close(s.stopChan) })
	<-s.done
}

func (s *Sweeper) sweep(ctx context.Context) {
	for {
		n, err := s.service.ExpirePending(ctx, s.batchSize)
		if err != nil {
			s.log.Error("SCHEDULER", fmt.Sprintf("Hold expiry sweep failed: %v", err))
			return
		}
		if n > 0 {
			s.log.Info("SCHEDULER", fmt.Sprintf("Expired %d pending bookings", n))
		}
		// A short batch means the backlog is drained.
		if n < s.batchSize || ctx.Err() != nil {
			return
		}
	}
}
