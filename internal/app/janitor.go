package app

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

const defaultSweepInterval = 15 * time.Minute

type expiredSessionSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// sessionJanitor periodically deletes expired sessions. Resolution already
// ignores them; this only keeps the table small.
type sessionJanitor struct {
	sweeper  expiredSessionSweeper
	interval time.Duration
	log      logr.Logger
	now      func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func startSessionJanitor(sweeper expiredSessionSweeper, interval time.Duration, log logr.Logger) *sessionJanitor {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	j := &sessionJanitor{
		sweeper:  sweeper,
		interval: interval,
		log:      log.WithName("session-janitor"),
		now:      time.Now,
		cancel:   cancel,
	}
	j.wg.Add(1)
	go j.run(ctx)
	return j
}

func (j *sessionJanitor) run(ctx context.Context) {
	defer j.wg.Done()
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *sessionJanitor) sweep(ctx context.Context) {
	n, err := j.sweeper.DeleteExpired(ctx, j.now())
	if err != nil {
		j.log.Error(err, "sweep expired sessions")
		return
	}
	if n > 0 {
		j.log.V(1).Info("expired sessions removed", "count", n)
	}
}

func (j *sessionJanitor) Close() error {
	j.cancel()
	j.wg.Wait()
	return nil
}
