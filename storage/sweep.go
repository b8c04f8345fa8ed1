package storage

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

// StartSweeping sweeps s every interval, until ctx is done or the returned
// function is called.
func StartSweeping(ctx context.Context, s Sweeper, interval time.Duration) context.CancelFunc {
	if interval <= 0 {
		interval = time.Hour
	}
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			removed, err := s.Sweep(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.WithField("err", err).Warn("Could not sweep expired entries")
				continue
			}
			if removed > 0 {
				log.WithField("removed", removed).Debug("Swept expired entries")
			}
		}
	}()
	return cancel
}
