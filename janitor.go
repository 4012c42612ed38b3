package kvstore

import (
	"sync"
	"time"

	"github.com/gozephyr/kvstore/log"
)

// janitor periodically reaps expired entries
type janitor struct {
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func startJanitor(interval time.Duration, logger log.Logger, cleanup func() int) *janitor {
	if logger == nil {
		logger = log.Nop()
	}

	j := &janitor{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(j.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if removed := cleanup(); removed > 0 {
					logger.Debug("reaped expired entries", "count", removed)
				}
			case <-j.stopCh:
				return
			}
		}
	}()

	return j
}

// stop ends the cleanup loop and waits for it to exit
func (j *janitor) stop() {
	j.stopOnce.Do(func() {
		close(j.stopCh)
	})
	<-j.done
}
