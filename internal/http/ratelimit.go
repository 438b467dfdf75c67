package http

import (
	"sync"
	"time"
)

const (
	writeLimit      = 60
	writeWindow     = time.Minute
	limiterSweep    = 5 * time.Minute
	limiterStaleAge = 10 * time.Minute
)

// rateLimiter caps write requests per client to writeLimit per
// writeWindow, counting against a fixed window that restarts on the
// first request after expiry.
type rateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	done    chan struct{}
	once    sync.Once
}

type window struct {
	openedAt time.Time
	count    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		windows: make(map[string]*window),
		done:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *rateLimiter) allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w := rl.windows[client]
	if w == nil || now.Sub(w.openedAt) > writeWindow {
		rl.windows[client] = &window{openedAt: now, count: 1}
		return true
	}

	w.count++
	return w.count <= writeLimit
}

// sweepLoop drops windows for clients that have gone quiet, so the map
// does not grow with every address ever seen.
func (rl *rateLimiter) sweepLoop() {
	ticker := time.NewTicker(limiterSweep)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-limiterStaleAge)
			rl.mu.Lock()
			for client, w := range rl.windows {
				if w.openedAt.Before(cutoff) {
					delete(rl.windows, client)
				}
			}
			rl.mu.Unlock()
		case <-rl.done:
			return
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.once.Do(func() {
		close(rl.done)
	})
}
