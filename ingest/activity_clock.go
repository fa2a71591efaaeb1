package ingest

import (
	"sync"
	"time"
)

type activityClock struct {
	at time.Time
	mu sync.RWMutex
}

func (c *activityClock) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = time.Now()
}

func (c *activityClock) Idle() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Since(c.at)
}
