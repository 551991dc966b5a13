package ratelimit

import (
	"sync"
	"time"
)

// IPRateLimiter keeps a token bucket per client IP
type IPRateLimiter struct {
	limiters   map[string]*ipBucket
	mu         sync.Mutex
	maxTokens  float64
	refillRate float64
	maxIdle    time.Duration
	cleanup    *time.Ticker
	stopChan   chan struct{}
}

type ipBucket struct {
	bucket   *TokenBucket
	lastSeen time.Time
}

// NewIPRateLimiter creates a per-IP limiter with background cleanup of idle entries
func NewIPRateLimiter(maxTokens, refillRate float64) *IPRateLimiter {
	limiter := &IPRateLimiter{
		limiters:   make(map[string]*ipBucket),
		maxTokens:  maxTokens,
		refillRate: refillRate,
		maxIdle:    30 * time.Minute,
		cleanup:    time.NewTicker(10 * time.Minute),
		stopChan:   make(chan struct{}),
	}

	go limiter.cleanupLoop()

	return limiter
}

// Allow checks if a request from the given IP can proceed
func (ipl *IPRateLimiter) Allow(ip string) bool {
	ipl.mu.Lock()
	entry, exists := ipl.limiters[ip]

	if !exists {
		entry = &ipBucket{bucket: NewTokenBucket(ipl.maxTokens, ipl.refillRate)}
		ipl.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	ipl.mu.Unlock()

	return entry.bucket.Allow()
}

func (ipl *IPRateLimiter) cleanupLoop() {
	for {
		select {
		case <-ipl.cleanup.C:
			cutoff := time.Now().Add(-ipl.maxIdle)

			ipl.mu.Lock()
			for ip, entry := range ipl.limiters {
				if entry.lastSeen.Before(cutoff) {
					delete(ipl.limiters, ip)
				}
			}
			ipl.mu.Unlock()
		case <-ipl.stopChan:
			ipl.cleanup.Stop()
			return
		}
	}
}

// Stop stops the cleanup goroutine
func (ipl *IPRateLimiter) Stop() {
	close(ipl.stopChan)
}
