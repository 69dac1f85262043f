// Per-client request throttling.
//
// DESIGN: One token bucket per client IP, refilled at RateLimit requests per
// second with the same burst. Buckets idle for StaleTimeout are dropped by a
// background sweep, and the map is capped at MaxRateLimitBuckets.
package gateway

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/starnote/ai-gateway/internal/config"
)

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter throttles requests per client IP.
type ipRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	limit   rate.Limit
	burst   int
	stop    chan struct{}
	once    sync.Once
}

// newIPRateLimiter creates a limiter allowing perSecond requests per IP.
// A non-positive perSecond disables throttling (nil limiter).
func newIPRateLimiter(perSecond int) *ipRateLimiter {
	if perSecond <= 0 {
		return nil
	}
	rl := &ipRateLimiter{
		buckets: make(map[string]*clientBucket),
		limit:   rate.Limit(perSecond),
		burst:   perSecond,
		stop:    make(chan struct{}),
	}
	go rl.cleanupLoop(config.DefaultCleanupInterval, config.DefaultStaleTimeout)
	return rl
}

// Allow reports whether a request from ip may proceed.
func (rl *ipRateLimiter) Allow(ip string) bool {
	if rl == nil {
		return true
	}
	now := time.Now()

	rl.mu.Lock()
	b, ok := rl.buckets[ip]
	if !ok {
		if len(rl.buckets) >= config.MaxRateLimitBuckets {
			rl.evictOldestLocked()
		}
		b = &clientBucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[ip] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

func (rl *ipRateLimiter) evictOldestLocked() {
	var oldestIP string
	var oldest time.Time
	for ip, b := range rl.buckets {
		if oldestIP == "" || b.lastSeen.Before(oldest) {
			oldestIP, oldest = ip, b.lastSeen
		}
	}
	delete(rl.buckets, oldestIP)
}

func (rl *ipRateLimiter) cleanupLoop(interval, staleAfter time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.sweep(now, staleAfter)
		}
	}
}

func (rl *ipRateLimiter) sweep(now time.Time, staleAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, b := range rl.buckets {
		if now.Sub(b.lastSeen) > staleAfter {
			delete(rl.buckets, ip)
		}
	}
}

func (rl *ipRateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Stop ends the cleanup goroutine.
func (rl *ipRateLimiter) Stop() {
	if rl == nil {
		return
	}
	rl.once.Do(func() { close(rl.stop) })
}

// clientIP returns the host part of the request's remote address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// isLoopback reports whether addr (host:port) is a loopback address.
func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
