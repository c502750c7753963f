package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

type clientState struct {
	windowStart  time.Time
	requestCount int
}

// RateLimiter caps the number of requests per client IP in a fixed window.
type RateLimiter struct {
	limit  int
	window time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*clientState
}

// NewRateLimiter allows limit requests per window. A limit of zero or less
// disables limiting.
func NewRateLimiter(limit int, window time.Duration, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		logger:  logger,
		now:     time.Now,
		clients: make(map[string]*clientState),
	}
}

// Middleware returns the limiting handler.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !rl.allow(ip) {
			rl.logger.Debug("rate limit exceeded", zap.String("ip", ip))
			writeError(w, http.StatusTooManyRequests, "リクエストが多すぎます。しばらくしてから再度お試しください")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	state, ok := rl.clients[ip]
	if !ok || now.Sub(state.windowStart) > rl.window {
		state = &clientState{windowStart: now}
		rl.clients[ip] = state
	}
	state.requestCount++
	return state.requestCount <= rl.limit
}

// Run removes idle clients every window until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for ip, state := range rl.clients {
		if now.Sub(state.windowStart) > 2*rl.window {
			delete(rl.clients, ip)
		}
	}
}
