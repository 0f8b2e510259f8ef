package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	apperrors "examslots/pkg/errors"
	httputil "examslots/pkg/http"
	"examslots/pkg/logger"

	"golang.org/x/time/rate"
)

const HeaderClaimantID = "X-Claimant-ID"

type ClaimantExtractor func(r *http.Request) string

func DefaultClaimantExtractor(r *http.Request) string {
	return r.Header.Get(HeaderClaimantID)
}

type claimantLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClaimantRateLimiter gives every claimant a token bucket refilled at
// limit per window with a burst of limit.
type ClaimantRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*claimantLimiter
	every     rate.Limit
	burst     int
	window    time.Duration
	extractor ClaimantExtractor
	log       *logger.Logger
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func NewClaimantRateLimiter(limit int, window time.Duration, extractor ClaimantExtractor, log *logger.Logger) *ClaimantRateLimiter {
	if extractor == nil {
		extractor = DefaultClaimantExtractor
	}
	limiter := &ClaimantRateLimiter{
		limiters:  make(map[string]*claimantLimiter),
		every:     rate.Every(window / time.Duration(limit)),
		burst:     limit,
		window:    window,
		extractor: extractor,
		log:       log,
		stopCh:    make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *ClaimantRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// evictIdle drops buckets untouched for a full window; they would be full
// again anyway.
func (rl *ClaimantRateLimiter) evictIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for claimant, l := range rl.limiters {
		if now.Sub(l.lastSeen) > rl.window {
			delete(rl.limiters, claimant)
		}
	}
}

func (rl *ClaimantRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *ClaimantRateLimiter) Allow(claimant string) bool {
	if claimant == "" {
		return true
	}

	now := time.Now()
	rl.mu.Lock()
	l, ok := rl.limiters[claimant]
	if !ok {
		l = &claimantLimiter{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.limiters[claimant] = l
	}
	l.lastSeen = now
	rl.mu.Unlock()

	return l.limiter.AllowN(now, 1)
}

func ClaimantRateLimit(limiter *ClaimantRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claimant := limiter.extractor(r)
			if claimant == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(claimant) {
				limiter.log.Warn("Rate limit exceeded",
					"request_id", RequestIDFromContext(r.Context()),
					"claimant_id", claimant,
					"path", r.URL.Path,
				)
				retryAfter := time.Duration(float64(time.Second) / float64(limiter.every))
				w.Header().Set("Retry-After", strconv.Itoa(max(1, int(retryAfter.Seconds()))))
				httputil.WriteError(w, apperrors.TooManyRequests("Rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
