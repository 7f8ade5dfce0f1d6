package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"syncbridge/pkg/api"

	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per client IP with a token bucket.
// The client is the connecting peer. X-Forwarded-For is only consulted when
// the peer is a trusted proxy.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	trusted  []netip.Prefix
	limiters sync.Map // client IP -> *cachedLimiter

	mu        sync.Mutex
	lastSweep time.Time
}

type RateLimiterOption func(*RateLimiter)

// WithTTL sets how long an idle client's bucket is kept before it is rebuilt.
func WithTTL(ttl time.Duration) RateLimiterOption {
	return func(l *RateLimiter) { l.ttl = ttl }
}

// WithLimit sets the sustained rate in requests per second and the burst size.
// A rate of 0 means unlimited.
func WithLimit(perSecond float64, burst int) RateLimiterOption {
	return func(l *RateLimiter) {
		l.limit = rate.Limit(perSecond)
		l.burst = burst
	}
}

// WithTrustedProxies lists the proxies whose X-Forwarded-For header is believed.
func WithTrustedProxies(prefixes ...netip.Prefix) RateLimiterOption {
	return func(l *RateLimiter) { l.trusted = prefixes }
}

// ParseTrustedProxies accepts single addresses and CIDR ranges.
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", v, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", v, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func NewRateLimiter(opts ...RateLimiterOption) *RateLimiter {
	l := &RateLimiter{ttl: 5 * time.Minute}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
func (l *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// RateLimit=0 means unlimited
			if l.limit > 0 && !l.limiterFor(l.clientKey(r)).Allow() {
				w.Header().Set("Retry-After", "1")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(api.ErrorResponse{
					Status:  http.StatusTooManyRequests,
					Message: "Too Many Requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type cachedLimiter struct {
	limiter   *rate.Limiter
	expiresAt time.Time
}

func (l *RateLimiter) limiterFor(key string) *rate.Limiter {
	now := time.Now()
	l.sweep(now)

	if v, ok := l.limiters.Load(key); ok {
		cached := v.(*cachedLimiter)
		if now.Before(cached.expiresAt) {
			return cached.limiter
		}
		// expired, need to create new
	}

	limiter := rate.NewLimiter(l.limit, l.burst)
	l.limiters.Store(key, &cachedLimiter{
		limiter:   limiter,
		expiresAt: now.Add(l.ttl),
	})
	return limiter
}

// sweep drops expired limiters, at most once per TTL.
func (l *RateLimiter) sweep(now time.Time) {
	l.mu.Lock()
	if now.Sub(l.lastSweep) < l.ttl {
		l.mu.Unlock()
		return
	}
	l.lastSweep = now
	l.mu.Unlock()

	l.limiters.Range(func(key, v any) bool {
		if !now.Before(v.(*cachedLimiter).expiresAt) {
			l.limiters.CompareAndDelete(key, v)
		}
		return true
	})
}

func (l *RateLimiter) isTrusted(addr netip.Addr) bool {
	for _, p := range l.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientKey returns the peer address. Behind trusted proxies it walks
// X-Forwarded-For from the right and returns the first untrusted hop, the
// address the nearest trusted proxy saw.
func (l *RateLimiter) clientKey(r *http.Request) string {
	peer, ok := remoteAddr(r.RemoteAddr)
	if !ok {
		return r.RemoteAddr
	}
	if !l.isTrusted(peer) {
		return peer.String()
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		hop = hop.Unmap()
		if !l.isTrusted(hop) {
			return hop.String()
		}
	}
	return peer.String()
}

func remoteAddr(s string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap(), true
	}
	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}
