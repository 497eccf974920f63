package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter table before idle entries are pruned
const maxTrackedClients = 1000

// FailedAuthLimiter turns away clients that keep presenting bad tokens.
// Each client gets a bucket of attempts that refills evenly over the
// window; a successful authentication forgets the client.
type FailedAuthLimiter struct {
	mu      sync.Mutex
	clients map[string]*rate.Limiter
	every   rate.Limit
	burst   int
	now     func() time.Time
}

// NewFailedAuthLimiter allows attempts failures per client within window
func NewFailedAuthLimiter(attempts int, window time.Duration) *FailedAuthLimiter {
	return &FailedAuthLimiter{
		clients: make(map[string]*rate.Limiter),
		every:   rate.Every(window / time.Duration(attempts)),
		burst:   attempts,
		now:     time.Now,
	}
}

// Blocked reports whether client has used up its failed attempts
func (l *FailedAuthLimiter) Blocked(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.clients[client]
	return ok && lim.TokensAt(l.now()) < 1
}

// Failed records a failed attempt by client
func (l *FailedAuthLimiter) Failed(client string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	lim, ok := l.clients[client]
	if !ok {
		if len(l.clients) >= maxTrackedClients {
			l.pruneLocked(now)
		}
		lim = rate.NewLimiter(l.every, l.burst)
		l.clients[client] = lim
	}
	lim.AllowN(now, 1)
}

// Reset forgets client after a successful authentication
func (l *FailedAuthLimiter) Reset(client string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.clients, client)
}

// pruneLocked drops clients whose bucket has refilled completely
func (l *FailedAuthLimiter) pruneLocked(now time.Time) {
	for client, lim := range l.clients {
		if lim.TokensAt(now) >= float64(l.burst) {
			delete(l.clients, client)
		}
	}
}

// clientID identifies the caller, preferring proxy headers
func clientID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
