package middlewarectx

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/ventures-access/internal/http/response"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter хранит ограничители частоты запросов по сетевому адресу клиента.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	limit    rate.Limit
	burst    int
}

// NewRateLimiter создаёт ограничитель: limit запросов в секунду и всплеск burst на один адрес.
func NewRateLimiter(limit float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*visitor),
		limit:    rate.Limit(limit),
		burst:    burst,
	}
}

// Allow сообщает, можно ли обработать запрос с адреса key.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	v, ok := l.limiters[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = v
	}
	v.lastSeen = time.Now()
	l.mu.Unlock()
	return v.limiter.Allow()
}

// EvictIdle удаляет ограничители адресов, не обращавшихся дольше idle, и возвращает их число.
func (l *RateLimiter) EvictIdle(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, v := range l.limiters {
		if v.lastSeen.Before(cutoff) {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

// Len возвращает число отслеживаемых адресов.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Reset удаляет накопленные ограничители.
func (l *RateLimiter) Reset() {
	l.mu.Lock()
	l.limiters = make(map[string]*visitor)
	l.mu.Unlock()
}

// RunEvictor периодически удаляет простаивающие ограничители до отмены контекста.
func (l *RateLimiter) RunEvictor(ctx context.Context, interval, idle time.Duration, log *slog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.EvictIdle(idle); n > 0 {
				log.Debug("rate limiters evicted", slog.Int("count", n))
			}
		}
	}
}

// RateLimitMiddleware отклоняет запросы сверх лимита со статусом 429.
func RateLimitMiddleware(limiter *RateLimiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !limiter.Allow(key) {
				log.Warn("too many requests", slog.String("client", key))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey берёт адрес из RemoteAddr, поэтому маршрут не должен проходить через middleware.RealIP:
// иначе ключ задаётся заголовками X-Forwarded-For и X-Real-IP самого клиента.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
