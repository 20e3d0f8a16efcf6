package nonce

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/ventures-access/internal/metrics"
)

// MemoryStore хранит nonce в памяти процесса под мьютексом.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Record
	ttl     time.Duration
	now     func() time.Time
	log     *slog.Logger
}

// MemoryOption настраивает MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// WithTTL задаёт время жизни nonce.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewMemoryStore создаёт пустое хранилище в памяти.
func NewMemoryStore(log *slog.Logger, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]Record),
		ttl:     DefaultTTL,
		now:     time.Now,
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue выдаёт nonce, предварительно удаляя все истёкшие записи.
func (s *MemoryStore) Issue(_ context.Context, address string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	address = normalize(address)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)
	s.entries[address] = Record{Nonce: token, ExpiresAt: now.Add(s.ttl)}

	metrics.NoncesIssued.Inc()
	s.log.Debug("nonce issued", slog.String("address", address))
	return token, nil
}

// Verify проверяет nonce. Истёкшая запись удаляется.
func (s *MemoryStore) Verify(_ context.Context, address, nonce string) bool {
	address = normalize(address)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.entries[address]
	if !ok {
		metrics.NonceVerifications.WithLabelValues("missing").Inc()
		return false
	}
	if s.now().After(rec.ExpiresAt) {
		delete(s.entries, address)
		metrics.NonceVerifications.WithLabelValues("expired").Inc()
		return false
	}
	if !equal(rec.Nonce, nonce) {
		metrics.NonceVerifications.WithLabelValues("mismatch").Inc()
		return false
	}
	metrics.NonceVerifications.WithLabelValues("ok").Inc()
	return true
}

// Consume удаляет nonce адреса.
func (s *MemoryStore) Consume(_ context.Context, address string) {
	address = normalize(address)

	s.mu.Lock()
	delete(s.entries, address)
	s.mu.Unlock()
}

// Sweep удаляет истёкшие записи.
func (s *MemoryStore) Sweep(_ context.Context) {
	s.mu.Lock()
	removed := s.sweepLocked(s.now())
	s.mu.Unlock()

	if removed > 0 {
		s.log.Debug("expired nonces swept", slog.Int("count", removed))
	}
}

// Len возвращает число хранимых записей.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) sweepLocked(now time.Time) int {
	removed := 0
	for addr, rec := range s.entries {
		if rec.ExpiresAt.Before(now) {
			delete(s.entries, addr)
			removed++
		}
	}
	return removed
}
