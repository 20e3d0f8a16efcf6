package nonce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/ventures-access/internal/lib/sl"
	"github.com/magabrotheeeer/ventures-access/internal/metrics"
)

const keyPrefix = "wallet_nonce:"

// RedisStore хранит nonce в Redis. Истечение обеспечивается TTL ключа,
// поэтому Sweep ничего не делает.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
	log    *slog.Logger
}

// NewRedisStore создаёт хранилище nonce поверх клиента Redis.
func NewRedisStore(client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		now:    time.Now,
		log:    log,
	}
}

func key(address string) string {
	return keyPrefix + address
}

// Issue записывает новый nonce, перезаписывая предыдущий.
func (s *RedisStore) Issue(ctx context.Context, address string) (string, error) {
	const op = "nonce.RedisStore.Issue"
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	address = normalize(address)

	data, err := json.Marshal(Record{Nonce: token, ExpiresAt: s.now().Add(s.ttl)})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := s.client.Set(ctx, key(address), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	metrics.NoncesIssued.Inc()
	return token, nil
}

// Verify проверяет nonce. Ошибки Redis логируются и трактуются как неуспешная проверка.
func (s *RedisStore) Verify(ctx context.Context, address, nonce string) bool {
	const op = "nonce.RedisStore.Verify"
	address = normalize(address)

	value, err := s.client.Get(ctx, key(address)).Result()
	if errors.Is(err, redis.Nil) {
		metrics.NonceVerifications.WithLabelValues("missing").Inc()
		return false
	}
	if err != nil {
		s.log.Error("failed to read nonce", sl.Op(op), sl.Err(err))
		metrics.NonceVerifications.WithLabelValues("error").Inc()
		return false
	}

	var rec Record
	if err := json.Unmarshal([]byte(value), &rec); err != nil {
		s.log.Error("failed to decode nonce record", sl.Op(op), sl.Err(err))
		metrics.NonceVerifications.WithLabelValues("error").Inc()
		return false
	}
	if s.now().After(rec.ExpiresAt) {
		s.Consume(ctx, address)
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
func (s *RedisStore) Consume(ctx context.Context, address string) {
	const op = "nonce.RedisStore.Consume"
	if err := s.client.Del(ctx, key(normalize(address))).Err(); err != nil {
		s.log.Warn("failed to delete nonce", sl.Op(op), sl.Err(err))
	}
}

// Sweep ничего не делает: Redis удаляет ключи по TTL.
func (s *RedisStore) Sweep(context.Context) {}
