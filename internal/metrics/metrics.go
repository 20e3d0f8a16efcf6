// Package metrics объявляет метрики Prometheus сервиса доступа.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ventures_access"

var (
	// NoncesIssued число выданных nonce.
	NoncesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "nonces_issued_total",
		Help:      "Number of wallet login nonces issued.",
	})

	// NonceVerifications результаты проверки nonce: ok, mismatch, expired, missing, error.
	NonceVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "nonce_verifications_total",
		Help:      "Number of nonce verifications by result.",
	}, []string{"result"})

	// SignatureVerifications результаты проверки подписи кошелька: valid, invalid.
	SignatureVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signature_verifications_total",
		Help:      "Number of wallet signature verifications by result.",
	}, []string{"result"})

	// TierResolutions число вычислений уровня доступа по итоговому уровню.
	TierResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tier_resolutions_total",
		Help:      "Number of tier resolutions by resolved tier.",
	}, []string{"tier"})

	// PriceOracleRequests обращения к источнику курса ETH: ok, cached, error.
	PriceOracleRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "price_oracle_requests_total",
		Help:      "Number of ETH price lookups by result.",
	}, []string{"result"})

	// EventsPublished опубликованные события доступа по типу и результату.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Number of access events published by type and result.",
	}, []string{"event", "result"})
)
