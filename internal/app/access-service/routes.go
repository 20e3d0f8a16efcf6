// Package accessservice собирает HTTP- и gRPC-серверы сервиса разграничения доступа.
package accessservice

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/ventures-access/internal/http/handlers/access/dashboard"
	"github.com/magabrotheeeer/ventures-access/internal/http/handlers/access/get"
	"github.com/magabrotheeeer/ventures-access/internal/http/handlers/access/options"
	"github.com/magabrotheeeer/ventures-access/internal/http/handlers/access/trial"
	"github.com/magabrotheeeer/ventures-access/internal/http/handlers/access/upgrade"
	"github.com/magabrotheeeer/ventures-access/internal/http/handlers/eth/quote"
	"github.com/magabrotheeeer/ventures-access/internal/http/handlers/health"
	"github.com/magabrotheeeer/ventures-access/internal/http/handlers/support/quota"
	"github.com/magabrotheeeer/ventures-access/internal/http/handlers/wallet/nonce"
	"github.com/magabrotheeeer/ventures-access/internal/http/handlers/wallet/verify"
	"github.com/magabrotheeeer/ventures-access/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/ventures-access/internal/services/auth"
	subservice "github.com/magabrotheeeer/ventures-access/internal/services/subscription"
	"github.com/magabrotheeeer/ventures-access/internal/tiers"
)

// Deps зависимости, необходимые для регистрации маршрутов.
type Deps struct {
	Auth          *authservice.AuthService
	Subscriptions *subservice.SubscriptionService
	Users         middlewarectx.UserGetter
	Access        middlewarectx.AccessChecker
	Tokens        middlewarectx.TokenParser
	Oracle        quote.PriceOracle
	NonceLimiter  *middlewarectx.RateLimiter
	HealthChecks  map[string]health.Pinger
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/health", health.New(logger, deps.HealthChecks).ServeHTTP)
		r.With(middlewarectx.RateLimitMiddleware(deps.NonceLimiter, logger)).
			Post("/wallet/nonce", nonce.New(logger, deps.Auth).ServeHTTP)
		r.Post("/wallet/verify", verify.New(logger, deps.Auth).ServeHTTP)
		r.Get("/eth/quote", quote.New(logger, deps.Oracle).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(deps.Tokens, logger))
			r.Get("/access", get.New(logger, deps.Subscriptions).ServeHTTP)
			r.Get("/access/dashboards/{name}", dashboard.New(logger, deps.Subscriptions).ServeHTTP)
			r.Get("/access/upgrade-options", options.New(logger, deps.Subscriptions).ServeHTTP)
			r.Post("/access/trial", trial.New(logger, deps.Subscriptions).ServeHTTP)
			r.Post("/access/upgrade", upgrade.New(logger, deps.Subscriptions).ServeHTTP)

			r.With(middlewarectx.RequireDashboard(tiers.Support, deps.Users, deps.Access, logger)).
				Get("/support/quota", quota.New(logger, deps.Subscriptions).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
