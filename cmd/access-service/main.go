// Package main iShareHow Ventures Access API
//
// @title           iShareHow Ventures Access API
// @version         1.0
// @description     Вход через кошелёк, определение уровня доступа, пробный период и повышение тарифа

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	accessservice "github.com/magabrotheeeer/ventures-access/internal/app/access-service"
	"github.com/magabrotheeeer/ventures-access/internal/config"
	"github.com/magabrotheeeer/ventures-access/internal/lib/logger"
	"github.com/magabrotheeeer/ventures-access/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	log := logger.Setup(cfg.Env)

	log.Info("starting access-service", slog.String("env", cfg.Env))
	log.Debug("config loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := accessservice.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	log.Info("access-service stopped gracefully")
}
