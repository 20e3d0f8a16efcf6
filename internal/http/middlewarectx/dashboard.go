package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ventures-access/internal/http/response"
	"github.com/magabrotheeeer/ventures-access/internal/lib/sl"
	"github.com/magabrotheeeer/ventures-access/internal/models"
	"github.com/magabrotheeeer/ventures-access/internal/storage/repository"
	"github.com/magabrotheeeer/ventures-access/internal/tiers"
)

// UserGetter загружает пользователя по идентификатору.
type UserGetter interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// AccessChecker проверяет доступ пользователя к дашборду.
type AccessChecker interface {
	CanAccess(ctx context.Context, user *models.User, dashboard string) bool
}

// RequireDashboard пропускает запрос только если пользователю доступен дашборд.
func RequireDashboard(dashboard tiers.Dashboard, users UserGetter, access AccessChecker, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RequireDashboard"
			log := log.With(
				slog.String("op", op),
				slog.String("dashboard", string(dashboard)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			userUID, ok := UserUIDFrom(r.Context())
			if !ok {
				log.Error("user identification missing")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			user, err := users.GetUser(r.Context(), userUID)
			if errors.Is(err, repository.ErrUserNotFound) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user not found"))
				return
			}
			if err != nil {
				log.Error("failed to load user", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal service error"))
				return
			}

			if !access.CanAccess(r.Context(), user, string(dashboard)) {
				log.Info("dashboard access denied", slog.String("user_uid", userUID))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("access to dashboard denied"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
