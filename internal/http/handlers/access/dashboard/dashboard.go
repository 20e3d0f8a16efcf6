// Package dashboard реализует HTTP-обработчик проверки доступа к дашборду.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ventures-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ventures-access/internal/http/response"
	"github.com/magabrotheeeer/ventures-access/internal/lib/sl"
	"github.com/magabrotheeeer/ventures-access/internal/storage/repository"
)

// Response результат проверки.
type Response struct {
	Dashboard string `json:"dashboard"`
	Allowed   bool   `json:"allowed"`
}

// Service описывает проверку доступа к дашборду.
type Service interface {
	CanAccess(ctx context.Context, userUID, dashboard string) (bool, error)
}

// Handler обрабатывает запросы проверки доступа к дашборду.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Проверка доступа к дашборду
// @Description Сообщает, доступен ли дашборд текущему пользователю. Неизвестный дашборд недоступен.
// @Tags Access
// @Produce  json
// @Security BearerAuth
// @Param name path string true "Идентификатор дашборда"
// @Success 200 {object} Response
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /access/dashboards/{name} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.access.dashboard"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		log.Error("user uid not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	name := chi.URLParam(r, "name")
	allowed, err := h.service.CanAccess(r.Context(), userUID, name)
	if errors.Is(err, repository.ErrUserNotFound) {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user not found"))
		return
	}
	if err != nil {
		log.Error("failed to check dashboard access", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not check access"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(Response{
		Dashboard: name,
		Allowed:   allowed,
	}))
}
