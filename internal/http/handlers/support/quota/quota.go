// Package quota реализует HTTP-обработчик квоты обращений в поддержку.
//
// Маршрут доступен только пользователям с дашбордом support; проверку выполняет
// middleware RequireDashboard.
package quota

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ventures-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ventures-access/internal/http/response"
	"github.com/magabrotheeeer/ventures-access/internal/lib/sl"
	"github.com/magabrotheeeer/ventures-access/internal/storage/repository"
)

// Response квота; nil означает отсутствие ограничения.
type Response struct {
	MaxSupportRequests *int `json:"max_support_requests"`
}

// Service описывает получение квоты поддержки.
type Service interface {
	SupportRequestLimit(ctx context.Context, userUID string) (*int, error)
}

// Handler обрабатывает запросы квоты поддержки.
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
// @Summary Квота обращений в поддержку
// @Tags Support
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} Response
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Дашборд поддержки недоступен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /support/quota [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.support.quota"
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

	limit, err := h.service.SupportRequestLimit(r.Context(), userUID)
	if errors.Is(err, repository.ErrUserNotFound) {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user not found"))
		return
	}
	if err != nil {
		log.Error("failed to get support quota", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not get support quota"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(Response{MaxSupportRequests: limit}))
}
