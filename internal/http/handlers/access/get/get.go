// Package get реализует HTTP-обработчик получения прав доступа текущего пользователя.
package get

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
	"github.com/magabrotheeeer/ventures-access/internal/models"
	"github.com/magabrotheeeer/ventures-access/internal/storage/repository"
)

// Service описывает получение прав пользователя.
type Service interface {
	GetAccess(ctx context.Context, userUID string) (models.AccessDescriptor, error)
}

// Handler обрабатывает запросы на получение прав доступа.
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
// @Summary Права доступа
// @Description Возвращает уровень, дашборды, квоту поддержки и состояние пробного периода текущего пользователя.
// @Tags Access
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} models.AccessDescriptor
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /access [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.access.get"
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

	access, err := h.service.GetAccess(r.Context(), userUID)
	if errors.Is(err, repository.ErrUserNotFound) {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user not found"))
		return
	}
	if err != nil {
		log.Error("failed to get access", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not get access"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(access))
}
