// Package trial реализует HTTP-обработчик запуска пробного периода.
//
// Пробный период можно начать один раз; повторный запрос получает 409.
package trial

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ventures-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ventures-access/internal/http/response"
	"github.com/magabrotheeeer/ventures-access/internal/lib/sl"
	"github.com/magabrotheeeer/ventures-access/internal/models"
	services "github.com/magabrotheeeer/ventures-access/internal/services/subscription"
	"github.com/magabrotheeeer/ventures-access/internal/storage/repository"
)

// Response данные ответа.
type Response struct {
	TrialExpires time.Time               `json:"trial_expires"`
	Access       models.AccessDescriptor `json:"access"`
}

// Service описывает запуск пробного периода.
type Service interface {
	StartTrial(ctx context.Context, userUID string) (time.Time, models.AccessDescriptor, error)
}

// Handler обрабатывает запросы запуска пробного периода.
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
// @Summary Начать пробный период
// @Description Запускает 7-дневный пробный период. Доступно один раз на пользователя.
// @Tags Access
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} Response
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 409 {object} response.ErrorResponse "Пробный период уже использован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /access/trial [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.access.trial"
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

	expires, access, err := h.service.StartTrial(r.Context(), userUID)
	switch {
	case errors.Is(err, services.ErrTrialAlreadyUsed):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.Error("trial already used"))
		return
	case errors.Is(err, repository.ErrUserNotFound):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user not found"))
		return
	case err != nil:
		log.Error("failed to start trial", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not start trial"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(Response{
		TrialExpires: expires,
		Access:       access,
	}))
}
