// Package upgrade реализует HTTP-обработчик повышения тарифа.
//
// Handler принимает целевой уровень и сумму оплаты, вызывает сервис тарифов
// и возвращает обновлённые права доступа пользователя.
package upgrade

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/ventures-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/ventures-access/internal/http/response"
	"github.com/magabrotheeeer/ventures-access/internal/lib/sl"
	"github.com/magabrotheeeer/ventures-access/internal/models"
	services "github.com/magabrotheeeer/ventures-access/internal/services/subscription"
	"github.com/magabrotheeeer/ventures-access/internal/storage/repository"
)

// Request входные данные повышения тарифа.
type Request struct {
	Tier          string   `json:"tier" validate:"required"`
	PaymentAmount *float64 `json:"payment_amount" validate:"required,gte=0"`
}

// Service описывает повышение тарифа.
type Service interface {
	Upgrade(ctx context.Context, userUID, target string, paymentAmount *float64) (models.AccessDescriptor, error)
}

// Handler обрабатывает запросы повышения тарифа.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Повысить тариф
// @Description Переводит пользователя на уровень из списка вариантов повышения при достаточной сумме оплаты.
// @Tags Access
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Целевой уровень и сумма оплаты"
// @Success 200 {object} models.AccessDescriptor
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или неизвестный уровень"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 409 {object} response.ErrorResponse "Уровень недоступен для повышения"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации или недостаточная оплата"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /access/upgrade [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.access.upgrade"
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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	access, err := h.service.Upgrade(r.Context(), userUID, req.Tier, req.PaymentAmount)
	switch {
	case errors.Is(err, services.ErrUnknownTier):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("unknown tier"))
		return
	case errors.Is(err, services.ErrNotOnUpgradePath):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.Error("tier is not an upgrade option"))
		return
	case errors.Is(err, services.ErrUpgradeRejected):
		log.Info("upgrade rejected", slog.String("tier", req.Tier), slog.Float64("amount", *req.PaymentAmount))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("payment amount is insufficient"))
		return
	case errors.Is(err, repository.ErrUserNotFound):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user not found"))
		return
	case err != nil:
		log.Error("failed to upgrade", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not upgrade"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(access))
}
