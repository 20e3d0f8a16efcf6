// Package nonce реализует HTTP-обработчик выдачи challenge-сообщения для входа через кошелёк.
//
// Handler принимает адрес кошелька, запрашивает у сервиса новый одноразовый nonce
// и возвращает текст сообщения, которое пользователь должен подписать.
package nonce

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/ventures-access/internal/http/response"
	"github.com/magabrotheeeer/ventures-access/internal/lib/sl"
	services "github.com/magabrotheeeer/ventures-access/internal/services/auth"
)

// Request входные данные запроса nonce.
type Request struct {
	Address string `json:"address" validate:"required,len=42"`
}

// Response данные успешного ответа.
type Response struct {
	Nonce     string `json:"nonce"`
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in"`
}

// Service описывает выдачу challenge-сообщения.
type Service interface {
	Challenge(ctx context.Context, address string) (*services.Challenge, error)
}

// Handler обрабатывает запросы на получение nonce.
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
// @Summary Получить nonce для входа через кошелёк
// @Description Выдаёт одноразовый nonce и текст сообщения для подписи кошельком.
// @Tags Wallet
// @Accept  json
// @Produce  json
// @Param request body Request true "Адрес кошелька"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или адрес"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /wallet/nonce [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.wallet.nonce"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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

	challenge, err := h.service.Challenge(r.Context(), req.Address)
	if errors.Is(err, services.ErrInvalidAddress) {
		log.Info("invalid wallet address", slog.String("address", req.Address))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid wallet address"))
		return
	}
	if err != nil {
		log.Error("failed to issue nonce", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not issue nonce"))
		return
	}

	log.Debug("nonce issued", slog.String("address", req.Address))
	render.JSON(w, r, response.StatusOKWithData(Response{
		Nonce:     challenge.Nonce,
		Message:   challenge.Message,
		ExpiresIn: int(challenge.ExpiresIn.Seconds()),
	}))
}
