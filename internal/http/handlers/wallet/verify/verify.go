// Package verify реализует HTTP-обработчик входа по подписи кошелька.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/ventures-access/internal/http/response"
	"github.com/magabrotheeeer/ventures-access/internal/lib/sl"
	"github.com/magabrotheeeer/ventures-access/internal/models"
	services "github.com/magabrotheeeer/ventures-access/internal/services/auth"
)

// Request входные данные для проверки подписи.
type Request struct {
	Address   string `json:"address" validate:"required,len=42"`
	Nonce     string `json:"nonce" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// UserInfo краткие сведения о пользователе в ответе.
type UserInfo struct {
	UID           string `json:"uid"`
	WalletAddress string `json:"wallet_address"`
}

// Response данные успешного входа.
type Response struct {
	Token     string                  `json:"token"`
	ExpiresAt time.Time               `json:"expires_at"`
	User      UserInfo                `json:"user"`
	Access    models.AccessDescriptor `json:"access"`
}

// Service описывает вход по подписи.
type Service interface {
	Login(ctx context.Context, address, nonce, signature string) (*services.LoginResult, error)
}

// Handler обрабатывает запросы на вход через кошелёк.
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
// @Summary Вход по подписи кошелька
// @Description Проверяет nonce и подпись, создаёт пользователя при первом входе и возвращает JWT и права доступа.
// @Tags Wallet
// @Accept  json
// @Produce  json
// @Param request body Request true "Адрес, nonce и подпись"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или адрес"
// @Failure 401 {object} response.ErrorResponse "Неверный nonce или подпись"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /wallet/verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.wallet.verify"
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

	result, err := h.service.Login(r.Context(), req.Address, req.Nonce, req.Signature)
	switch {
	case errors.Is(err, services.ErrInvalidAddress):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid wallet address"))
		return
	case errors.Is(err, services.ErrInvalidNonce):
		log.Info("nonce rejected", slog.String("address", req.Address))
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid or expired nonce"))
		return
	case errors.Is(err, services.ErrInvalidSignature):
		log.Info("signature rejected", slog.String("address", req.Address))
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	case err != nil:
		log.Error("login failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(Response{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User: UserInfo{
			UID:           result.User.UID,
			WalletAddress: result.User.WalletAddress,
		},
		Access: result.Access,
	}))
}
