// Package quote реализует HTTP-обработчик расчёта суммы в ETH для оплаты в долларах.
package quote

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/ventures-access/internal/http/response"
	"github.com/magabrotheeeer/ventures-access/internal/priceoracle"
)

// Response данные котировки.
type Response struct {
	USD         float64 `json:"usd"`
	ETHPriceUSD float64 `json:"eth_price_usd"`
	ETHAmount   float64 `json:"eth_amount"`
}

// PriceOracle источник курса ETH.
type PriceOracle interface {
	ETHPriceUSD(ctx context.Context) (float64, bool)
}

// Handler обрабатывает запросы котировки.
type Handler struct {
	log    *slog.Logger
	oracle PriceOracle
}

// New создает новый Handler.
func New(log *slog.Logger, oracle PriceOracle) *Handler {
	return &Handler{
		log:    log,
		oracle: oracle,
	}
}

// ServeHTTP godoc
// @Summary Котировка ETH
// @Description Возвращает курс ETH и сумму в ETH для оплаты указанной суммы в долларах.
// @Tags ETH
// @Produce  json
// @Param usd query number true "Сумма в долларах"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "Некорректная сумма"
// @Failure 503 {object} response.ErrorResponse "Курс недоступен"
// @Router /eth/quote [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.eth.quote"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	usd, err := strconv.ParseFloat(r.URL.Query().Get("usd"), 64)
	if err != nil || usd < 0 || math.IsNaN(usd) || math.IsInf(usd, 0) {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid usd amount"))
		return
	}

	price, ok := h.oracle.ETHPriceUSD(r.Context())
	if !ok {
		log.Warn("eth price unavailable")
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("eth price unavailable"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(Response{
		USD:         usd,
		ETHPriceUSD: price,
		ETHAmount:   priceoracle.ETHAmount(usd, price),
	}))
}
