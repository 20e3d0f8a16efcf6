// Package priceoracle получает спотовый курс ETH в долларах у внешнего источника
// и пересчитывает сумму в долларах в сумму в ETH.
//
// Недоступность источника (таймаут, статус не 200, некорректный ответ) возвращается
// как ok == false и означает «проверка оплаты недоступна», а не нулевую сумму.
package priceoracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/magabrotheeeer/ventures-access/internal/lib/sl"
	"github.com/magabrotheeeer/ventures-access/internal/metrics"
)

const (
	// DefaultTimeout таймаут запроса к источнику курса.
	DefaultTimeout = 5 * time.Second

	cacheKey = "price_oracle:eth_usd"
)

// Cache описывает кэш для последнего полученного курса.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Client клиент источника курса в формате CoinGecko simple/price.
type Client struct {
	url        string
	httpClient *http.Client
	cache      Cache
	cacheTTL   time.Duration
	log        *slog.Logger
}

// NewClient создаёт клиента. cache может быть nil, тогда курс не кэшируется.
func NewClient(url string, timeout time.Duration, cache Cache, cacheTTL time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		cacheTTL:   cacheTTL,
		log:        log,
	}
}

type simplePriceResponse struct {
	Ethereum struct {
		USD float64 `json:"usd"`
	} `json:"ethereum"`
}

// ETHPriceUSD возвращает текущий курс ETH в долларах.
func (c *Client) ETHPriceUSD(ctx context.Context) (float64, bool) {
	const op = "priceoracle.ETHPriceUSD"
	log := c.log.With(sl.Op(op))

	if c.cache != nil && c.cacheTTL > 0 {
		var cached float64
		found, err := c.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			log.Warn("failed to read cached price", sl.Err(err))
		}
		if found && cached > 0 {
			metrics.PriceOracleRequests.WithLabelValues("cached").Inc()
			return cached, true
		}
	}

	price, err := c.fetch(ctx)
	if err != nil {
		log.Error("eth price unavailable", sl.Err(err))
		metrics.PriceOracleRequests.WithLabelValues("error").Inc()
		return 0, false
	}
	metrics.PriceOracleRequests.WithLabelValues("ok").Inc()

	if c.cache != nil && c.cacheTTL > 0 {
		if err := c.cache.Set(ctx, cacheKey, price, c.cacheTTL); err != nil {
			log.Warn("failed to cache price", sl.Err(err))
		}
	}
	return price, true
}

// ETHAmountForUSD пересчитывает сумму в долларах в ETH с точностью до 6 знаков.
func (c *Client) ETHAmountForUSD(ctx context.Context, usd float64) (float64, bool) {
	if usd < 0 || math.IsNaN(usd) || math.IsInf(usd, 0) {
		return 0, false
	}
	price, ok := c.ETHPriceUSD(ctx)
	if !ok {
		return 0, false
	}
	return ETHAmount(usd, price), true
}

// ETHAmount пересчитывает usd в ETH по курсу price с точностью до 6 знаков.
func ETHAmount(usd, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return math.Round(usd/price*1e6) / 1e6
}

func (c *Client) fetch(ctx context.Context) (float64, error) {
	const op = "priceoracle.fetch"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var body simplePriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if body.Ethereum.USD <= 0 {
		return 0, fmt.Errorf("%s: %w", op, errors.New("price missing in response"))
	}
	return body.Ethereum.USD, nil
}
