package payment

import (
	"context"
	"log/slog"
)

// RawConverter возвращает сумму в ETH без пересчёта.
type RawConverter struct{}

// ToUSD реализует AmountConverter.
func (RawConverter) ToUSD(_ context.Context, ethAmount float64) float64 {
	return ethAmount
}

// PriceOracle источник спотового курса ETH.
type PriceOracle interface {
	ETHPriceUSD(ctx context.Context) (float64, bool)
}

// SpotConverter пересчитывает сумму по текущему курсу. Если курс недоступен,
// возвращается исходная сумма, как у RawConverter.
type SpotConverter struct {
	oracle PriceOracle
	log    *slog.Logger
}

// NewSpotConverter создаёт конвертер по курсу.
func NewSpotConverter(oracle PriceOracle, log *slog.Logger) *SpotConverter {
	return &SpotConverter{oracle: oracle, log: log}
}

// ToUSD реализует AmountConverter.
func (c *SpotConverter) ToUSD(ctx context.Context, ethAmount float64) float64 {
	price, ok := c.oracle.ETHPriceUSD(ctx)
	if !ok {
		c.log.Warn("eth price unavailable, using raw amount", slog.Float64("eth_amount", ethAmount))
		return ethAmount
	}
	return ethAmount * price
}

// NewConverter выбирает конвертер по режиму из конфигурации: "spot" или "raw".
func NewConverter(mode string, oracle PriceOracle, log *slog.Logger) AmountConverter {
	if mode == "spot" && oracle != nil {
		return NewSpotConverter(oracle, log)
	}
	return RawConverter{}
}
