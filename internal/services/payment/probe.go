package payment

import (
	"context"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/ventures-access/internal/config"
)

// StubProbe заглушка проверки платежей в блокчейне: всегда сообщает об отсутствии платежа.
// Подключение индексатора транзакций выполняется заменой реализации ChainPaymentProbe.
type StubProbe struct {
	receivingAddress string
	log              *slog.Logger
}

// NewStubProbe создаёт заглушку. Пустой адрес заменяется нулевым.
func NewStubProbe(receivingAddress string, log *slog.Logger) *StubProbe {
	if strings.TrimSpace(receivingAddress) == "" {
		receivingAddress = config.NullAddress
	}
	return &StubProbe{receivingAddress: receivingAddress, log: log}
}

// Enabled сообщает, задан ли реальный адрес получателя.
func (p *StubProbe) Enabled() bool {
	return !strings.EqualFold(p.receivingAddress, config.NullAddress)
}

// CheckPayment реализует ChainPaymentProbe.
func (p *StubProbe) CheckPayment(_ context.Context, address string, lookbackDays int) (bool, *float64) {
	if !p.Enabled() {
		p.log.Warn("eth payment verification disabled: receiving address not configured",
			slog.String("address", address))
		return false, nil
	}
	p.log.Debug("eth payment probe not connected",
		slog.String("address", address),
		slog.String("receiving_address", p.receivingAddress),
		slog.Int("lookback_days", lookbackDays),
	)
	return false, nil
}
