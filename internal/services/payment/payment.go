// Package payment сводит сигналы оплаты пользователя по трём независимым каналам
// (подписка Shopify/Bold, устаревшее членство Patreon, платёж в ETH) к одному признаку
// оплаты и сумме в долларах.
//
// Агрегатор только читает поля пользователя, уже заполненные внешними обработчиками,
// и сам не обращается к платёжным провайдерам.
package payment

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/ventures-access/internal/models"
	"github.com/magabrotheeeer/ventures-access/internal/tiers"
)

// DefaultLookbackDays глубина поиска платежей в блокчейне по умолчанию.
const DefaultLookbackDays = 30

// Signals итог агрегации платёжных сигналов.
type Signals struct {
	HasPayment bool
	AmountUSD  float64
}

// AmountConverter пересчитывает сумму платежа в ETH в доллары.
type AmountConverter interface {
	ToUSD(ctx context.Context, ethAmount float64) float64
}

// ChainPaymentProbe проверяет наличие платежа в блокчейне на адрес получателя.
type ChainPaymentProbe interface {
	CheckPayment(ctx context.Context, address string, lookbackDays int) (bool, *float64)
}

// Aggregator агрегатор платёжных сигналов.
type Aggregator struct {
	converter    AmountConverter
	probe        ChainPaymentProbe
	lookbackDays int
	log          *slog.Logger
}

// Option настраивает Aggregator.
type Option func(*Aggregator)

// WithLookbackDays задаёт глубину поиска платежей в блокчейне. days <= 0 игнорируется.
func WithLookbackDays(days int) Option {
	return func(a *Aggregator) {
		if days > 0 {
			a.lookbackDays = days
		}
	}
}

// NewAggregator создаёт агрегатор. При nil-конвертере сумма в ETH трактуется как доллары,
// при nil-пробе используется заглушка с отключённой проверкой.
func NewAggregator(converter AmountConverter, probe ChainPaymentProbe, log *slog.Logger, opts ...Option) *Aggregator {
	if converter == nil {
		converter = RawConverter{}
	}
	if probe == nil {
		probe = NewStubProbe("", log)
	}
	a := &Aggregator{
		converter:    converter,
		probe:        probe,
		lookbackDays: DefaultLookbackDays,
		log:          log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate возвращает признак оплаты и сумму в долларах.
//
// Сумма берётся из платежа в ETH (через конвертер) и из суммы подписки; если известны
// обе, используется большая. Без данных о сумме принимается цена базового платного тарифа.
func (a *Aggregator) Aggregate(ctx context.Context, user *models.User) Signals {
	if user == nil {
		return Signals{}
	}
	s := Signals{
		HasPayment: user.SubscriptionUpdateActive || user.MembershipPaid || user.EthPaymentVerified,
	}
	found := false
	if user.EthPaymentAmount != nil {
		s.AmountUSD = a.converter.ToUSD(ctx, *user.EthPaymentAmount)
		found = true
	}
	if user.SubscriptionAmountUSD != nil && (!found || *user.SubscriptionAmountUSD > s.AmountUSD) {
		s.AmountUSD = *user.SubscriptionAmountUSD
		found = true
	}
	if !found {
		s.AmountUSD = tiers.BasePaidPriceUSD
	}
	return s
}

// CheckEthPayment проверяет платёж в ETH с адреса пользователя. lookbackDays <= 0
// заменяется глубиной, заданной при создании агрегатора.
func (a *Aggregator) CheckEthPayment(ctx context.Context, address string, lookbackDays int) (bool, *float64) {
	if lookbackDays <= 0 {
		lookbackDays = a.lookbackDays
	}
	return a.probe.CheckPayment(ctx, address, lookbackDays)
}
