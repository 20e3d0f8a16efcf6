// Package tier определяет уровень доступа пользователя по его флагам ролей,
// привязке к клиенту, сигналам оплаты и пробному периоду.
//
// Определение уровня не хранит состояния между вызовами: результат зависит только
// от текущих полей пользователя и текущего времени. Единственные изменения, которые
// выполняет пакет, это StartTrial и Upgrade; сохранение изменений остаётся за вызывающим.
package tier

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/ventures-access/internal/metrics"
	"github.com/magabrotheeeer/ventures-access/internal/models"
	"github.com/magabrotheeeer/ventures-access/internal/services/payment"
	"github.com/magabrotheeeer/ventures-access/internal/tiers"
)

// TrialDuration длительность пробного периода.
const TrialDuration = 7 * 24 * time.Hour

// PaymentAggregator источник сводных платёжных сигналов.
type PaymentAggregator interface {
	Aggregate(ctx context.Context, user *models.User) payment.Signals
}

// ClientTierLookup определяет уровень по записи клиента, к которой привязан пользователь.
type ClientTierLookup interface {
	ClientTier(ctx context.Context, clientID string) (tiers.Tier, bool)
}

// NoClientLookup не находит уровня ни для одного клиента.
type NoClientLookup struct{}

// ClientTier реализует ClientTierLookup.
func (NoClientLookup) ClientTier(context.Context, string) (tiers.Tier, bool) {
	return "", false
}

// Resolver вычисляет уровень доступа.
type Resolver struct {
	payments PaymentAggregator
	clients  ClientTierLookup
	now      func() time.Time
	log      *slog.Logger
}

// Option настраивает Resolver.
type Option func(*Resolver)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithClientLookup задаёт поиск уровня по клиенту.
func WithClientLookup(l ClientTierLookup) Option {
	return func(r *Resolver) { r.clients = l }
}

// NewResolver создаёт Resolver.
func NewResolver(payments PaymentAggregator, log *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		payments: payments,
		clients:  NoClientLookup{},
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now возвращает текущее время по часам Resolver.
func (r *Resolver) Now() time.Time {
	return r.now()
}

// Resolve возвращает уровень пользователя. Правила применяются по порядку,
// первое сработавшее определяет результат.
func (r *Resolver) Resolve(ctx context.Context, user *models.User) tiers.Tier {
	t := r.resolve(ctx, user)
	metrics.TierResolutions.WithLabelValues(string(t)).Inc()
	return t
}

func (r *Resolver) resolve(ctx context.Context, user *models.User) tiers.Tier {
	if user == nil {
		return tiers.Prospect
	}
	if user.IsAdmin {
		return tiers.Admin
	}
	if user.IsEmployee {
		return tiers.Employee
	}
	if user.ClientID != nil && *user.ClientID != "" {
		if t, ok := r.clients.ClientTier(ctx, *user.ClientID); ok && t.Valid() {
			return t
		}
	}
	if s := r.payments.Aggregate(ctx, user); s.HasPayment {
		return tiers.ForAmount(s.AmountUSD)
	}
	return tiers.Prospect
}

// TrialActive сообщает, идёт ли пробный период.
func (r *Resolver) TrialActive(user *models.User) bool {
	if user == nil || user.TrialStartDate == nil {
		return false
	}
	now := r.now()
	start := *user.TrialStartDate
	return !now.Before(start) && now.Before(start.Add(TrialDuration))
}

// TrialExpiry возвращает момент окончания пробного периода, если он был начат.
func (r *Resolver) TrialExpiry(user *models.User) (time.Time, bool) {
	if user == nil || user.TrialStartDate == nil {
		return time.Time{}, false
	}
	return user.TrialStartDate.Add(TrialDuration), true
}

// StartTrial начинает пробный период с текущего момента и возвращает момент его окончания.
func (r *Resolver) StartTrial(user *models.User) time.Time {
	now := r.now()
	user.TrialStartDate = &now
	return now.Add(TrialDuration)
}

// Upgrade переводит пользователя на уровень target, изменяя поля пользователя.
// Возвращает false для неизвестного уровня, для Prospect и если переданная сумма
// меньше цены тарифа.
func (r *Resolver) Upgrade(user *models.User, target tiers.Tier, paymentAmount *float64) bool {
	if user == nil || !target.Purchasable() {
		return false
	}
	plan, _ := tiers.PlanFor(target)
	if paymentAmount != nil && *paymentAmount < plan.PriceUSD {
		r.log.Info("upgrade rejected: insufficient payment",
			slog.String("target", string(target)),
			slog.Float64("amount", *paymentAmount),
			slog.Float64("price", plan.PriceUSD),
		)
		return false
	}

	switch target {
	case tiers.Admin:
		user.IsAdmin = true
	case tiers.Employee:
		user.IsEmployee = true
	default:
		price := plan.PriceUSD
		user.MembershipPaid = true
		user.SubscriptionUpdateActive = true
		user.SubscriptionAmountUSD = &price
	}
	return true
}
