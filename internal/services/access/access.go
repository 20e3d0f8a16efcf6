// Package access разворачивает уровень пользователя в набор доступных дашбордов,
// квоту обращений в поддержку и управленческие права.
package access

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/ventures-access/internal/models"
	"github.com/magabrotheeeer/ventures-access/internal/tiers"
)

// TierResolver определяет уровень пользователя и состояние пробного периода.
type TierResolver interface {
	Resolve(ctx context.Context, user *models.User) tiers.Tier
	TrialActive(user *models.User) bool
	TrialExpiry(user *models.User) (time.Time, bool)
}

// trialTier уровень, права которого получает Prospect на время пробного периода.
const trialTier = tiers.ClientStarter

// Projector строит описание прав пользователя.
type Projector struct {
	resolver TierResolver
	log      *slog.Logger
}

// NewProjector создаёт Projector.
func NewProjector(resolver TierResolver, log *slog.Logger) *Projector {
	return &Projector{resolver: resolver, log: log}
}

// Project возвращает права уровня по статическим таблицам без учёта пробного периода.
// Неизвестный уровень проецируется как Prospect.
func (p *Projector) Project(t tiers.Tier) models.AccessDescriptor {
	if !t.Valid() {
		t = tiers.Prospect
	}
	plan, _ := tiers.PlanFor(t)
	d := models.AccessDescriptor{
		Tier:               t,
		TierName:           plan.Name,
		TierDescription:    plan.Description,
		PriceUSD:           plan.PriceUSD,
		MaxSupportRequests: copyQuota(plan.MaxSupportRequests),
		CanManageClients:   t == tiers.Employee || t == tiers.Admin,
		CanManageEmployees: t == tiers.Admin,
		IsPaying:           t == tiers.User || t.IsClient(),
	}
	setDashboards(&d, tiers.DashboardsFor(t))
	return d
}

// GetAccess возвращает права пользователя. Prospect с активным пробным периодом
// получает дашборды и квоту тарифа Client Starter.
func (p *Projector) GetAccess(ctx context.Context, user *models.User) models.AccessDescriptor {
	t := p.resolver.Resolve(ctx, user)
	d := p.Project(t)
	if t != tiers.Prospect || !p.resolver.TrialActive(user) {
		return d
	}

	d.IsTrial = true
	if expiry, ok := p.resolver.TrialExpiry(user); ok {
		d.TrialExpires = &expiry
	}
	starter, _ := tiers.PlanFor(trialTier)
	d.MaxSupportRequests = copyQuota(starter.MaxSupportRequests)
	setDashboards(&d, tiers.DashboardsFor(trialTier))
	return d
}

// CanAccess сообщает, доступен ли пользователю дашборд. Неизвестное имя даёт false.
func (p *Projector) CanAccess(ctx context.Context, user *models.User, dashboard string) bool {
	if _, ok := tiers.ParseDashboard(dashboard); !ok {
		return false
	}
	return p.GetAccess(ctx, user).DashboardAccess[dashboard]
}

// SupportRequestLimit возвращает квоту обращений в поддержку: nil без ограничения,
// 0 если поддержка недоступна.
func (p *Projector) SupportRequestLimit(ctx context.Context, user *models.User) *int {
	return p.GetAccess(ctx, user).MaxSupportRequests
}

// UpgradeOptions возвращает варианты повышения тарифа для текущего уровня пользователя.
func (p *Projector) UpgradeOptions(ctx context.Context, user *models.User) []models.TierOffer {
	return Offers(p.resolver.Resolve(ctx, user))
}

// Offers возвращает варианты повышения с уровня t.
func Offers(t tiers.Tier) []models.TierOffer {
	path := tiers.UpgradePath(t)
	offers := make([]models.TierOffer, 0, len(path))
	for _, next := range path {
		plan, _ := tiers.PlanFor(next)
		dashboards := tiers.DashboardsFor(next)
		features := make([]string, 0, len(dashboards))
		for _, d := range dashboards {
			features = append(features, string(d))
		}
		offers = append(offers, models.TierOffer{
			Tier:        next,
			Name:        plan.Name,
			Description: plan.Description,
			PriceUSD:    plan.PriceUSD,
			Features:    features,
		})
	}
	return offers
}

func setDashboards(d *models.AccessDescriptor, allowed []tiers.Dashboard) {
	d.Dashboards = make([]string, 0, len(allowed))
	d.DashboardAccess = make(map[string]bool, len(tiers.Dashboards()))
	for _, name := range tiers.Dashboards() {
		d.DashboardAccess[string(name)] = false
	}
	for _, name := range allowed {
		d.Dashboards = append(d.Dashboards, string(name))
		d.DashboardAccess[string(name)] = true
	}
}

func copyQuota(q *int) *int {
	if q == nil {
		return nil
	}
	v := *q
	return &v
}
