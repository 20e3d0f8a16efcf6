// Package services содержит бизнес-логику управления тарифом пользователя:
// получение прав доступа, запуск пробного периода и повышение тарифа с сохранением
// изменений и публикацией событий.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/magabrotheeeer/ventures-access/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/ventures-access/internal/lib/sl"
	"github.com/magabrotheeeer/ventures-access/internal/models"
	"github.com/magabrotheeeer/ventures-access/internal/tiers"
)

var (
	// ErrTrialAlreadyUsed пробный период уже был начат ранее.
	ErrTrialAlreadyUsed = errors.New("trial already used")
	// ErrUnknownTier запрошен неизвестный уровень.
	ErrUnknownTier = errors.New("unknown tier")
	// ErrNotOnUpgradePath уровень недоступен для перехода с текущего.
	ErrNotOnUpgradePath = errors.New("tier is not an upgrade option")
	// ErrUpgradeRejected повышение отклонено, например из-за недостаточной суммы оплаты.
	ErrUpgradeRejected = errors.New("upgrade rejected")
)

// UserRepository определяет методы для работы с пользователями в хранилище.
type UserRepository interface {
	// GetUser возвращает пользователя по UID.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	// UpdateUser изменяет пользователя под блокировкой строки.
	UpdateUser(ctx context.Context, userUID string, mutate func(u *models.User) error) (*models.User, error)
}

// TierResolver определяет уровень и изменяет поля пробного периода и оплаты.
type TierResolver interface {
	Now() time.Time
	Resolve(ctx context.Context, user *models.User) tiers.Tier
	StartTrial(user *models.User) time.Time
	Upgrade(user *models.User, target tiers.Tier, paymentAmount *float64) bool
}

// AccessProjector строит описание прав пользователя.
type AccessProjector interface {
	GetAccess(ctx context.Context, user *models.User) models.AccessDescriptor
	CanAccess(ctx context.Context, user *models.User, dashboard string) bool
	SupportRequestLimit(ctx context.Context, user *models.User) *int
	UpgradeOptions(ctx context.Context, user *models.User) []models.TierOffer
}

// EventPublisher публикует события изменения доступа.
type EventPublisher interface {
	Publish(ctx context.Context, event models.AccessEvent) error
}

// SubscriptionService управляет тарифом пользователя.
type SubscriptionService struct {
	repo      UserRepository
	resolver  TierResolver
	access    AccessProjector
	publisher EventPublisher
	log       *slog.Logger
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(repo UserRepository, resolver TierResolver, access AccessProjector,
	publisher EventPublisher, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:      repo,
		resolver:  resolver,
		access:    access,
		publisher: publisher,
		log:       log,
	}
}

// GetAccess возвращает права пользователя.
func (s *SubscriptionService) GetAccess(ctx context.Context, userUID string) (models.AccessDescriptor, error) {
	const op = "services.subscription.GetAccess"
	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return models.AccessDescriptor{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.access.GetAccess(ctx, user), nil
}

// CanAccess сообщает, доступен ли пользователю дашборд.
func (s *SubscriptionService) CanAccess(ctx context.Context, userUID, dashboard string) (bool, error) {
	const op = "services.subscription.CanAccess"
	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return s.access.CanAccess(ctx, user, dashboard), nil
}

// SupportRequestLimit возвращает квоту обращений в поддержку.
func (s *SubscriptionService) SupportRequestLimit(ctx context.Context, userUID string) (*int, error) {
	const op = "services.subscription.SupportRequestLimit"
	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.access.SupportRequestLimit(ctx, user), nil
}

// UpgradeOptions возвращает варианты повышения тарифа.
func (s *SubscriptionService) UpgradeOptions(ctx context.Context, userUID string) ([]models.TierOffer, error) {
	const op = "services.subscription.UpgradeOptions"
	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.access.UpgradeOptions(ctx, user), nil
}

// StartTrial запускает пробный период. Повторный запуск запрещён.
func (s *SubscriptionService) StartTrial(ctx context.Context, userUID string) (time.Time, models.AccessDescriptor, error) {
	const op = "services.subscription.StartTrial"
	var expires time.Time
	user, err := s.repo.UpdateUser(ctx, userUID, func(u *models.User) error {
		if u.TrialStartDate != nil {
			return ErrTrialAlreadyUsed
		}
		expires = s.resolver.StartTrial(u)
		return nil
	})
	if errors.Is(err, ErrTrialAlreadyUsed) {
		return time.Time{}, models.AccessDescriptor{}, err
	}
	if err != nil {
		return time.Time{}, models.AccessDescriptor{}, fmt.Errorf("%s: %w", op, err)
	}

	access := s.access.GetAccess(ctx, user)
	s.log.Info("trial started", slog.String("user_uid", user.UID), slog.Time("expires", expires))
	s.publish(ctx, models.AccessEvent{
		Type:          rabbitmq.RoutingTrialStarted,
		UserUID:       user.UID,
		WalletAddress: user.WalletAddress,
		Tier:          access.Tier,
		TrialExpires:  &expires,
		OccurredAt:    s.resolver.Now(),
	})
	return expires, access, nil
}

// Upgrade повышает тариф пользователя до target. Допускаются только уровни из пути
// повышения текущего уровня; сумма оплаты должна покрывать цену тарифа.
func (s *SubscriptionService) Upgrade(ctx context.Context, userUID, target string, paymentAmount *float64) (models.AccessDescriptor, error) {
	const op = "services.subscription.Upgrade"
	targetTier, ok := tiers.Parse(target)
	if !ok {
		return models.AccessDescriptor{}, ErrUnknownTier
	}

	user, err := s.repo.UpdateUser(ctx, userUID, func(u *models.User) error {
		current := s.resolver.Resolve(ctx, u)
		if !slices.Contains(tiers.UpgradePath(current), targetTier) {
			return ErrNotOnUpgradePath
		}
		if !s.resolver.Upgrade(u, targetTier, paymentAmount) {
			return ErrUpgradeRejected
		}
		return nil
	})
	if errors.Is(err, ErrNotOnUpgradePath) || errors.Is(err, ErrUpgradeRejected) {
		return models.AccessDescriptor{}, err
	}
	if err != nil {
		return models.AccessDescriptor{}, fmt.Errorf("%s: %w", op, err)
	}

	access := s.access.GetAccess(ctx, user)
	s.log.Info("tier upgraded", slog.String("user_uid", user.UID), slog.String("tier", string(access.Tier)))
	s.publish(ctx, models.AccessEvent{
		Type:          rabbitmq.RoutingUpgraded,
		UserUID:       user.UID,
		WalletAddress: user.WalletAddress,
		Tier:          access.Tier,
		AmountUSD:     paymentAmount,
		OccurredAt:    s.resolver.Now(),
	})
	return access, nil
}

func (s *SubscriptionService) publish(ctx context.Context, event models.AccessEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish access event", sl.Err(err), slog.String("event", event.Type))
	}
}
