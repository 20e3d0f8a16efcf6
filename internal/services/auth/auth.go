// Package services реализует вход через кошелёк: выдачу challenge-сообщения с nonce
// и проверку подписи, после которой пользователь получает JWT и описание своих прав.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/ventures-access/internal/lib/ethsig"
	"github.com/magabrotheeeer/ventures-access/internal/lib/jwt"
	"github.com/magabrotheeeer/ventures-access/internal/metrics"
	"github.com/magabrotheeeer/ventures-access/internal/models"
)

var (
	// ErrInvalidAddress адрес кошелька не является адресом Ethereum.
	ErrInvalidAddress = errors.New("invalid wallet address")
	// ErrInvalidNonce nonce отсутствует, истёк или не совпадает.
	ErrInvalidNonce = errors.New("invalid or expired nonce")
	// ErrInvalidSignature подпись не принадлежит адресу.
	ErrInvalidSignature = errors.New("invalid signature")
)

// NonceStore хранилище одноразовых nonce.
type NonceStore interface {
	Issue(ctx context.Context, address string) (string, error)
	Verify(ctx context.Context, address, nonce string) bool
	Consume(ctx context.Context, address string)
}

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// GetOrCreateByWallet возвращает пользователя по адресу кошелька, создавая его при первом входе.
	GetOrCreateByWallet(ctx context.Context, walletAddress string) (*models.User, error)
}

// AccessProjector строит описание прав пользователя.
type AccessProjector interface {
	GetAccess(ctx context.Context, user *models.User) models.AccessDescriptor
}

// Challenge сообщение, которое кошелёк должен подписать.
type Challenge struct {
	Nonce     string
	Message   string
	ExpiresIn time.Duration
}

// LoginResult результат успешного входа.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
	Access    models.AccessDescriptor
}

// AuthService отвечает за вход через кошелёк.
type AuthService struct {
	nonces   NonceStore
	users    UserRepository
	jwtMaker jwt.Maker
	access   AccessProjector
	nonceTTL time.Duration
	log      *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(nonces NonceStore, users UserRepository, jwtMaker jwt.Maker, access AccessProjector,
	nonceTTL time.Duration, log *slog.Logger) *AuthService {
	return &AuthService{
		nonces:   nonces,
		users:    users,
		jwtMaker: jwtMaker,
		access:   access,
		nonceTTL: nonceTTL,
		log:      log,
	}
}

// Challenge выдаёт новый nonce для адреса и текст сообщения для подписи.
// Предыдущий nonce адреса перестаёт действовать.
func (s *AuthService) Challenge(ctx context.Context, address string) (*Challenge, error) {
	const op = "services.auth.Challenge"
	if !ethsig.IsAddress(address) {
		return nil, ErrInvalidAddress
	}
	nonce, err := s.nonces.Issue(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Challenge{
		Nonce:     nonce,
		Message:   ethsig.FormatChallengeMessage(nonce),
		ExpiresIn: s.nonceTTL,
	}, nil
}

// Login проверяет nonce и подпись challenge-сообщения, создаёт пользователя при первом
// входе, выпускает JWT и погашает nonce. При неверной подписи nonce остаётся в силе до истечения.
func (s *AuthService) Login(ctx context.Context, address, nonce, signature string) (*LoginResult, error) {
	const op = "services.auth.Login"
	if !ethsig.IsAddress(address) {
		return nil, ErrInvalidAddress
	}
	wallet := ethsig.Normalize(address)

	if !s.nonces.Verify(ctx, wallet, nonce) {
		return nil, ErrInvalidNonce
	}

	if !ethsig.VerifySignature(address, ethsig.FormatChallengeMessage(nonce), signature) {
		metrics.SignatureVerifications.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidSignature
	}
	metrics.SignatureVerifications.WithLabelValues("valid").Inc()

	user, err := s.users.GetOrCreateByWallet(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	access := s.access.GetAccess(ctx, user)

	token, expiresAt, err := s.jwtMaker.GenerateToken(user.UID, wallet)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.nonces.Consume(ctx, wallet)
	s.log.Info("wallet login",
		slog.String("user_uid", user.UID),
		slog.String("wallet", wallet),
		slog.String("tier", string(access.Tier)),
	)

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
		Access:    access,
	}, nil
}
