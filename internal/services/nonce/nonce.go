// Package nonce реализует хранилище одноразовых challenge-токенов для входа через кошелёк.
//
// Токен привязан к адресу кошелька в нижнем регистре и живёт ограниченное время.
// Для одного адреса хранится не больше одного токена: повторная выдача перезаписывает
// предыдущий. Проверка токена его не удаляет, удаление выполняется явным Consume
// после успешного входа.
package nonce

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// DefaultTTL время жизни nonce по умолчанию.
const DefaultTTL = 300 * time.Second

const tokenSize = 32

// Store описывает операции хранилища nonce.
type Store interface {
	// Issue выдаёт новый nonce для адреса, заменяя предыдущий.
	Issue(ctx context.Context, address string) (string, error)
	// Verify сообщает, совпадает ли nonce с выданным для адреса и не истёк ли он.
	Verify(ctx context.Context, address, nonce string) bool
	// Consume удаляет nonce адреса; повторный вызов ничего не делает.
	Consume(ctx context.Context, address string)
	// Sweep удаляет все истёкшие записи.
	Sweep(ctx context.Context)
}

// Record запись хранилища.
type Record struct {
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expires_at"`
}

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func generateToken() (string, error) {
	const op = "nonce.generateToken"
	buf := make([]byte, tokenSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
