// Package ethsig проверяет подписи сообщений, сделанные кошельком Ethereum
// по схеме personal_sign (EIP-191), и формирует текст challenge-сообщения для входа.
package ethsig

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const signatureLength = 65

// challengeTemplate подписывается кошельком побайтно, менять его нельзя.
const challengeTemplate = "Welcome to iShareHow Ventures!\n\n" +
	"Sign this message to authenticate your wallet.\n\n" +
	"This request will not trigger a blockchain transaction or cost any gas fees.\n\n" +
	"Nonce: %s\n\n" +
	"By signing, you agree to our Terms of Service."

// FormatChallengeMessage возвращает сообщение, которое кошелёк должен подписать для nonce.
func FormatChallengeMessage(nonce string) string {
	return fmt.Sprintf(challengeTemplate, nonce)
}

// IsAddress сообщает, является ли строка адресом вида 0x + 40 hex-символов.
// Адрес без префикса 0x не принимается, даже если остальные 40 символов корректны.
func IsAddress(address string) bool {
	address = strings.TrimSpace(address)
	return strings.HasPrefix(address, "0x") && common.IsHexAddress(address)
}

// Normalize приводит адрес к нижнему регистру без пробелов.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Checksum возвращает адрес в EIP-55 формате. Для некорректного адреса возвращает false.
func Checksum(address string) (string, bool) {
	if !IsAddress(address) {
		return "", false
	}
	return common.HexToAddress(strings.TrimSpace(address)).Hex(), true
}

// VerifySignature проверяет, что signature является подписью message, сделанной владельцем address.
//
// Некорректный адрес, подпись неверной длины, не-hex строка или ошибка восстановления
// ключа приводят к false, паники наружу не выходят.
func VerifySignature(address, message, signature string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	claimed, valid := Checksum(address)
	if !valid {
		return false
	}

	signature = strings.TrimSpace(signature)
	if !strings.HasPrefix(signature, "0x") {
		signature = "0x" + signature
	}
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != signatureLength {
		return false
	}

	// кошельки отдают V = 27/28, восстановление ожидает 0/1
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return false
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return false
	}
	recovered := crypto.PubkeyToAddress(*pub)

	return strings.EqualFold(recovered.Hex(), claimed)
}
