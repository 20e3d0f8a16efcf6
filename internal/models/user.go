// Package models содержит доменную модель пользователя платформы в том виде,
// в котором её потребляет ядро разграничения доступа: флаги ролей, сигналы оплаты
// по всем платёжным каналам и дату начала пробного периода.
package models

import "time"

// User представляет пользователя платформы.
//
// Необязательные поля хранятся указателями: nil означает отсутствие значения.
// Все булевы флаги по умолчанию false.
type User struct {
	UID           string // Уникальный идентификатор пользователя
	WalletAddress string // Адрес кошелька в нижнем регистре

	IsAdmin    bool // Администратор платформы
	IsEmployee bool // Сотрудник

	SubscriptionUpdateActive bool     // Активная подписка Shopify/Bold
	MembershipPaid           bool     // Оплаченное членство (Patreon, устаревший канал)
	BoldSubscriptionID       *string  // Идентификатор подписки Bold
	SubscriptionAmountUSD    *float64 // Сумма оформленной подписки в долларах

	EthPaymentVerified bool     // Подтверждённый платёж в ETH
	EthPaymentAmount   *float64 // Сумма платежа в ETH

	TrialStartDate *time.Time // Дата начала пробного периода
	ClientID       *string    // Ссылка на запись клиента

	CreatedAt time.Time
}
