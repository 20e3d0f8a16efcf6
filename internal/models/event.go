package models

import (
	"time"

	"github.com/magabrotheeeer/ventures-access/internal/tiers"
)

// AccessEvent событие изменения доступа пользователя, публикуемое в брокер.
type AccessEvent struct {
	Type          string     `json:"type"`
	UserUID       string     `json:"user_uid"`
	WalletAddress string     `json:"wallet_address"`
	Tier          tiers.Tier `json:"tier"`
	AmountUSD     *float64   `json:"amount_usd,omitempty"`
	TrialExpires  *time.Time `json:"trial_expires,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}
