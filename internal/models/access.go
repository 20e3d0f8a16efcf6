package models

import (
	"time"

	"github.com/magabrotheeeer/ventures-access/internal/tiers"
)

// AccessDescriptor описывает итоговые права пользователя, отдаваемые клиенту в JSON.
type AccessDescriptor struct {
	Tier               tiers.Tier      `json:"tier"`
	TierName           string          `json:"tier_name"`
	TierDescription    string          `json:"tier_description"`
	PriceUSD           float64         `json:"price_usd"`
	Dashboards         []string        `json:"dashboards"`
	DashboardAccess    map[string]bool `json:"dashboard_access"`
	IsTrial            bool            `json:"is_trial"`
	TrialExpires       *time.Time      `json:"trial_expires"`
	MaxSupportRequests *int            `json:"max_support_requests"`
	CanManageClients   bool            `json:"can_manage_clients"`
	CanManageEmployees bool            `json:"can_manage_employees"`
	IsPaying           bool            `json:"is_paying"`
}

// TierOffer описывает вариант повышения тарифа.
type TierOffer struct {
	Tier        tiers.Tier `json:"tier"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	PriceUSD    float64    `json:"price_usd"`
	Features    []string   `json:"features"`
}
