package models

import (
	"time"

	"qanta-backend-go/internal/quota"
)

// UsageBucket is one period document under ai_usage_daily or ai_usage_monthly.
// Counters are stored as one top-level field per request type, so the bucket is
// mapped by hand rather than through struct tags.
type UsageBucket struct {
	Key            string
	Counts         map[string]int
	BonusCount     int
	LastUsed       time.Time
	LastBonusAdded time.Time
}

// Count returns the counter of requestType.
func (b *UsageBucket) Count(requestType string) int {
	if b == nil || b.Counts == nil {
		return 0
	}
	return b.Counts[requestType]
}

// LegacyUsage is the all-types monthly tally at users/{uid}/ai_usage/{YYYY-MM}.
type LegacyUsage struct {
	TotalRequests  int            `firestore:"totalRequests"`
	RequestsByType map[string]int `firestore:"requestsByType"`
	Month          string         `firestore:"month"`
	UserID         string         `firestore:"userId"`
	LastUsed       time.Time      `firestore:"lastUsed"`
}

// UsageSummary is the usage block returned by metered endpoints.
type UsageSummary struct {
	Current   int            `json:"current"`
	Limit     int            `json:"limit"`
	Remaining int            `json:"remaining"`
	ByType    map[string]int `json:"byType"`
	Daily     *quota.Status  `json:"daily,omitempty"`
}

// BonusResult is returned by addAIBonus.
type BonusResult struct {
	Success      bool `json:"success"`
	BonusAdded   int  `json:"bonusAdded"`
	CurrentBonus int  `json:"currentBonus"`
	MaxBonus     int  `json:"maxBonus"`
	Remaining    int  `json:"remaining"`
}

// UsageStatus is returned by getUsageStatus.
type UsageStatus struct {
	Tier          quota.Tier   `json:"tier"`
	Period        quota.Period `json:"period"`
	PeriodKey     string       `json:"periodKey"`
	Chat          quota.Status `json:"chat"`
	ChatWithImage quota.Status `json:"chatWithImage"`
	Bypass        bool         `json:"bypass"`
}
