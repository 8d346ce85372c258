// Package domain contains core business types and interfaces.
//
// This file defines quota types limiting quote creation and AI drafting
// based on subscription tier.
package domain

// QuotaType identifies the type of quota being checked.
type QuotaType string

const (
	QuotaTypeQuotes QuotaType = "quotes"
	QuotaTypeAI     QuotaType = "ai"
)

// TierQuota defines the monthly limits for a subscription tier.
type TierQuota struct {
	QuotesPerMonth  int
	AICallsPerMonth int
	UnlimitedQuotes bool
	UnlimitedAI     bool
}

// TierQuotas maps subscription tiers to their quota limits.
// The free "Gratuit" plan is capped; the pro plan is unlimited.
var TierQuotas = map[SubscriptionTier]TierQuota{
	SubscriptionTierFree: {
		QuotesPerMonth:  5,
		AICallsPerMonth: 20,
	},
	SubscriptionTierPro: {
		UnlimitedQuotes: true,
		UnlimitedAI:     true,
	},
}

// QuotaUsage represents current usage against quota limits.
type QuotaUsage struct {
	QuotesUsed   int64
	QuotesLimit  int64
	AICallsUsed  int64
	AICallsLimit int64
	IsUnlimited  bool
}

// GetTierQuota returns the quota for a tier, defaulting to the free
// tier for unknown tiers.
func GetTierQuota(tier SubscriptionTier) TierQuota {
	if quota, ok := TierQuotas[tier]; ok {
		return quota
	}
	return TierQuotas[SubscriptionTierFree]
}
