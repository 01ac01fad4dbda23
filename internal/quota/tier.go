// Package quota holds the pure rules of the AI usage ledger: tier resolution,
// per-tier limits, period keys and the allow/deny arithmetic. Persistence lives in
// internal/db, orchestration in internal/core.
package quota

// Tier is the subscription class a user is billed under.
type Tier string

const (
	TierFree        Tier = "free"
	TierPremium     Tier = "premium"
	TierPremiumPlus Tier = "premium_plus"
)

// IsPaid reports whether the tier is billed monthly (premium or premium_plus).
func (t Tier) IsPaid() bool {
	return t == TierPremium || t == TierPremiumPlus
}

// Flags are the profile fields the resolver looks at.
// A nil *Flags means the profile document does not exist.
type Flags struct {
	IsTestMode         bool
	IsPremium          bool
	IsPremiumPlus      bool
	SubscriptionStatus string
}

// ResolveTier derives the tier from stored profile flags.
// Test mode wins over everything and grants premium_plus.
func ResolveTier(f *Flags) Tier {
	if f == nil {
		return TierFree
	}
	switch {
	case f.IsTestMode:
		return TierPremiumPlus
	case f.SubscriptionStatus == string(TierPremiumPlus) || f.IsPremiumPlus:
		return TierPremiumPlus
	case f.IsPremium || f.SubscriptionStatus == string(TierPremium):
		return TierPremium
	default:
		return TierFree
	}
}
