package quota

// Request types with an explicit limit. Any other type is metered against the
// chat limit.
const (
	RequestChat          = "chat"
	RequestChatWithImage = "chat_with_image"
)

const (
	// MaxBonus caps the ad-funded extra requests a free user can hold per day.
	MaxBonus = 15
	// BonusPerAd is granted for each rewarded advertisement.
	BonusPerAd = 5
	// BypassLimit is reported for users exempt from quotas.
	BypassLimit = 999999
	// LegacyMonthlyCap bounds the legacy per-month tally.
	LegacyMonthlyCap = 100000
)

// Period is the reset cadence of a bucket.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodMonthly Period = "monthly"
)

// Plan is the limit table of one tier.
type Plan struct {
	Tier   Tier
	Period Period
	Limits map[string]int
}

var plans = map[Tier]Plan{
	TierPremiumPlus: {
		Tier:   TierPremiumPlus,
		Period: PeriodMonthly,
		Limits: map[string]int{RequestChat: 3000, RequestChatWithImage: 120},
	},
	TierPremium: {
		Tier:   TierPremium,
		Period: PeriodMonthly,
		Limits: map[string]int{RequestChat: 1500, RequestChatWithImage: 50},
	},
	TierFree: {
		Tier:   TierFree,
		Period: PeriodDaily,
		Limits: map[string]int{RequestChat: 10, RequestChatWithImage: 2},
	},
}

// PlanFor returns the plan of a tier; unknown tiers get the free plan.
func PlanFor(t Tier) Plan {
	if p, ok := plans[t]; ok {
		return p
	}
	return plans[TierFree]
}

// BaseLimit is the limit for requestType before any bonus.
func (p Plan) BaseLimit(requestType string) int {
	if l, ok := p.Limits[requestType]; ok {
		return l
	}
	return p.Limits[RequestChat]
}

// Status is the outcome of evaluating one request type against a bucket.
type Status struct {
	Allowed        bool `json:"allowed"`
	Current        int  `json:"current"`
	Limit          int  `json:"limit"`
	Remaining      int  `json:"remaining"`
	IsPremium      bool `json:"isPremium"`
	BonusCount     int  `json:"bonusCount"`
	BonusAvailable bool `json:"bonusAvailable"`
	MaxBonus       int  `json:"maxBonus"`
}

// Evaluate computes the status of requestType given the counters currently
// stored in the bucket. Bonus only extends free plans.
func Evaluate(p Plan, requestType string, current, bonusCount int) Status {
	paid := p.Tier.IsPaid()
	limit := p.BaseLimit(requestType)
	if !paid {
		limit += bonusCount
	}
	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Allowed:        current < limit,
		Current:        current,
		Limit:          limit,
		Remaining:      remaining,
		IsPremium:      paid,
		BonusCount:     bonusCount,
		BonusAvailable: !paid && bonusCount < MaxBonus,
		MaxBonus:       MaxBonus,
	}
}

// Bypass is the status reported to exempt users.
func Bypass() Status {
	return Status{
		Allowed:   true,
		Limit:     BypassLimit,
		Remaining: BypassLimit,
		IsPremium: true,
	}
}

// NextBonus returns the bonus count after one more ad, and false when the cap
// was already reached.
func NextBonus(current int) (int, bool) {
	if current >= MaxBonus {
		return current, false
	}
	next := current + BonusPerAd
	if next > MaxBonus {
		next = MaxBonus
	}
	return next, true
}
