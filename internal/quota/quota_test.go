package quota

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestResolveTier(t *testing.T) {
	tests := []struct {
		name  string
		flags *Flags
		want  Tier
	}{
		{"missing profile", nil, TierFree},
		{"empty profile", &Flags{}, TierFree},
		{"test mode wins", &Flags{IsTestMode: true, IsPremium: true}, TierPremiumPlus},
		{"status premium_plus", &Flags{SubscriptionStatus: "premium_plus"}, TierPremiumPlus},
		{"flag premium_plus beats premium", &Flags{IsPremiumPlus: true, IsPremium: true}, TierPremiumPlus},
		{"flag premium", &Flags{IsPremium: true}, TierPremium},
		{"status premium", &Flags{SubscriptionStatus: "premium"}, TierPremium},
		{"unknown status", &Flags{SubscriptionStatus: "canceled"}, TierFree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveTier(tt.flags))
		})
	}
}

func TestPlanBaseLimit(t *testing.T) {
	tests := []struct {
		tier        Tier
		requestType string
		want        int
	}{
		{TierPremiumPlus, RequestChat, 3000},
		{TierPremiumPlus, RequestChatWithImage, 120},
		{TierPremium, RequestChat, 1500},
		{TierPremium, RequestChatWithImage, 50},
		{TierFree, RequestChat, 10},
		{TierFree, RequestChatWithImage, 2},
		{TierFree, "categorize", 10},
		{TierPremium, "bulk_delete", 1500},
	}
	for _, tt := range tests {
		t.Run(string(tt.tier)+"/"+tt.requestType, func(t *testing.T) {
			assert.Equal(t, tt.want, PlanFor(tt.tier).BaseLimit(tt.requestType))
		})
	}
	assert.Equal(t, PeriodDaily, PlanFor(TierFree).Period)
	assert.Equal(t, PeriodMonthly, PlanFor(TierPremium).Period)
	assert.Equal(t, PeriodMonthly, PlanFor(TierPremiumPlus).Period)
}

func TestEvaluateFreeAtLimitOffersBonus(t *testing.T) {
	st := Evaluate(PlanFor(TierFree), RequestChat, 10, 0)

	assert.False(t, st.Allowed)
	assert.Equal(t, 10, st.Current)
	assert.Equal(t, 10, st.Limit)
	assert.True(t, st.BonusAvailable)
	assert.Equal(t, 0, st.BonusCount)
	assert.Equal(t, MaxBonus, st.MaxBonus)
}

func TestEvaluateBonusExtendsFreeOnly(t *testing.T) {
	free := Evaluate(PlanFor(TierFree), RequestChat, 12, 5)
	assert.True(t, free.Allowed)
	assert.Equal(t, 15, free.Limit)
	assert.Equal(t, 3, free.Remaining)

	paid := Evaluate(PlanFor(TierPremium), RequestChat, 12, 5)
	assert.Equal(t, 1500, paid.Limit)
	assert.True(t, paid.IsPremium)
	assert.False(t, paid.BonusAvailable)
}

func TestEvaluateNoBonusLeft(t *testing.T) {
	st := Evaluate(PlanFor(TierFree), RequestChatWithImage, 17, 15)
	assert.False(t, st.Allowed)
	assert.False(t, st.BonusAvailable)
	assert.Equal(t, 0, st.Remaining)
}

func TestNextBonus(t *testing.T) {
	tests := []struct {
		current int
		want    int
		ok      bool
	}{
		{0, 5, true},
		{5, 10, true},
		{12, 15, true},
		{15, 15, false},
		{20, 20, false},
	}
	for _, tt := range tests {
		got, ok := NextBonus(tt.current)
		assert.Equal(t, tt.want, got, "current=%d", tt.current)
		assert.Equal(t, tt.ok, ok, "current=%d", tt.current)
	}
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"+03:00", 3 * time.Hour, true},
		{"-05:00", -5 * time.Hour, true},
		{"+05:30", 5*time.Hour + 30*time.Minute, true},
		{"UTC+09:00", 9 * time.Hour, true},
		{"Europe/Istanbul", 0, false},
		{"", 0, false},
		{"+3:00", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseOffset(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDayKeyBoundary(t *testing.T) {
	// 22:30 UTC on 31 Dec is already 1 Jan in Istanbul but still 31 Dec in New York.
	now := time.Date(2025, 12, 31, 22, 30, 0, 0, time.UTC)

	assert.Equal(t, "2026-01-01", DayKey(now, "+03:00"))
	assert.Equal(t, "2025-12-31", DayKey(now, "-05:00"))
	assert.Equal(t, "2025-12-31", DayKey(now, "garbage"))
	assert.Equal(t, "2026-01", MonthKey(now, "+03:00"))
	assert.Equal(t, "2025-12", MonthKey(now, "-05:00"))
}

func TestDayKeyIgnoresServerZone(t *testing.T) {
	loc := time.FixedZone("server", -7*3600)
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, loc) // 03:00 UTC on 2 June

	assert.Equal(t, "2025-06-02", DayKey(now, "+00:00"))
	assert.Equal(t, "2025-06-01", DayKey(now, "-04:00"))
}

func TestStartOfDay(t *testing.T) {
	now := time.Date(2025, 12, 31, 22, 30, 0, 0, time.UTC)

	// Local midnight of 1 Jan in Istanbul is 21:00 UTC on 31 Dec.
	assert.Equal(t, time.Date(2025, 12, 31, 21, 0, 0, 0, time.UTC), StartOfDay(now, "+03:00"))
	assert.Equal(t, time.Date(2025, 12, 31, 5, 0, 0, 0, time.UTC), StartOfDay(now, "-05:00"))
	assert.Equal(t, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), StartOfDay(now, ""))
}

func TestPlanKey(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-15", PlanFor(TierFree).Key(now, "+03:00"))
	assert.Equal(t, "2025-03", PlanFor(TierPremium).Key(now, "+03:00"))
}

func TestQuotaProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	tiers := gen.OneConstOf(TierFree, TierPremium, TierPremiumPlus)
	types := gen.OneConstOf(RequestChat, RequestChatWithImage, "categorize")

	properties.Property("allowed iff current below limit, remaining = limit - current", prop.ForAll(
		func(tier Tier, requestType string, current, bonus int) bool {
			st := Evaluate(PlanFor(tier), requestType, current, bonus)
			if st.Allowed != (current < st.Limit) {
				return false
			}
			if st.Allowed {
				return st.Remaining == st.Limit-current
			}
			return st.Remaining == 0
		},
		tiers, types, gen.IntRange(0, 4000), gen.IntRange(0, MaxBonus),
	))

	properties.Property("bonus never exceeds the cap", prop.ForAll(
		func(ads int) bool {
			bonus := 0
			for i := 0; i < ads; i++ {
				bonus, _ = NextBonus(bonus)
				if bonus > MaxBonus {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 20),
	))

	properties.Property("day key changes exactly at local midnight", prop.ForAll(
		func(day int, offsetHours int) bool {
			offset := time.Duration(offsetHours) * time.Hour
			label := formatOffset(offsetHours)
			localMidnight := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
			instant := localMidnight.Add(-offset)
			before := DayKey(instant.Add(-time.Second), label)
			at := DayKey(instant, label)
			return before != at && at == localMidnight.Format("2006-01-02")
		},
		gen.IntRange(0, 730), gen.IntRange(-11, 14),
	))

	properties.TestingRun(t)
}

func formatOffset(hours int) string {
	sign := "+"
	if hours < 0 {
		sign = "-"
		hours = -hours
	}
	return sign + time.Date(0, 1, 1, hours, 0, 0, 0, time.UTC).Format("15:04")
}
