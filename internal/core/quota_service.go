package core

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	"qanta-backend-go/internal/cache"
	"qanta-backend-go/internal/db"
	"qanta-backend-go/internal/i18n"
	"qanta-backend-go/internal/models"
	"qanta-backend-go/internal/quota"
)

// QuotaBypassClaim is the custom claim that exempts a user from quotas.
const QuotaBypassClaim = "quotaBypass"

// QuotaConfig holds the static quota settings.
type QuotaConfig struct {
	BypassUIDs    []string
	DefaultOffset string
}

type quotaService struct {
	users  db.UserRepository
	usage  db.UsageRepository
	admins db.AdminRepository
	cache  cache.Cache
	cfg    QuotaConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewQuotaService creates a QuotaService. c may be nil.
func NewQuotaService(users db.UserRepository, usage db.UsageRepository, admins db.AdminRepository, c cache.Cache, cfg QuotaConfig, logger *zap.Logger) QuotaService {
	if cfg.DefaultOffset == "" {
		cfg.DefaultOffset = "+03:00"
	}
	return &quotaService{
		users:  users,
		usage:  usage,
		admins: admins,
		cache:  c,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// tier resolves the caller's tier from the profile. It is read on every call.
func (s *quotaService) tier(ctx context.Context, userID string) (quota.Tier, error) {
	return userTier(ctx, s.users, userID)
}

// userTier reads users/{uid} and resolves its tier; a missing profile is free.
func userTier(ctx context.Context, users db.UserRepository, userID string) (quota.Tier, error) {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return quota.TierFree, nil
		}
		return "", err
	}
	return quota.ResolveTier(&quota.Flags{
		IsTestMode:         user.IsTestMode,
		IsPremium:          user.IsPremium,
		IsPremiumPlus:      user.IsPremiumPlus,
		SubscriptionStatus: user.SubscriptionStatus,
	}), nil
}

// bypassed reports whether the caller is exempt from quotas: listed in
// configuration, carrying the claim, or listed in admins/quota_bypass.
func (s *quotaService) bypassed(ctx context.Context, caller Caller) bool {
	if slices.Contains(s.cfg.BypassUIDs, caller.UID) || caller.ClaimBool(QuotaBypassClaim) {
		return true
	}
	if s.admins == nil {
		return false
	}
	ids, err := cachedList(ctx, s.cache, quotaBypassCacheKey, s.admins.ListQuotaBypass)
	if err != nil {
		s.logger.Warn("Failed to read quota bypass list", zap.Error(err))
		return false
	}
	return slices.Contains(ids, caller.UID)
}

func (s *quotaService) offset(o string) string {
	if o == "" {
		return s.cfg.DefaultOffset
	}
	return o
}

// exhausted builds the localized resource-exhausted error for requestType.
func exhausted(plan quota.Plan, requestType string, st quota.Status, lang string) *Error {
	period := i18n.T(lang, "limits.periods."+string(plan.Period), nil)
	var msg string
	switch {
	case plan.Tier.IsPaid():
		limit := i18n.T(lang, "limits.monthlyLimit", i18n.Params{"limit": plan.BaseLimit(quota.RequestChat)})
		msg = i18n.T(lang, "limits.premiumMonthly", i18n.Params{"period": period, "limit": limit})
	case st.BonusAvailable:
		msg = i18n.T(lang, "limits.freeWithBonus", i18n.Params{"period": period, "type": i18n.T(lang, "limits.types."+requestType, nil)})
	default:
		msg = i18n.T(lang, "limits.freeWithoutBonus", i18n.Params{"period": period, "type": i18n.T(lang, "limits.types."+requestType, nil)})
	}
	return NewError(codes.ResourceExhausted, msg).WithDetails(map[string]interface{}{
		"current":        st.Current,
		"limit":          st.Limit,
		"bonusAvailable": st.BonusAvailable,
		"bonusCount":     st.BonusCount,
		"maxBonus":       st.MaxBonus,
	})
}

func (s *quotaService) CheckDailyLimit(ctx context.Context, caller Caller, requestType, offset, lang string) (quota.Status, error) {
	if err := requireAuth(caller); err != nil {
		return quota.Status{}, err
	}
	if s.bypassed(ctx, caller) {
		return quota.Bypass(), nil
	}
	tier, err := s.tier(ctx, caller.UID)
	if err != nil {
		return quota.Status{}, Internal("Limit check", err)
	}
	plan := quota.PlanFor(tier)
	key := plan.Key(s.now(), s.offset(offset))

	bucket, err := s.usage.GetBucket(ctx, caller.UID, plan.Period, key)
	if err != nil {
		return quota.Status{}, Internal("Limit check", err)
	}
	st := quota.Evaluate(plan, requestType, bucket.Count(requestType), bucket.BonusCount)
	if !st.Allowed {
		s.logger.Info("AI usage limit reached",
			zap.String("user_id", caller.UID),
			zap.String("request_type", requestType),
			zap.String("period_key", key),
			zap.Int("current", st.Current),
			zap.Int("limit", st.Limit))
		return st, exhausted(plan, requestType, st, lang)
	}
	return st, nil
}

// IncrementDailyUsage re-checks every type against its cap inside the bucket
// transaction, so concurrent requests cannot push a counter past its limit.
// Exempt users are counted but never capped.
func (s *quotaService) IncrementDailyUsage(ctx context.Context, caller Caller, offset, lang string, requestTypes ...string) (quota.Status, error) {
	if err := requireAuth(caller); err != nil {
		return quota.Status{}, err
	}
	if len(requestTypes) == 0 {
		return quota.Status{}, fmt.Errorf("no request type to increment")
	}
	bypass := s.bypassed(ctx, caller)
	tier, err := s.tier(ctx, caller.UID)
	if err != nil {
		return quota.Status{}, Internal("Usage increment", err)
	}
	plan := quota.PlanFor(tier)
	now := s.now()
	key := plan.Key(now, s.offset(offset))

	var st quota.Status
	_, err = s.usage.UpdateBucket(ctx, caller.UID, plan.Period, key, func(b *models.UsageBucket) error {
		if !bypass {
			for _, t := range requestTypes {
				cur := quota.Evaluate(plan, t, b.Count(t), b.BonusCount)
				if !cur.Allowed {
					return exhausted(plan, t, cur, lang)
				}
			}
		}
		for _, t := range requestTypes {
			b.Counts[t]++
		}
		b.LastUsed = now
		st = quota.Evaluate(plan, requestTypes[0], b.Count(requestTypes[0]), b.BonusCount)
		return nil
	})
	if err != nil {
		return quota.Status{}, AsError("Usage increment", err)
	}
	if bypass {
		return quota.Bypass(), nil
	}
	return st, nil
}

func (s *quotaService) AddAIBonus(ctx context.Context, caller Caller, offset, lang string) (*models.BonusResult, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}
	tier, err := s.tier(ctx, caller.UID)
	if err != nil {
		return nil, Internal("Add AI bonus", err)
	}
	if tier.IsPaid() {
		return nil, NewError(codes.FailedPrecondition, i18n.T(lang, "limits.bonusPremium", nil))
	}

	now := s.now()
	key := quota.DayKey(now, s.offset(offset))
	var bonus int
	_, err = s.usage.UpdateBucket(ctx, caller.UID, quota.PeriodDaily, key, func(b *models.UsageBucket) error {
		next, ok := quota.NextBonus(b.BonusCount)
		if !ok {
			return NewError(codes.ResourceExhausted, i18n.T(lang, "limits.bonusMaxReached", nil)).
				WithDetails(map[string]interface{}{"currentBonus": b.BonusCount, "maxBonus": quota.MaxBonus})
		}
		b.BonusCount = next
		b.LastBonusAdded = now
		bonus = next
		return nil
	})
	if err != nil {
		return nil, AsError("Add AI bonus", err)
	}
	s.logger.Info("AI bonus added", zap.String("user_id", caller.UID), zap.String("period_key", key), zap.Int("bonus_count", bonus))
	return &models.BonusResult{
		Success:      true,
		BonusAdded:   quota.BonusPerAd,
		CurrentBonus: bonus,
		MaxBonus:     quota.MaxBonus,
		Remaining:    quota.MaxBonus - bonus,
	}, nil
}

// TrackAIUsage bumps the legacy all-types tally of the current UTC month.
func (s *quotaService) TrackAIUsage(ctx context.Context, userID, requestType string) (*models.UsageSummary, error) {
	month := s.now().UTC().Format("2006-01")
	usage, err := s.usage.UpdateLegacy(ctx, userID, month, func(u *models.LegacyUsage) error {
		if u.TotalRequests >= quota.LegacyMonthlyCap {
			return NewError(codes.ResourceExhausted,
				i18n.T(i18n.DefaultLanguage, "limits.legacyMonthlyCap", i18n.Params{"limit": quota.LegacyMonthlyCap}))
		}
		u.TotalRequests++
		u.RequestsByType[requestType]++
		u.LastUsed = s.now()
		return nil
	})
	if err != nil {
		return nil, AsError("Usage tracking", err)
	}
	return &models.UsageSummary{
		Current:   usage.TotalRequests,
		Limit:     quota.LegacyMonthlyCap,
		Remaining: quota.LegacyMonthlyCap - usage.TotalRequests,
		ByType:    maps.Clone(usage.RequestsByType),
	}, nil
}

func (s *quotaService) GetUsageStatus(ctx context.Context, caller Caller, offset string) (*models.UsageStatus, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}
	tier, err := s.tier(ctx, caller.UID)
	if err != nil {
		return nil, Internal("Usage status", err)
	}
	plan := quota.PlanFor(tier)
	key := plan.Key(s.now(), s.offset(offset))
	out := &models.UsageStatus{Tier: tier, Period: plan.Period, PeriodKey: key}

	if s.bypassed(ctx, caller) {
		out.Bypass = true
		out.Chat, out.ChatWithImage = quota.Bypass(), quota.Bypass()
		return out, nil
	}
	bucket, err := s.usage.GetBucket(ctx, caller.UID, plan.Period, key)
	if err != nil {
		return nil, Internal("Usage status", err)
	}
	out.Chat = quota.Evaluate(plan, quota.RequestChat, bucket.Count(quota.RequestChat), bucket.BonusCount)
	out.ChatWithImage = quota.Evaluate(plan, quota.RequestChatWithImage, bucket.Count(quota.RequestChatWithImage), bucket.BonusCount)
	return out, nil
}

// chargeCompleted meters work that has already happened. Losing the cap race
// or a storage failure is logged and the caller keeps its result; preview is
// the status seen before the work and stands in for a failed increment.
// trackType, when set, also bumps the legacy monthly tally.
func chargeCompleted(ctx context.Context, q QuotaService, logger *zap.Logger, caller Caller, offset, lang string, preview quota.Status, trackType string, requestTypes ...string) *models.UsageSummary {
	daily, err := q.IncrementDailyUsage(ctx, caller, offset, lang, requestTypes...)
	if err != nil {
		logger.Warn("Usage not recorded for completed request",
			zap.String("user_id", caller.UID),
			zap.Strings("request_types", requestTypes),
			zap.String("code", CodeOf(err).String()),
			zap.Error(err))
		daily = preview
	}
	if trackType == "" {
		return &models.UsageSummary{Daily: &daily}
	}
	usage, err := q.TrackAIUsage(ctx, caller.UID, trackType)
	if err != nil {
		logger.Warn("Legacy usage not recorded for completed request",
			zap.String("user_id", caller.UID),
			zap.String("request_type", trackType),
			zap.Error(err))
		usage = &models.UsageSummary{Limit: quota.LegacyMonthlyCap, ByType: map[string]int{}}
	}
	usage.Daily = &daily
	return usage
}
