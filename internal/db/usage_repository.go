package db

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"qanta-backend-go/internal/models"
	"qanta-backend-go/internal/quota"
)

const (
	dailyUsageCollection   = "ai_usage_daily"
	monthlyUsageCollection = "ai_usage_monthly"
	legacyUsageCollection  = "ai_usage"
)

// Bucket fields that are not request counters.
const (
	fieldBonusCount     = "bonusCount"
	fieldLastUsed       = "lastUsed"
	fieldLastBonusAdded = "lastBonusAdded"
	fieldDate           = "date"
)

type firestoreUsageRepository struct {
	client *firestore.Client
}

func NewFirestoreUsageRepository(client *firestore.Client) UsageRepository {
	return &firestoreUsageRepository{client: client}
}

func (r *firestoreUsageRepository) bucketRef(userID string, period quota.Period, key string) *firestore.DocumentRef {
	coll := dailyUsageCollection
	if period == quota.PeriodMonthly {
		coll = monthlyUsageCollection
	}
	return r.client.Collection(usersCollection).Doc(userID).Collection(coll).Doc(key)
}

func (r *firestoreUsageRepository) GetBucket(ctx context.Context, userID string, period quota.Period, key string) (*models.UsageBucket, error) {
	snap, err := r.bucketRef(userID, period, key).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return &models.UsageBucket{Key: key, Counts: map[string]int{}}, nil
		}
		return nil, fmt.Errorf("failed to read usage bucket %s for user '%s': %w", key, userID, err)
	}
	return decodeBucket(key, snap.Data()), nil
}

// UpdateBucket reads the bucket, lets fn mutate it and writes it back in one
// transaction. Nothing is written when fn fails.
func (r *firestoreUsageRepository) UpdateBucket(ctx context.Context, userID string, period quota.Period, key string, fn func(*models.UsageBucket) error) (*models.UsageBucket, error) {
	ref := r.bucketRef(userID, period, key)
	var out *models.UsageBucket
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		bucket := &models.UsageBucket{Key: key, Counts: map[string]int{}}
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			bucket = decodeBucket(key, snap.Data())
		case !isNotFound(err):
			return err
		}
		if err := fn(bucket); err != nil {
			return err
		}
		out = bucket
		return tx.Set(ref, encodeBucket(bucket), firestore.MergeAll)
	})
	if err != nil {
		return nil, fmt.Errorf("usage bucket %s for user '%s': %w", key, userID, err)
	}
	return out, nil
}

func (r *firestoreUsageRepository) UpdateLegacy(ctx context.Context, userID, month string, fn func(*models.LegacyUsage) error) (*models.LegacyUsage, error) {
	ref := r.client.Collection(usersCollection).Doc(userID).Collection(legacyUsageCollection).Doc(month)
	var out *models.LegacyUsage
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		usage := &models.LegacyUsage{Month: month, UserID: userID, RequestsByType: map[string]int{}}
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			if err := snap.DataTo(usage); err != nil {
				return err
			}
			if usage.RequestsByType == nil {
				usage.RequestsByType = map[string]int{}
			}
		case !isNotFound(err):
			return err
		}
		if err := fn(usage); err != nil {
			return err
		}
		out = usage
		return tx.Set(ref, usage)
	})
	if err != nil {
		return nil, fmt.Errorf("legacy usage %s for user '%s': %w", month, userID, err)
	}
	return out, nil
}

func decodeBucket(key string, data map[string]interface{}) *models.UsageBucket {
	b := &models.UsageBucket{Key: key, Counts: map[string]int{}}
	for k, v := range data {
		switch k {
		case fieldBonusCount:
			b.BonusCount = toInt(v)
		case fieldLastUsed:
			b.LastUsed, _ = v.(time.Time)
		case fieldLastBonusAdded:
			b.LastBonusAdded, _ = v.(time.Time)
		case fieldDate:
		default:
			if n, ok := number(v); ok {
				b.Counts[k] = n
			}
		}
	}
	return b
}

func encodeBucket(b *models.UsageBucket) map[string]interface{} {
	out := map[string]interface{}{
		fieldBonusCount: b.BonusCount,
		fieldDate:       b.Key,
	}
	for k, n := range b.Counts {
		out[k] = n
	}
	if !b.LastUsed.IsZero() {
		out[fieldLastUsed] = b.LastUsed
	}
	if !b.LastBonusAdded.IsZero() {
		out[fieldLastBonusAdded] = b.LastBonusAdded
	}
	return out
}

func number(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}

func toInt(v interface{}) int {
	n, _ := number(v)
	return n
}
