package db

import (
	"context"
	"time"

	"qanta-backend-go/internal/models"
	"qanta-backend-go/internal/quota"
)

// Repositories that change more than one document take a callback that runs
// inside a Firestore transaction. The callback decides, the repository writes.
// An error returned by the callback aborts the transaction and is passed back
// wrapped.

// UserRepository defines the interface for user profile storage operations.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	// Merge writes the given fields into users/{userID}, creating the document if needed.
	Merge(ctx context.Context, userID string, fields map[string]interface{}) error
	FindByReferralCode(ctx context.Context, code string) (*models.User, error)
	ListAll(ctx context.Context) ([]*models.User, error)
	// SetReferralCodes writes referral_code for each user id, 500 documents per
	// batch. It returns how many documents were written and how many failed.
	SetReferralCodes(ctx context.Context, codes map[string]string) (written int, failed int)
}

// UsageRepository stores AI usage buckets.
type UsageRepository interface {
	// GetBucket returns the bucket, or an empty one if it does not exist yet.
	GetBucket(ctx context.Context, userID string, period quota.Period, key string) (*models.UsageBucket, error)
	UpdateBucket(ctx context.Context, userID string, period quota.Period, key string, fn func(*models.UsageBucket) error) (*models.UsageBucket, error)
	UpdateLegacy(ctx context.Context, userID, month string, fn func(*models.LegacyUsage) error) (*models.LegacyUsage, error)
}

// PointsRepository stores the point ledger and balance.
type PointsRepository interface {
	GetBalance(ctx context.Context, userID string) (*models.PointBalance, error)
	// Apply records the ledger entry and updates the balance atomically. A
	// negative entry that would overdraw the balance fails with ErrInsufficientPoints.
	Apply(ctx context.Context, entry *models.PointTransaction) (*models.PointBalance, error)
}

// ReferralRepository applies referral decisions.
type ReferralRepository interface {
	// ProcessReferral reads the referral state and applies the plan decide
	// returns. A nil plan writes nothing and yields a nil outcome.
	ProcessReferral(ctx context.Context, referredID, referrerID string, decide func(models.ReferralState) (*models.ReferralPlan, error)) (*models.ReferralOutcome, error)
}

// GiftCardRepository stores reward credits, gift cards and admin requests.
type GiftCardRepository interface {
	// ConvertRewards reads the reward stats and accumulated credits, oldest
	// first, and applies the conversion plan returns. A missing stats document
	// is ErrNotFound; a nil conversion writes nothing.
	ConvertRewards(ctx context.Context, userID string, plan func(*models.RewardStats, []*models.RewardCredit) (*models.RewardConversion, error)) (*models.RewardConversion, error)
	Issue(ctx context.Context, userID string, issue *models.GiftCardIssue) error
	Get(ctx context.Context, userID, giftCardID string) (*models.GiftCard, error)
	// MarkSent applies fn to the card and completes its admin requests.
	MarkSent(ctx context.Context, userID, giftCardID string, fn func(*models.GiftCard) error) (*models.GiftCard, error)
	Update(ctx context.Context, userID, giftCardID string, fn func(*models.GiftCard) error) (*models.GiftCard, error)
}

// AdminRepository stores the admin and quota-bypass lists.
type AdminRepository interface {
	ListAdmins(ctx context.Context) ([]string, error)
	// AddAdmin adds userID to the admin list. allow is called with the list as
	// read inside the transaction. added is false when userID was already listed.
	AddAdmin(ctx context.Context, userID string, allow func(current []string) error) (added bool, err error)
	ListQuotaBypass(ctx context.Context) ([]string, error)
}

// AccountRepository stores user accounts and cards.
type AccountRepository interface {
	// Create stores the account. When check is non-nil it is called with the
	// number of active credit and debit accounts, read in the same transaction.
	Create(ctx context.Context, account *models.Account, check func(activeCards int) error) (string, error)
}

// SupportRepository stores support requests.
type SupportRepository interface {
	Create(ctx context.Context, req *models.SupportRequest) (string, error)
	GetByID(ctx context.Context, requestID string) (*models.SupportRequest, error)
	Update(ctx context.Context, requestID string, fn func(*models.SupportRequest) error) (*models.SupportRequest, error)
}

// TransactionQuery selects documents of users/{uid}/transactions. Zero fields
// do not filter.
type TransactionQuery struct {
	Since    time.Time
	Type     string
	Category string
}

// TransactionRepository deletes user transactions in bulk.
type TransactionRepository interface {
	DeleteMatching(ctx context.Context, userID string, q TransactionQuery) (int, error)
}

// AuditRepository defines the interface for audit log data storage operations.
type AuditRepository interface {
	Create(ctx context.Context, logEntry models.AuditLog) error
}
