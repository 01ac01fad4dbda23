package core

import (
	"context"

	"qanta-backend-go/internal/models"
	"qanta-backend-go/internal/quota"
)

// QuotaService meters AI requests against the caller's tier.
type QuotaService interface {
	// CheckDailyLimit previews whether one more requestType call fits in the
	// current period. It consumes nothing.
	CheckDailyLimit(ctx context.Context, caller Caller, requestType, offset, lang string) (quota.Status, error)
	// IncrementDailyUsage consumes one unit of every request type atomically and
	// returns the status of the first type after the increment.
	IncrementDailyUsage(ctx context.Context, caller Caller, offset, lang string, requestTypes ...string) (quota.Status, error)
	AddAIBonus(ctx context.Context, caller Caller, offset, lang string) (*models.BonusResult, error)
	TrackAIUsage(ctx context.Context, userID, requestType string) (*models.UsageSummary, error)
	GetUsageStatus(ctx context.Context, caller Caller, offset string) (*models.UsageStatus, error)
}

// ChatService runs the assistant conversation.
type ChatService interface {
	Chat(ctx context.Context, caller Caller, req models.ChatRequest) (*models.ChatResponse, error)
}

// TaskService runs the single-shot model tasks.
type TaskService interface {
	Categorize(ctx context.Context, caller Caller, req models.CategorizeRequest) (*models.CategorizeResponse, error)
	QuickAdd(ctx context.Context, caller Caller, req models.QuickAddRequest) (*QuickAddResult, error)
	Summary(ctx context.Context, caller Caller, req models.SummaryRequest) (*models.SummaryResponse, error)
}

// UserService manages the caller's own profile.
type UserService interface {
	// EnsureProfile creates or completes users/{uid} for the caller and
	// processes a pending referral code.
	EnsureProfile(ctx context.Context, caller Caller) (*models.User, error)
	SetTestMode(ctx context.Context, caller Caller, enabled bool) (*models.TestModeResult, error)
}

// AdminService manages the admin list and admin lookups.
type AdminService interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
	AddAdmin(ctx context.Context, caller Caller, userID string) (*models.AddAdminResult, error)
	GetUserInfo(ctx context.Context, caller Caller, userID string) (*models.UserInfo, error)
}

// PointsService manages the point ledger.
type PointsService interface {
	AdminAddPoints(ctx context.Context, caller Caller, req models.AdminAddPointsRequest) (*models.AddPointsResult, error)
}

// ReferralService processes referral codes.
type ReferralService interface {
	ProcessReferralCode(ctx context.Context, caller Caller, code string) (*models.ReferralResult, error)
	GenerateReferralCodes(ctx context.Context, caller Caller) (*models.ReferralCodeReport, error)
}

// GiftCardService converts rewards and points into gift cards.
type GiftCardService interface {
	ConvertToGiftCard(ctx context.Context, caller Caller, req models.ConvertGiftCardRequest) (*models.ConvertResult, error)
	CreateRequestFromPoints(ctx context.Context, caller Caller, req models.GiftCardFromPointsRequest) (*models.GiftCardRequestResult, error)
	// RedeemFromClaim issues cards for a claim written in a support message and
	// debits the points they cost.
	RedeemFromClaim(ctx context.Context, caller Caller, claim models.GiftCardClaim, supportRequestID string) (*models.GiftCardRequestResult, error)
	NotifySent(ctx context.Context, caller Caller, req models.NotifyGiftCardRequest) (*models.NotifyResult, error)
	Redeem(ctx context.Context, caller Caller, giftCardID string) (*models.RedeemResult, error)
}

// CardService creates accounts subject to the free-tier card limit.
type CardService interface {
	CreateCard(ctx context.Context, caller Caller, req models.CreateCardRequest) (*models.CreateCardResult, error)
}

// SupportService manages support requests and their conversation.
type SupportService interface {
	Submit(ctx context.Context, caller Caller, req models.SubmitSupportRequest) (*models.SupportResult, error)
	AddMessage(ctx context.Context, caller Caller, req models.AddSupportMessageRequest) (*models.SupportResult, error)
	UpdateStatus(ctx context.Context, caller Caller, req models.UpdateSupportStatusRequest) (*models.SupportResult, error)
}

// TransactionService deletes user transactions in bulk.
type TransactionService interface {
	BulkDelete(ctx context.Context, caller Caller, req models.BulkDeleteRequest) (*models.BulkDeleteResult, error)
}

// AuditService defines the interface for audit logging operations.
type AuditService interface {
	CreateAuditLog(ctx context.Context, logEntry models.AuditLog) error
}

// Directory looks up accounts in Firebase Authentication.
type Directory interface {
	GetUser(ctx context.Context, userID string) (*models.AuthUser, error)
}
