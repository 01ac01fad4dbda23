package models

import "time"

// Gift card lifecycle: pending → sent → redeemed.
const (
	GiftCardPending  = "pending"
	GiftCardSent     = "sent"
	GiftCardRedeemed = "redeemed"
)

const (
	AdminRequestPending   = "pending"
	AdminRequestCompleted = "completed"
	AdminRequestGiftCard  = "amazon_gift_card"
)

// Reward credit statuses.
const (
	CreditAccumulated = "accumulated"
	CreditConverted   = "converted"
)

// GiftCard is users/{uid}/amazon_gift_cards/{id}. ClaimCode holds the sealed
// code, never the plain one.
type GiftCard struct {
	ID             string     `json:"id" firestore:"id"`
	UserID         string     `json:"userId" firestore:"user_id"`
	Amount         float64    `json:"amount" firestore:"amount"`
	Code           *string    `json:"-" firestore:"amazon_code"`
	ClaimCode      *string    `json:"-" firestore:"amazon_claim_code"`
	PurchasedAt    *time.Time `json:"purchasedAt" firestore:"purchased_at"`
	SentAt         *time.Time `json:"sentAt" firestore:"sent_at"`
	RedeemedAt     *time.Time `json:"redeemedAt,omitempty" firestore:"redeemed_at,omitempty"`
	Status         string     `json:"status" firestore:"status"`
	RecipientEmail string     `json:"recipientEmail" firestore:"recipient_email"`
	Provider       string     `json:"provider,omitempty" firestore:"provider,omitempty"`
	CreditIDs      []string   `json:"creditIds" firestore:"credit_ids"`
	PointsSpent    float64    `json:"pointsSpent,omitempty" firestore:"points_spent,omitempty"`
	CreatedAt      time.Time  `json:"createdAt" firestore:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" firestore:"updated_at"`
}

// AdminRequest is a work item in admin_requests for the fulfilment team.
type AdminRequest struct {
	ID          string    `json:"id" firestore:"-"`
	Type        string    `json:"type" firestore:"type"`
	UserID      string    `json:"userId" firestore:"user_id"`
	UserEmail   string    `json:"userEmail" firestore:"user_email"`
	GiftCardID  string    `json:"giftCardId" firestore:"gift_card_id"`
	AmazonEmail string    `json:"amazonEmail" firestore:"amazon_email"`
	PhoneNumber string    `json:"phoneNumber,omitempty" firestore:"phone_number,omitempty"`
	Provider    string    `json:"provider,omitempty" firestore:"provider,omitempty"`
	Amount      float64   `json:"amount" firestore:"amount"`
	PointsSpent float64   `json:"pointsSpent,omitempty" firestore:"points_spent,omitempty"`
	Status      string    `json:"status" firestore:"status"`
	CreatedAt   time.Time `json:"createdAt" firestore:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updated_at"`
}

// RewardStats is users/{uid}/amazon_reward_stats/stats.
type RewardStats struct {
	CurrentBalance  float64   `firestore:"current_balance"`
	TotalConverted  float64   `firestore:"total_converted"`
	TotalGiftCards  int       `firestore:"total_gift_cards"`
	LastConvertedAt time.Time `firestore:"last_converted_at,omitempty"`
	UpdatedAt       time.Time `firestore:"updated_at,omitempty"`
}

// RewardCredit is one earned amount under users/{uid}/amazon_reward_credits.
type RewardCredit struct {
	ID         string    `firestore:"-"`
	Amount     float64   `firestore:"amount"`
	Status     string    `firestore:"status"`
	GiftCardID string    `firestore:"gift_card_id,omitempty"`
	EarnedAt   time.Time `firestore:"earned_at"`
}

// CreditChange is a planned update to one reward credit. A partial change only
// lowers the amount and keeps the credit accumulated.
type CreditChange struct {
	CreditID   string
	GiftCardID string
	Partial    bool
	NewAmount  float64
}

// RewardConversion is the full set of writes of one conversion.
type RewardConversion struct {
	Cards          []*GiftCard
	Requests       []*AdminRequest
	Credits        []CreditChange
	Stats          RewardStats
	TotalConverted float64
}

// GiftCardIssue is a batch of new cards, optionally paid for with points.
type GiftCardIssue struct {
	Cards    []*GiftCard
	Requests []*AdminRequest
	// Debit, when set, is applied to the point balance in the same transaction.
	Debit *PointTransaction
}

type ConvertResult struct {
	Success          bool    `json:"success"`
	Message          string  `json:"message"`
	GiftCardsCreated int     `json:"giftCardsCreated,omitempty"`
	TotalConverted   float64 `json:"totalConverted,omitempty"`
	RemainingBalance float64 `json:"remainingBalance"`
}

type GiftCardRequestResult struct {
	Success          bool    `json:"success"`
	Message          string  `json:"message"`
	GiftCardsCreated int     `json:"giftCardsCreated"`
	PointsSpent      float64 `json:"pointsSpent"`
}

type NotifyResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

type RedeemResult struct {
	Success    bool    `json:"success"`
	GiftCardID string  `json:"giftCardId"`
	Amount     float64 `json:"amount"`
	Provider   string  `json:"provider"`
	ClaimCode  string  `json:"claimCode"`
}
