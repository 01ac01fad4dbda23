package models

import "time"

// Point ledger activities.
const (
	ActivitySpecialEvent = "specialEvent"
	ActivityReferral     = "referral"
	ActivityRedemption   = "redemption"
)

// PointTransaction is one ledger entry under users/{uid}/point_transactions.
// Spending entries carry negative Points.
type PointTransaction struct {
	ID          string    `json:"id" firestore:"id"`
	UserID      string    `json:"userId" firestore:"user_id"`
	Points      int       `json:"points" firestore:"points"`
	Activity    string    `json:"activity" firestore:"activity"`
	ReferenceID *string   `json:"referenceId" firestore:"reference_id"`
	Description string    `json:"description" firestore:"description"`
	EarnedAt    time.Time `json:"earnedAt" firestore:"earned_at"`
	CreatedAt   time.Time `json:"createdAt" firestore:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updated_at"`
}

// PointBalance is users/{uid}/point_balance/balance. Counters the backend does
// not own (ad counts, streaks) are left untouched by merge writes.
type PointBalance struct {
	UserID       string    `json:"userId" firestore:"user_id"`
	TotalPoints  int       `json:"totalPoints" firestore:"total_points"`
	TotalEarned  int       `json:"totalEarned" firestore:"total_earned"`
	TotalSpent   int       `json:"totalSpent" firestore:"total_spent"`
	LastEarnedAt time.Time `json:"lastEarnedAt,omitempty" firestore:"last_earned_at,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty" firestore:"updated_at,omitempty"`
}

// Apply adds a ledger entry to the balance. Positive entries count as earned,
// negative ones as spent.
func (b *PointBalance) Apply(tx *PointTransaction) {
	b.TotalPoints += tx.Points
	if tx.Points >= 0 {
		b.TotalEarned += tx.Points
		b.LastEarnedAt = tx.CreatedAt
	} else {
		b.TotalSpent -= tx.Points
	}
	b.UpdatedAt = tx.CreatedAt
}

type AddPointsResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	NewBalance  int    `json:"newBalance"`
	PointsAdded int    `json:"pointsAdded"`
}
