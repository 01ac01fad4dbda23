package models

import "time"

// ReferralRecord is stored under the referrer at users/{uid}/referrals.
type ReferralRecord struct {
	ID                string    `json:"id" firestore:"id"`
	ReferredUserID    string    `json:"referredUserId" firestore:"referred_user_id"`
	ReferredUserEmail string    `json:"referredUserEmail,omitempty" firestore:"referred_user_email"`
	ReferredUserName  string    `json:"referredUserName,omitempty" firestore:"referred_user_name"`
	ReferralCodeUsed  string    `json:"referralCodeUsed" firestore:"referral_code_used"`
	PointsAwarded     int       `json:"pointsAwarded" firestore:"points_awarded"`
	ReferredAt        time.Time `json:"referredAt" firestore:"referred_at"`
	CreatedAt         time.Time `json:"createdAt" firestore:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" firestore:"updated_at"`
}

// ReferralStats is users/{uid}/referral_stats/stats.
type ReferralStats struct {
	UserID            string    `firestore:"user_id"`
	ReferralCount     int       `firestore:"referral_count"`
	TotalPointsEarned int       `firestore:"total_points_earned"`
	LastReferralAt    time.Time `firestore:"last_referral_at"`
	UpdatedAt         time.Time `firestore:"updated_at"`
}

// ReferralState is what a referral decision is made from. It is read inside the
// same transaction that applies the outcome.
type ReferralState struct {
	Referred        *User
	ReferrerCount   int
	AlreadyRecorded bool
}

// ReferralPlan is the set of writes a referral decision produced. A plan with
// Status max_reached only links the users; a success plan also awards points.
type ReferralPlan struct {
	ReferredID     string
	ReferrerID     string
	Code           string
	OwnCode        string
	Status         string
	Points         int
	Record         *ReferralRecord
	ReferrerCredit *PointTransaction
	ReferredCredit *PointTransaction
	Now            time.Time
}

// ReferralResult is returned by processReferralCode.
type ReferralResult struct {
	Success            bool   `json:"success"`
	Message            string `json:"message"`
	ReferredBy         string `json:"referredBy,omitempty"`
	MaxReached         bool   `json:"maxReached,omitempty"`
	PointsAwarded      int    `json:"pointsAwarded,omitempty"`
	NewReferralCount   int    `json:"newReferralCount,omitempty"`
	ReferrerNewBalance int    `json:"referrerNewBalance,omitempty"`
	NewUserNewBalance  int    `json:"newUserNewBalance,omitempty"`
}

// ReferralOutcome is what the repository reports after applying a plan.
type ReferralOutcome struct {
	ReferralCount   int
	ReferrerBalance int
	ReferredBalance int
}

// ReferralCodeReport is returned by generateReferralCodesForAllUsers.
type ReferralCodeReport struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Updated int    `json:"updated"`
	Skipped int    `json:"skipped"`
	Errors  int    `json:"errors"`
	Total   int    `json:"total"`
}
