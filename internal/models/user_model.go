package models

import "time"

// User is the profile document at users/{uid}. Only the fields the backend
// reads or writes are mapped; the app stores more.
type User struct {
	ID                 string    `json:"id" firestore:"-"` // Firebase Auth UID, also the document ID
	Email              string    `json:"email,omitempty" firestore:"email,omitempty"`
	DisplayName        string    `json:"displayName,omitempty" firestore:"displayName,omitempty"`
	Name               string    `json:"name,omitempty" firestore:"name,omitempty"`
	IsTestMode         bool      `json:"isTestMode" firestore:"isTestMode"`
	IsPremium          bool      `json:"isPremium" firestore:"isPremium"`
	IsPremiumPlus      bool      `json:"isPremiumPlus" firestore:"isPremiumPlus"`
	SubscriptionStatus string    `json:"subscriptionStatus,omitempty" firestore:"subscriptionStatus,omitempty"`
	FCMToken           string    `json:"-" firestore:"fcm_token,omitempty"`
	LegacyFCMToken     string    `json:"-" firestore:"fcmToken,omitempty"`
	ReferralCode       string    `json:"referralCode,omitempty" firestore:"referral_code,omitempty"`
	ReferredBy         string    `json:"referredBy,omitempty" firestore:"referred_by,omitempty"`
	ReferredByCode     string    `json:"referredByCode,omitempty" firestore:"referred_by_code,omitempty"`
	ReferralStatus     string    `json:"referralStatus,omitempty" firestore:"referral_status,omitempty"`
	CreatedAt          time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt          time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`

	// Alternative name and email fields written by older app versions.
	EmailAddress  string `json:"-" firestore:"email_address,omitempty"`
	LegacyDisplay string `json:"-" firestore:"display_name,omitempty"`
	FullName      string `json:"-" firestore:"full_name,omitempty"`
	FirstName     string `json:"-" firestore:"first_name,omitempty"`
	LastName      string `json:"-" firestore:"last_name,omitempty"`
}

// Referral statuses stored on the referred user.
const (
	ReferralStatusSuccess    = "success"
	ReferralStatusMaxReached = "max_reached"
)

// PushToken returns the device token, preferring the current field name.
func (u *User) PushToken() string {
	if u.FCMToken != "" {
		return u.FCMToken
	}
	return u.LegacyFCMToken
}

// ContactEmail returns the first non-empty email field.
func (u *User) ContactEmail() string {
	if u.Email != "" && u.Email != "N/A" {
		return u.Email
	}
	return u.EmailAddress
}

// ContactName returns the first non-empty name field.
func (u *User) ContactName() string {
	for _, n := range []string{u.DisplayName, u.Name, u.LegacyDisplay, u.FullName} {
		if n != "" && n != "N/A" {
			return n
		}
	}
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.LastName
	}
}

// AuthUser is the subset of a Firebase Auth record the backend uses.
type AuthUser struct {
	UID         string
	Email       string
	DisplayName string
}
