package models

import "time"

// Support request statuses in lifecycle order.
const (
	SupportPending    = "pending"
	SupportInProgress = "in_progress"
	SupportResolved   = "resolved"
	SupportClosed     = "closed"
)

var supportOrder = map[string]int{
	SupportPending:    0,
	SupportInProgress: 1,
	SupportResolved:   2,
	SupportClosed:     3,
}

// ValidSupportStatus reports whether s is a known status.
func ValidSupportStatus(s string) bool {
	_, ok := supportOrder[s]
	return ok
}

// CanTransition reports whether a request may move from one status to another.
// Steps may be skipped; moving backwards or staying put is rejected.
func CanTransition(from, to string) bool {
	f, ok := supportOrder[from]
	if !ok {
		return false
	}
	t, ok := supportOrder[to]
	return ok && t > f
}

const (
	SenderUser  = "user"
	SenderAdmin = "admin"
)

type SupportMessage struct {
	ID         string    `json:"id" firestore:"id"`
	SenderType string    `json:"senderType" firestore:"sender_type"`
	SenderID   string    `json:"senderId" firestore:"sender_id"`
	SenderName string    `json:"senderName" firestore:"sender_name"`
	Message    string    `json:"message" firestore:"message"`
	CreatedAt  time.Time `json:"createdAt" firestore:"created_at"`
}

// SupportRequest is support_requests/{id}.
type SupportRequest struct {
	ID         string           `json:"id" firestore:"id"`
	UserID     string           `json:"userId" firestore:"user_id"`
	UserEmail  string           `json:"userEmail" firestore:"user_email"`
	UserName   string           `json:"userName" firestore:"user_name"`
	Subject    string           `json:"subject" firestore:"subject"`
	Message    string           `json:"message" firestore:"message"`
	Category   string           `json:"category" firestore:"category"`
	Status     string           `json:"status" firestore:"status"`
	CreatedAt  time.Time        `json:"createdAt" firestore:"created_at"`
	UpdatedAt  time.Time        `json:"updatedAt" firestore:"updated_at"`
	ResolvedAt *time.Time       `json:"resolvedAt" firestore:"resolved_at"`
	Messages   []SupportMessage `json:"messages" firestore:"messages"`
}

// GiftCardClaim is what a gift-card request written as free text asks for.
type GiftCardClaim struct {
	Provider    string
	Amount      float64 // face value of one card
	Quantity    int
	Email       string
	PhoneNumber string
}

type SupportResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Status    string `json:"status,omitempty"`
}
