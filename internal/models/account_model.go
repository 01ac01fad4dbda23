package models

import "time"

const (
	AccountCredit = "credit"
	AccountDebit  = "debit"
	AccountCash   = "cash"
)

// Account is users/{uid}/accounts/{id}.
type Account struct {
	ID           string    `json:"id" firestore:"-"`
	UserID       string    `json:"userId" firestore:"user_id"`
	Type         string    `json:"type" firestore:"type"`
	Name         string    `json:"name" firestore:"name"`
	BankName     string    `json:"bankName,omitempty" firestore:"bank_name,omitempty"`
	Balance      float64   `json:"balance" firestore:"balance"`
	CreditLimit  float64   `json:"creditLimit,omitempty" firestore:"credit_limit,omitempty"`
	StatementDay int       `json:"statementDay,omitempty" firestore:"statement_day,omitempty"`
	DueDay       int       `json:"dueDay,omitempty" firestore:"due_day,omitempty"`
	IsActive     bool      `json:"isActive" firestore:"is_active"`
	CreatedAt    time.Time `json:"createdAt" firestore:"created_at,serverTimestamp"`
	UpdatedAt    time.Time `json:"updatedAt" firestore:"updated_at,serverTimestamp"`
}

// IsCard reports whether the account counts towards the free-tier card limit.
func (a *Account) IsCard() bool {
	return a.Type == AccountCredit || a.Type == AccountDebit
}

type CreateCardResult struct {
	Success   bool   `json:"success"`
	AccountID string `json:"accountId"`
	Message   string `json:"message"`
}
