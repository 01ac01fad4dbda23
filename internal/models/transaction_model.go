package models

// TransactionFilter selects documents under users/{uid}/transactions.
// Days nil means no date bound, 0 means since local midnight.
type TransactionFilter struct {
	Days            *int   `json:"days"`
	TransactionType string `json:"transactionType"`
	Category        string `json:"category"`
}

type BulkDeleteResult struct {
	Success      bool          `json:"success"`
	DeletedCount int           `json:"deletedCount"`
	Message      string        `json:"message"`
	Usage        *UsageSummary `json:"usage,omitempty"`
}
