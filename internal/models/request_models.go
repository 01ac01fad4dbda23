package models

// Request bodies of the callable endpoints. Each arrives as the "data" member
// of the callable envelope and is validated with the gin binding validator;
// rules the validator cannot express are checked by the services.

// ChatRequest is the body of chatWithAI.
type ChatRequest struct {
	Message             string             `json:"message"`
	ConversationHistory []ChatTurn         `json:"conversationHistory"`
	UserAccounts        []AccountContext   `json:"userAccounts"`
	FinancialSummary    *FinancialSummary  `json:"financialSummary"`
	Budgets             []BudgetContext    `json:"budgets"`
	Categories          []CategoryContext  `json:"categories"`
	StockPortfolio      []StockPosition    `json:"stockPortfolio"`
	StockTransactions   []StockTransaction `json:"stockTransactions"`
	Language            string             `json:"language"`
	Currency            string             `json:"currency"`
	ImageBase64         string             `json:"imageBase64"`
	FileType            string             `json:"fileType" binding:"omitempty,oneof=image pdf"`
	UserTimezone        string             `json:"userTimezone" binding:"omitempty,utcoffset"`
	IsInsightsAnalysis  bool               `json:"isInsightsAnalysis"`
}

// ChatResponse is the result of chatWithAI. Usage is null for insights requests.
type ChatResponse struct {
	Success         bool           `json:"success"`
	Message         string         `json:"message"`
	IsReady         bool           `json:"isReady"`
	TransactionData map[string]any `json:"transactionData"`
	QuickReplies    []string       `json:"quickReplies"`
	TokenUsage      TokenUsage     `json:"tokenUsage"`
	Usage           *UsageSummary  `json:"usage"`
}

type CategorizeRequest struct {
	Description         string   `json:"description"`
	AvailableCategories []string `json:"availableCategories"`
	UserTimezone        string   `json:"userTimezone" binding:"omitempty,utcoffset"`
}

type CategorizeResponse struct {
	Success      bool    `json:"success"`
	CategoryID   string  `json:"categoryId"`
	CategoryName string  `json:"categoryName"`
	CategoryIcon string  `json:"categoryIcon"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
	Timestamp    string  `json:"timestamp,omitempty"`
	IsFallback   bool    `json:"isFallback,omitempty"`
	Error        string  `json:"error,omitempty"`
}

type QuickAddRequest struct {
	Text         string `json:"text"`
	UserTimezone string `json:"userTimezone" binding:"omitempty,utcoffset"`
}

type SummaryRequest struct {
	FinancialData *FinancialSnapshot `json:"financialData"`
	Period        string             `json:"period"`
	Currency      string             `json:"currency"`
	UserTimezone  string             `json:"userTimezone" binding:"omitempty,utcoffset"`
}

type SummaryResponse struct {
	Success bool          `json:"success"`
	Summary string        `json:"summary"`
	Usage   *UsageSummary `json:"usage"`
}

// LimitCheckRequest is the body of checkDailyLimit. RequestType defaults to chat.
type LimitCheckRequest struct {
	RequestType  string `json:"requestType"`
	UserTimezone string `json:"userTimezone" binding:"omitempty,utcoffset"`
	Language     string `json:"language"`
}

// TimezoneRequest is the body of addAIBonus and getUsageStatus.
type TimezoneRequest struct {
	UserTimezone string `json:"userTimezone" binding:"omitempty,utcoffset"`
	Language     string `json:"language"`
}

type BulkDeleteRequest struct {
	Filters      *TransactionFilter `json:"filters"`
	UserTimezone string             `json:"userTimezone" binding:"omitempty,utcoffset"`
}

type CreateCardRequest struct {
	Type         string  `json:"type"`
	Name         string  `json:"name"`
	BankName     string  `json:"bankName"`
	Balance      float64 `json:"balance"`
	CreditLimit  float64 `json:"creditLimit" binding:"gte=0"`
	StatementDay int     `json:"statementDay" binding:"omitempty,min=1,max=31"`
	DueDay       int     `json:"dueDay" binding:"omitempty,min=1,max=31"`
	Language     string  `json:"language"`
}

type SetTestModeRequest struct {
	Enabled *bool `json:"enabled"`
}

type TestModeResult struct {
	Success       bool   `json:"success"`
	IsTestMode    bool   `json:"isTestMode"`
	IsPremium     bool   `json:"isPremium"`
	IsPremiumPlus bool   `json:"isPremiumPlus"`
	Message       string `json:"message"`
}

// UserIDRequest is the body of addAdmin and getUserInfo.
type UserIDRequest struct {
	UserID string `json:"userId"`
}

type AddAdminResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	IsAdmin     bool   `json:"isAdmin,omitempty"`
	TotalAdmins int    `json:"totalAdmins,omitempty"`
}

type UserInfo struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Source  string `json:"source"`
	Error   string `json:"error,omitempty"`
}

type AdminAddPointsRequest struct {
	UserID string  `json:"userId"`
	Points float64 `json:"points"`
	Reason string  `json:"reason"`
}

type ReferralCodeRequest struct {
	ReferralCode string `json:"referralCode"`
}

type ConvertGiftCardRequest struct {
	UserID      string   `json:"userId"`
	AmazonEmail string   `json:"amazonEmail" binding:"omitempty,email"`
	Amount      *float64 `json:"amount"`
}

type GiftCardFromPointsRequest struct {
	UserID      string  `json:"userId"`
	AmazonEmail string  `json:"amazonEmail" binding:"omitempty,email"`
	Amount      float64 `json:"amount"`
	PointsSpent float64 `json:"pointsSpent" binding:"gte=0"`
	Provider    string  `json:"provider" binding:"omitempty,oneof=amazon paribu dnr gratis"`
	PhoneNumber string  `json:"phoneNumber"`
}

type NotifyGiftCardRequest struct {
	UserID     string  `json:"userId"`
	GiftCardID string  `json:"giftCardId"`
	Amount     float64 `json:"amount"`
	Provider   string  `json:"provider"`
	ClaimCode  string  `json:"claimCode"`
}

type RedeemGiftCardRequest struct {
	GiftCardID string `json:"giftCardId"`
}

type SubmitSupportRequest struct {
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Category string `json:"category" binding:"omitempty,oneof=general bug feature account payment other"`
}

type AddSupportMessageRequest struct {
	RequestID  string `json:"requestId"`
	Message    string `json:"message"`
	SenderType string `json:"senderType" binding:"omitempty,oneof=user admin"`
}

type UpdateSupportStatusRequest struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status" binding:"omitempty,oneof=pending in_progress resolved closed"`
}
