package models

// ChatTurn is one prior message of the conversation, as sent by the app.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "model"
	Content string `json:"content"`
}

// AccountContext is an account as the app presents it to the assistant.
type AccountContext struct {
	Name              string  `json:"name"`
	DisplayName       string  `json:"displayName,omitempty"`
	Type              string  `json:"type"` // credit, debit, cash
	TypeDisplay       string  `json:"typeDisplay,omitempty"`
	Balance           float64 `json:"balance"`
	CreditLimit       float64 `json:"creditLimit,omitempty"`
	AvailableCredit   float64 `json:"availableCredit,omitempty"`
	CreditUtilization float64 `json:"creditUtilization,omitempty"`
	NextStatementDate string  `json:"nextStatementDate,omitempty"`
	NextDueDate       string  `json:"nextDueDate,omitempty"`
	PaymentDueSoon    bool    `json:"paymentDueSoon,omitempty"`
	DaysUntilDue      int     `json:"daysUntilDue,omitempty"`
}

// MonthFigures are the income/expense totals of one month.
type MonthFigures struct {
	Income            float64 `json:"income"`
	Expense           float64 `json:"expense"`
	Balance           float64 `json:"balance"`
	DailyAverage      float64 `json:"dailyAverage"`
	ProjectedMonthEnd float64 `json:"projectedMonthEnd"`
	DaysRemaining     int     `json:"daysRemaining"`
}

type MonthComparison struct {
	ExpenseChange        float64 `json:"expenseChange"`
	ExpenseChangePercent float64 `json:"expenseChangePercent"`
}

type CategoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type RecentTransaction struct {
	Type     string  `json:"type"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// CategoryStats is the 90-day aggregate the app computes per category.
type CategoryStats struct {
	Category  string   `json:"category"`
	Total     float64  `json:"total"`
	Count     int      `json:"count"`
	Average   float64  `json:"average"`
	Frequency float64  `json:"frequency"` // transactions per day
	Min       float64  `json:"min"`
	Max       float64  `json:"max"`
	Dates     []string `json:"dates,omitempty"`
}

type CreditCardSummary struct {
	Name            string  `json:"name"`
	BankName        string  `json:"bankName,omitempty"`
	CreditLimit     float64 `json:"creditLimit"`
	TotalDebt       float64 `json:"totalDebt"`
	AvailableLimit  float64 `json:"availableLimit"`
	UsagePercentage float64 `json:"usagePercentage"`
}

type Installment struct {
	Description   string  `json:"description"`
	AccountName   string  `json:"accountName,omitempty"`
	TotalAmount   float64 `json:"totalAmount"`
	MonthlyAmount float64 `json:"monthlyAmount"`
	PaidCount     int     `json:"paidCount"`
	TotalCount    int     `json:"totalCount"`
	NextDueDate   string  `json:"nextDueDate,omitempty"`
}

type InstallmentSummary struct {
	ActiveCount          int     `json:"activeCount"`
	TotalMonthlyPayment  float64 `json:"totalMonthlyPayment"`
	TotalRemainingAmount float64 `json:"totalRemainingAmount"`
}

type AnalysisMetadata struct {
	DataQuality                string `json:"dataQuality"`
	Last90DaysTransactionCount int    `json:"last90DaysTransactionCount"`
}

// FinancialSummary is the precomputed snapshot the app attaches to chat requests.
type FinancialSummary struct {
	ThisMonth          MonthFigures        `json:"thisMonth"`
	LastMonth          MonthFigures        `json:"lastMonth"`
	Comparison         MonthComparison     `json:"comparison"`
	TotalBalance       float64             `json:"totalBalance"`
	TotalAccounts      int                 `json:"totalAccounts"`
	TopCategories      []CategoryAmount    `json:"topCategories,omitempty"`
	RecentTransactions []RecentTransaction `json:"recentTransactions,omitempty"`
	CategoryAnalysis   []CategoryStats     `json:"categoryAnalysis,omitempty"`
	CreditCards        []CreditCardSummary `json:"creditCards,omitempty"`
	Installments       []Installment       `json:"installments,omitempty"`
	InstallmentSummary *InstallmentSummary `json:"installmentSummary,omitempty"`
	AnalysisMetadata   *AnalysisMetadata   `json:"analysisMetadata,omitempty"`
}

type BudgetContext struct {
	CategoryName string  `json:"categoryName"`
	SpentAmount  float64 `json:"spentAmount"`
	Limit        float64 `json:"limit"`
}

type CategoryContext struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Type        string `json:"type"` // expense or income
}

type StockPosition struct {
	Symbol               string  `json:"symbol"`
	Quantity             float64 `json:"quantity"`
	CurrentPrice         float64 `json:"currentPrice"`
	TotalValue           float64 `json:"totalValue"`
	TotalCost            float64 `json:"totalCost"`
	ProfitLoss           float64 `json:"profitLoss"`
	ProfitLossPercentage float64 `json:"profitLossPercentage"`
}

type StockTransaction struct {
	Type          string  `json:"type"` // buy or sell
	StockSymbol   string  `json:"stockSymbol"`
	Quantity      float64 `json:"quantity"`
	PricePerShare float64 `json:"pricePerShare"`
	TotalAmount   float64 `json:"totalAmount"`
	Date          string  `json:"date"`
	Notes         string  `json:"notes,omitempty"`
}

// TokenUsage mirrors the model's usage metadata.
type TokenUsage struct {
	PromptTokenCount     int32 `json:"promptTokenCount"`
	CandidatesTokenCount int32 `json:"candidatesTokenCount"`
	TotalTokenCount      int32 `json:"totalTokenCount"`
}

// FinancialSnapshot is the compact period summary sent to getAIFinancialSummary.
type FinancialSnapshot struct {
	Income        float64          `json:"income"`
	Expense       float64          `json:"expense"`
	Balance       float64          `json:"balance"`
	TopCategories []CategoryAmount `json:"topCategories,omitempty"`
}
