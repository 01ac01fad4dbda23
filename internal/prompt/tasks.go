package prompt

import (
	"fmt"
	"strings"

	"qanta-backend-go/internal/currency"
	"qanta-backend-go/internal/models"
)

const defaultSummaryPeriod = "bu ayki"

// DefaultCategories is the category list used when the client sends none.
func (c *Catalog) DefaultCategories() []string {
	out := make([]string, len(c.defaultCategories))
	copy(out, c.defaultCategories)
	return out
}

// CategorizePrompt asks the model to pick one of categories for description.
func (c *Catalog) CategorizePrompt(description string, categories []string) (string, error) {
	if len(categories) == 0 {
		categories = c.defaultCategories
	}
	return c.execTask("categorize", struct {
		Description string
		Categories  []string
	}{strings.TrimSpace(description), categories})
}

// QuickAddPrompt asks the model to extract a transaction from free text.
func (c *Catalog) QuickAddPrompt(text string) (string, error) {
	return c.execTask("quickAdd", struct{ Text string }{strings.TrimSpace(text)})
}

// SummaryPrompt asks the model for a short commentary on a period snapshot.
func (c *Catalog) SummaryPrompt(data models.FinancialSnapshot, period, currencyCode string) (string, error) {
	if strings.TrimSpace(period) == "" {
		period = defaultSummaryPeriod
	}
	top := make([]string, 0, len(data.TopCategories))
	for _, cat := range data.TopCategories {
		top = append(top, fmt.Sprintf("%s (%s)", cat.Category, currency.Format(cat.Amount, currencyCode)))
	}
	return c.execTask("summary", struct {
		Period        string
		Income        string
		Expense       string
		Balance       string
		TopCategories []string
	}{
		Period:        period,
		Income:        currency.Format(data.Income, currencyCode),
		Expense:       currency.Format(data.Expense, currencyCode),
		Balance:       signedMoney(data.Balance, currencyCode),
		TopCategories: top,
	})
}

func signedMoney(v float64, code string) string {
	if v < 0 {
		return "-" + currency.Format(v, code)
	}
	return currency.Format(v, code)
}
