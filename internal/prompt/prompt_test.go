package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qanta-backend-go/internal/models"
)

func loadCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load()
	require.NoError(t, err)
	return c
}

func TestCatalogLanguages(t *testing.T) {
	c := loadCatalog(t)

	tests := []struct {
		in   string
		want string
	}{
		{"tr", "tr"},
		{"EN", "en"},
		{"de-DE", "de"},
		{"fr", "tr"},
		{"", "tr"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Normalize(tt.in), tt.in)
	}
	assert.Equal(t, "Got it, ready to help!", c.Language("en").Priming)
	assert.Equal(t, "Anladım, yardımcı olmaya hazırım!", c.Language("xx").Priming)
}

func TestLanguagesShareLabels(t *testing.T) {
	c := loadCatalog(t)
	tr := c.languages["tr"]
	for code, l := range c.languages {
		for key := range tr.labels {
			_, ok := l.labels[key]
			assert.True(t, ok, "%s is missing label %q", code, key)
		}
	}
}

func TestSystemPromptEmptyInput(t *testing.T) {
	c := loadCatalog(t)

	out, err := c.SystemPrompt(Input{Language: "en", Currency: "USD", Now: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	for _, want := range []string{
		"Available Accounts:",
		"No accounts yet",
		"No financial summary available",
		"No budgets created yet",
		"No categories yet",
		"No stocks yet",
		"No stock transactions yet",
		"100$",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "{{")
}

func TestSystemPromptSections(t *testing.T) {
	c := loadCatalog(t)
	in := Input{
		Language: "tr",
		Currency: "TRY",
		Now:      time.Date(2025, 10, 5, 12, 0, 0, 0, time.UTC),
		Accounts: []models.AccountContext{
			{Name: "Nakit Hesap", Type: "cash", Balance: 1500},
			{Name: "Garanti", DisplayName: "Garanti BBVA Kredi Kartı", Type: "credit", TypeDisplay: "Kredi Kartı",
				Balance: 8000, CreditLimit: 10000, AvailableCredit: 8000, CreditUtilization: 20,
				NextDueDate: "15 Ekim 2025", PaymentDueSoon: true, DaysUntilDue: 3},
		},
		Summary: &models.FinancialSummary{
			ThisMonth:     models.MonthFigures{Income: 20000, Expense: 12500.5, Balance: 7499.5, DaysRemaining: 26},
			LastMonth:     models.MonthFigures{Expense: 10000},
			Comparison:    models.MonthComparison{ExpenseChange: 2500.5, ExpenseChangePercent: 25},
			TotalBalance:  9500,
			TotalAccounts: 2,
			TopCategories: []models.CategoryAmount{{Category: "Market", Amount: 4000}},
		},
		Budgets: []models.BudgetContext{
			{CategoryName: "Market", SpentAmount: 4000, Limit: 5000},
			{CategoryName: "Restoran", SpentAmount: 2100, Limit: 2000},
		},
		Categories: []models.CategoryContext{
			{Name: "market", DisplayName: "Market", Type: "expense"},
			{Name: "Maaş", Type: "income"},
		},
		StockPortfolio: []models.StockPosition{
			{Symbol: "THYAO", Quantity: 10, CurrentPrice: 300, TotalValue: 3000, TotalCost: 3200, ProfitLoss: -200, ProfitLossPercentage: -6.5},
		},
		StockTransactions: []models.StockTransaction{
			{Type: "buy", StockSymbol: "THYAO", Quantity: 10, PricePerShare: 320, TotalAmount: 3200, Date: "2025-09-01T10:00:00Z"},
		},
	}

	out, err := c.SystemPrompt(in)
	require.NoError(t, err)

	for _, want := range []string{
		"💳 Nakit Hesap (cash): 1.500,00₺",
		"💳 Garanti BBVA Kredi Kartı (Kredi Kartı): 8.000,00₺",
		"Limit: 10.000,00₺ | Kullanılabilir: 8.000,00₺ | Kullanım: 20.0%",
		"💰 Son Ödeme: 15 Ekim 2025 ⚠️ (3 gün içinde)",
		"Ekim Ayı:",
		"Net: 7.499,50₺ ✅",
		"1. Market: 4.000,00₺",
		"Fark: 2.500,50₺ (+25.0%)",
		"⚡ Market (Aylık): 4.000,00₺ / 5.000,00₺ (80% - Kalan: 1.000,00₺)",
		"⚠️ Restoran (Aylık)",
		"Gider: Market",
		"Gelir: Maaş",
		"K/Z: -200,00₺ [-6.5%]",
		"📈 ALIŞ: THYAO - 10 adet @ 320,00₺ = 3.200,00₺ (01.09.2025)",
	} {
		assert.Contains(t, out, want)
	}
}

func TestBudgetStatusThresholds(t *testing.T) {
	c := loadCatalog(t)
	f := formatter{lang: c.Language("en"), currency: "USD"}

	out := f.budgets([]models.BudgetContext{
		{CategoryName: "A", SpentAmount: 79, Limit: 100},
		{CategoryName: "B", SpentAmount: 85, Limit: 100},
		{CategoryName: "C", SpentAmount: 120, Limit: 100},
	})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "✅ A")
	assert.Contains(t, lines[2], "⚡ B")
	assert.Contains(t, lines[3], "⚠️ C")
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"100 tl kahve ekle", "tr"},
		{"Şu an bakiyem", "tr"},
		{"show my budget", "en"},
		{"Add 5 coffee", "en"},
		{"Kaffee 5 Euro", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLanguage(tt.msg), tt.msg)
	}
}

func TestPlanMessage(t *testing.T) {
	c := loadCatalog(t)
	tr := c.Language("tr")
	en := c.Language("en")

	t.Run("analysis", func(t *testing.T) {
		p := tr.PlanMessage("Finansal durumum nasıl?", false)
		assert.Equal(t, AnalysisProfile, p.Profile)
		assert.Equal(t, tr.AnalysisHint, p.Hint)
	})
	t.Run("simple", func(t *testing.T) {
		p := en.PlanMessage("add 50 tl coffee", false)
		assert.Equal(t, SimpleProfile, p.Profile)
		assert.Empty(t, p.Hint)
	})
	t.Run("complex", func(t *testing.T) {
		p := en.PlanMessage("coffee yesterday", false)
		assert.Equal(t, DefaultProfile, p.Profile)
		assert.Contains(t, p.Hint, "[Think:")
	})
	t.Run("attachment has no hint", func(t *testing.T) {
		p := tr.PlanMessage("analiz et", true)
		assert.Equal(t, AnalysisProfile, p.Profile)
		assert.Empty(t, p.Hint)
	})
	t.Run("long messages are never simple", func(t *testing.T) {
		msg := "add 50 tl " + strings.Repeat("x", 100)
		assert.False(t, en.IsSimpleTransaction(msg))
	})
}

func TestCompressHistory(t *testing.T) {
	mk := func(n int) []models.ChatTurn {
		out := make([]models.ChatTurn, n)
		for i := range out {
			out[i] = models.ChatTurn{Role: "user", Content: string(rune('a' + i))}
		}
		return out
	}

	assert.Len(t, CompressHistory(mk(10)), 10)

	got := CompressHistory(mk(15))
	require.Len(t, got, 10)
	assert.Equal(t, "a", got[0].Content)
	assert.Equal(t, "c", got[2].Content)
	assert.Equal(t, "i", got[3].Content)
	assert.Equal(t, "o", got[9].Content)
}

func TestTaskPrompts(t *testing.T) {
	c := loadCatalog(t)

	out, err := c.CategorizePrompt("Starbucks latte", nil)
	require.NoError(t, err)
	assert.Contains(t, out, `Harcama: "Starbucks latte"`)
	assert.Contains(t, out, "Yiyecek & İçecek, Ulaşım, Eğlence")

	out, err = c.CategorizePrompt("x", []string{"Kahve", "Market"})
	require.NoError(t, err)
	assert.Contains(t, out, "Kahve, Market")

	out, err = c.QuickAddPrompt("50 tl kahve ziraat")
	require.NoError(t, err)
	assert.Contains(t, out, `METIN: "50 tl kahve ziraat"`)

	out, err = c.SummaryPrompt(models.FinancialSnapshot{
		Income: 1000, Expense: 1500, Balance: -500,
		TopCategories: []models.CategoryAmount{{Category: "Market", Amount: 700}},
	}, "", "TRY")
	require.NoError(t, err)
	assert.Contains(t, out, "bu ayki finansal")
	assert.Contains(t, out, "Net Bakiye: -500,00₺")
	assert.Contains(t, out, "Market (700,00₺)")

	out, err = c.SummaryPrompt(models.FinancialSnapshot{}, "geçen ayki", "TRY")
	require.NoError(t, err)
	assert.Contains(t, out, "En Çok Harcanan Kategoriler: Yok")

	assert.Len(t, c.DefaultCategories(), 8)
}
