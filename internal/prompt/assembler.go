package prompt

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"qanta-backend-go/internal/currency"
	"qanta-backend-go/internal/i18n"
	"qanta-backend-go/internal/models"
)

// Input is everything the app sends along with a chat message.
type Input struct {
	Language          string
	Currency          string
	Accounts          []models.AccountContext
	Summary           *models.FinancialSummary
	Budgets           []models.BudgetContext
	Categories        []models.CategoryContext
	StockPortfolio    []models.StockPosition
	StockTransactions []models.StockTransaction
	// Now is the client's local time; it selects the month name of the summary.
	Now time.Time
}

type systemData struct {
	AccountsTitle string
	Accounts      string
	Context       string
	Symbol        string
}

// SystemPrompt renders the full system prompt. Every section is always
// present; empty input yields the section's placeholder.
func (c *Catalog) SystemPrompt(in Input) (string, error) {
	l := c.Language(in.Language)
	f := formatter{lang: l, currency: in.Currency}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	var ctx strings.Builder
	ctx.WriteString(f.summary(in.Summary, int(now.Month())))
	ctx.WriteString(f.budgets(in.Budgets))
	ctx.WriteString(f.categories(in.Categories))
	ctx.WriteString(f.stockPortfolio(in.StockPortfolio))
	ctx.WriteString(f.stockTransactions(in.StockTransactions))

	var buf bytes.Buffer
	err := l.system.Execute(&buf, systemData{
		AccountsTitle: l.Label("accountsTitle"),
		Accounts:      f.accounts(in.Accounts),
		Context:       ctx.String(),
		Symbol:        currency.Symbol(in.Currency),
	})
	if err != nil {
		return "", fmt.Errorf("rendering system prompt (%s): %w", l.Code, err)
	}
	return buf.String(), nil
}

type formatter struct {
	lang     *Language
	currency string
}

func (f formatter) money(v float64) string { return currency.Format(v, f.currency) }

func (f formatter) l(key string) string { return f.lang.Label(key) }

func signOf(v float64) string {
	if v >= 0 {
		return "+"
	}
	return "-"
}

func qty(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func (f formatter) accounts(accounts []models.AccountContext) string {
	if len(accounts) == 0 {
		return "   " + f.l("noAccounts")
	}
	lines := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		name := acc.DisplayName
		if name == "" {
			name = acc.Name
		}
		typ := acc.TypeDisplay
		if typ == "" {
			typ = acc.Type
		}
		var b strings.Builder
		fmt.Fprintf(&b, "   💳 %s (%s): %s", name, typ, f.money(acc.Balance))
		if acc.Type == "credit" {
			if acc.CreditLimit > 0 {
				fmt.Fprintf(&b, "\n      %s: %s | %s: %s | %s: %.1f%%",
					f.l("creditLimit"), f.money(acc.CreditLimit),
					f.l("available"), f.money(acc.AvailableCredit),
					f.l("utilization"), acc.CreditUtilization)
			}
			if acc.NextStatementDate != "" {
				fmt.Fprintf(&b, "\n      📅 %s: %s", f.l("statementDate"), acc.NextStatementDate)
			}
			if acc.NextDueDate != "" {
				fmt.Fprintf(&b, "\n      💰 %s: %s", f.l("dueDate"), acc.NextDueDate)
				if acc.PaymentDueSoon {
					fmt.Fprintf(&b, " ⚠️ (%d %s)", acc.DaysUntilDue, f.l("daysUntil"))
				}
			}
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

func (f formatter) summary(s *models.FinancialSummary, month int) string {
	if s == nil {
		return "\n" + f.l("summaryTitle") + "\n   " + f.l("noSummary") + "\n"
	}
	var b strings.Builder
	tm := s.ThisMonth
	status := "✅"
	if tm.Balance < 0 {
		status = "⚠️"
	}
	fmt.Fprintf(&b, "\n%s\n%s\n", f.l("summaryTitle"), f.lang.labelf("thisMonth", "month", i18n.MonthName(f.lang.Code, month)))
	fmt.Fprintf(&b, "   - %s: %s\n", f.l("income"), f.money(tm.Income))
	fmt.Fprintf(&b, "   - %s: %s\n", f.l("expense"), f.money(tm.Expense))
	fmt.Fprintf(&b, "   - %s: %s %s\n", f.l("net"), f.money(tm.Balance), status)
	fmt.Fprintf(&b, "   - %s: %s\n", f.l("dailyAverage"), f.money(tm.DailyAverage))
	fmt.Fprintf(&b, "   - %s: %s\n", f.l("projectedMonthEnd"), f.money(tm.ProjectedMonthEnd))
	fmt.Fprintf(&b, "   - %s: %d\n\n", f.l("daysRemaining"), tm.DaysRemaining)
	fmt.Fprintf(&b, "%s: %s (%d %s)\n\n", f.l("totalBalance"), f.money(s.TotalBalance), s.TotalAccounts, f.l("accountsWord"))

	b.WriteString(f.l("topExpenses") + "\n")
	if len(s.TopCategories) == 0 {
		b.WriteString("   " + f.l("noExpenses") + "\n")
	}
	for i, cat := range firstN(s.TopCategories, 3) {
		fmt.Fprintf(&b, "   %d. %s: %s\n", i+1, cat.Category, f.money(cat.Amount))
	}

	b.WriteString("\n" + f.l("recentTransactions") + "\n")
	if len(s.RecentTransactions) == 0 {
		b.WriteString("   " + f.l("noTransactions") + "\n")
	}
	for _, tx := range firstN(s.RecentTransactions, 3) {
		sign := "-"
		if tx.Type == "income" {
			sign = "+"
		}
		fmt.Fprintf(&b, "   %s: %s%s\n", tx.Category, sign, f.money(tx.Amount))
	}

	if s.LastMonth.Expense > 0 {
		pct := s.Comparison.ExpenseChangePercent
		sign := ""
		if pct >= 0 {
			sign = "+"
		}
		fmt.Fprintf(&b, "\n%s: %s\n   %s: %s (%s%.1f%%)\n",
			f.l("lastMonth"), f.money(s.LastMonth.Expense),
			f.l("difference"), f.money(math.Abs(s.Comparison.ExpenseChange)), sign, pct)
	}

	if len(s.CategoryAnalysis) > 0 {
		b.WriteString("\n" + f.l("categoryAnalysisTitle"))
		for _, cat := range firstN(s.CategoryAnalysis, 10) {
			fmt.Fprintf(&b, "\n• %s:", cat.Category)
			fmt.Fprintf(&b, "\n  - %s: %s (%d %s)", f.l("total"), f.money(cat.Total), cat.Count, f.l("transactionsWord"))
			fmt.Fprintf(&b, "\n  - %s: %s", f.l("average"), f.money(cat.Average))
			fmt.Fprintf(&b, "\n  - %s: %.2f %s", f.l("frequency"), cat.Frequency, f.l("perDay"))
			fmt.Fprintf(&b, "\n  - %s: %s - %s", f.l("range"), f.money(cat.Min), f.money(cat.Max))
			if len(cat.Dates) > 0 {
				more := ""
				if len(cat.Dates) > 5 {
					more = ", ..."
				}
				fmt.Fprintf(&b, "\n  - %s: [%s%s]", f.l("dates"), strings.Join(firstN(cat.Dates, 5), ", "), more)
			}
		}
	}

	if len(s.CreditCards) > 0 {
		b.WriteString("\n\n💳 " + f.l("creditCardsTitle"))
		for _, card := range s.CreditCards {
			name := card.Name
			if name == "" {
				name = f.l("creditCard")
			}
			if card.BankName != "" {
				name = card.BankName + " " + name
			}
			fmt.Fprintf(&b, "\n• %s:", name)
			fmt.Fprintf(&b, "\n  - %s: %s", f.l("totalLimit"), f.money(card.CreditLimit))
			fmt.Fprintf(&b, "\n  - %s: %s", f.l("used"), f.money(card.TotalDebt))
			fmt.Fprintf(&b, "\n  - %s: %s", f.l("availableLimit"), f.money(card.AvailableLimit))
			fmt.Fprintf(&b, "\n  - %s: %.1f%%", f.l("usageRate"), card.UsagePercentage)
		}
	}

	if len(s.Installments) > 0 {
		var sum models.InstallmentSummary
		if s.InstallmentSummary != nil {
			sum = *s.InstallmentSummary
		}
		b.WriteString("\n\n💳 " + f.l("installmentsTitle"))
		fmt.Fprintf(&b, "\n- %s: %d", f.l("activeInstallments"), sum.ActiveCount)
		fmt.Fprintf(&b, "\n- %s: %s", f.l("monthlyPayment"), f.money(sum.TotalMonthlyPayment))
		fmt.Fprintf(&b, "\n- %s: %s", f.l("remainingTotal"), f.money(sum.TotalRemainingAmount))
		b.WriteString("\n\n" + f.l("installmentList"))
		for _, inst := range firstN(s.Installments, 10) {
			fmt.Fprintf(&b, "\n• %s:", inst.Description)
			if inst.AccountName != "" {
				fmt.Fprintf(&b, "\n  - %s: %s", f.l("account"), inst.AccountName)
			}
			fmt.Fprintf(&b, "\n  - %s: %s", f.l("totalAmount"), f.money(inst.TotalAmount))
			fmt.Fprintf(&b, "\n  - %s: %s", f.l("monthly"), f.money(inst.MonthlyAmount))
			if inst.TotalCount > 0 {
				fmt.Fprintf(&b, "\n  - %s: %d/%d %s", f.l("status"), inst.PaidCount, inst.TotalCount, f.l("installmentsPaid"))
				if left := inst.TotalCount - inst.PaidCount; left > 0 {
					fmt.Fprintf(&b, "\n  - %s: %s", f.l("remainingAmount"), f.money(inst.MonthlyAmount*float64(left)))
				}
			} else {
				fmt.Fprintf(&b, "\n  - ⚠️ %s", f.l("installmentDetailsMissing"))
			}
			if inst.NextDueDate != "" {
				fmt.Fprintf(&b, "\n  - %s: %s", f.l("nextPayment"), inst.NextDueDate)
			}
		}
	}

	if md := s.AnalysisMetadata; md != nil {
		fmt.Fprintf(&b, "\n\n%s: %s (%s)", f.l("dataQuality"), md.DataQuality,
			f.lang.labelf("last90Days", "count", strconv.Itoa(md.Last90DaysTransactionCount)))
	}
	return b.String()
}

func (f formatter) budgets(budgets []models.BudgetContext) string {
	if len(budgets) == 0 {
		return "\n💰 " + f.l("noBudgets")
	}
	lines := make([]string, 0, len(budgets))
	for _, bg := range budgets {
		pct := 0
		if bg.Limit > 0 {
			pct = int(math.Round(bg.SpentAmount / bg.Limit * 100))
		}
		status := "✅"
		switch {
		case pct >= 100:
			status = "⚠️"
		case pct >= 80:
			status = "⚡"
		}
		lines = append(lines, fmt.Sprintf("   %s %s (%s): %s / %s (%d%% - %s: %s)",
			status, bg.CategoryName, f.l("monthlyBudget"),
			f.money(bg.SpentAmount), f.money(bg.Limit), pct,
			f.l("remaining"), f.money(bg.Limit-bg.SpentAmount)))
	}
	return "\n💰 " + f.l("budgetsTitle") + "\n" + strings.Join(lines, "\n")
}

func (f formatter) categories(categories []models.CategoryContext) string {
	if len(categories) == 0 {
		return "\n📝 " + f.l("noCategories")
	}
	var expense, income []string
	for _, cat := range categories {
		name := cat.DisplayName
		if name == "" {
			name = cat.Name
		}
		switch cat.Type {
		case "expense":
			expense = append(expense, name)
		case "income":
			income = append(income, name)
		}
	}
	out := "\n📝 " + f.l("categoriesTitle")
	if len(expense) > 0 {
		out += "\n   " + f.l("expenseLabel") + " " + strings.Join(expense, ", ")
	}
	if len(income) > 0 {
		out += "\n   " + f.l("incomeLabel") + " " + strings.Join(income, ", ")
	}
	return out
}

func (f formatter) stockPortfolio(stocks []models.StockPosition) string {
	if len(stocks) == 0 {
		return "\n📊 " + f.l("noStocks")
	}
	var totalValue, totalCost float64
	lines := make([]string, 0, len(stocks))
	for _, st := range stocks {
		totalValue += st.TotalValue
		totalCost += st.TotalCost
		lines = append(lines, fmt.Sprintf("   • %s: %s %s x %s = %s\n      (%s: %s, %s: %s%s [%s%.1f%%]%s)",
			st.Symbol, qty(st.Quantity), f.l("shares"), f.money(st.CurrentPrice), f.money(st.TotalValue),
			f.l("cost"), f.money(st.TotalCost),
			f.l("profitLoss"), signOf(st.ProfitLoss), f.money(st.ProfitLoss),
			signOf(st.ProfitLossPercentage), math.Abs(st.ProfitLossPercentage), smiley(st.ProfitLoss)))
	}
	pl := totalValue - totalCost
	plPct := 0.0
	if totalCost > 0 {
		plPct = pl / totalCost * 100
	}
	return fmt.Sprintf("\n📊 %s\n%s\n   %s: %s (%s: %s)\n   %s: %s%s [%s%.1f%%]%s",
		f.l("stocksTitle"), strings.Join(lines, "\n"),
		f.l("portfolioTotal"), f.money(totalValue), f.l("cost"), f.money(totalCost),
		f.l("totalProfitLoss"), signOf(pl), f.money(pl), signOf(plPct), math.Abs(plPct), smiley(pl))
}

func smiley(v float64) string {
	if v >= 0 {
		return " 😊"
	}
	return ""
}

func (f formatter) stockTransactions(txs []models.StockTransaction) string {
	if len(txs) == 0 {
		return "\n📜 " + f.l("noStockTransactions")
	}
	lines := make([]string, 0, len(txs))
	for _, tx := range txs {
		icon, label := "📉", f.l("sell")
		if tx.Type == "buy" {
			icon, label = "📈", f.l("buy")
		}
		line := fmt.Sprintf("   %s %s: %s - %s %s @ %s = %s (%s)",
			icon, label, tx.StockSymbol, qty(tx.Quantity), f.l("shares"),
			f.money(tx.PricePerShare), f.money(tx.TotalAmount), f.date(tx.Date))
		if tx.Notes != "" {
			line += "\n      " + f.l("note") + ": " + tx.Notes
		}
		lines = append(lines, line)
	}
	return "\n📜 " + f.l("stockTransactionsTitle") + "\n" + strings.Join(lines, "\n")
}

// date renders an ISO date in the language's layout; unparsable input is
// passed through.
func (f formatter) date(s string) string {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(f.lang.dateLayout)
		}
	}
	return s
}

func firstN[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
