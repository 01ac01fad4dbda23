package reply

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	notFound        = "BULUNMADI"
	defaultCategory = "Diğer"
)

// Categorization is the outcome of the categorizeExpense model call or its
// keyword fallback.
type Categorization struct {
	CategoryID   string  `json:"categoryId"`
	CategoryName string  `json:"categoryName"`
	CategoryIcon string  `json:"categoryIcon"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
}

var categoryMeta = map[string]struct{ id, icon string }{
	"Yiyecek & İçecek": {"food_drink", "🍔"},
	"Ulaşım":           {"transportation", "🚗"},
	"Eğlence":          {"entertainment", "🎭"},
	"Sağlık":           {"health", "💊"},
	"Alışveriş":        {"shopping", "🛒"},
	"Faturalar":        {"bills", "📱"},
	"Eğitim":           {"education", "📚"},
	"Diğer":            {"other", "💰"},
}

// CategoryID maps a default category name to its stable id; unknown names are "other".
func CategoryID(name string) string {
	if m, ok := categoryMeta[name]; ok {
		return m.id
	}
	return "other"
}

func CategoryIcon(name string) string {
	if m, ok := categoryMeta[name]; ok {
		return m.icon
	}
	return "💰"
}

// fields splits "KEY: value" lines. Keys are upper-cased with Turkish casing
// rules so "Kategori" and "KATEGORİ" match.
func fields(text string) [][2]string {
	var out [][2]string
	sc := bufio.NewScanner(strings.NewReader(strings.TrimSpace(text)))
	for sc.Scan() {
		line := sc.Text()
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		key := strings.Map(func(r rune) rune {
			return unicode.TurkishCase.ToUpper(r)
		}, strings.TrimSpace(line[:idx]))
		out = append(out, [2]string{key, strings.TrimSpace(line[idx+1:])})
	}
	return out
}

// ParseCategorization reads the KATEGORİ / GÜVENİLİRLİK / NEDEN lines.
// Confidence is a 0-100 score scaled to 0-1; unreadable scores count as 50.
func ParseCategorization(text string) Categorization {
	c := Categorization{CategoryName: defaultCategory, Confidence: 0.5}
	for _, kv := range fields(text) {
		switch kv[0] {
		case "KATEGORİ":
			c.CategoryName = kv[1]
		case "GÜVENİLİRLİK":
			score, ok := leadingFloat(kv[1])
			if !ok || score == 0 {
				score = 50
			}
			c.Confidence = score / 100
		case "NEDEN":
			c.Reasoning = kv[1]
		}
	}
	c.CategoryID = CategoryID(c.CategoryName)
	c.CategoryIcon = CategoryIcon(c.CategoryName)
	return c
}

type fallbackRule struct {
	keywords []string
	result   Categorization
}

var fallbackRules = []fallbackRule{
	{[]string{"market", "migros", "şok", "bim", "a101"},
		Categorization{"food_drink", "Yiyecek & İçecek", "🛒", 0.7, "Market alışverişi tespit edildi"}},
	{[]string{"starbucks", "cafe", "kahve", "restaurant"},
		Categorization{"food_drink", "Yiyecek & İçecek", "☕", 0.8, "Yeme-içme yeri tespit edildi"}},
	{[]string{"benzin", "shell", "opet", "uber", "taksi"},
		Categorization{"transportation", "Ulaşım", "⛽", 0.8, "Ulaşım gideri tespit edildi"}},
	{[]string{"netflix", "spotify", "youtube", "sinema"},
		Categorization{"entertainment", "Eğlence", "🎬", 0.9, "Eğlence hizmeti tespit edildi"}},
}

// FallbackCategorization guesses a category from well-known merchant names.
func FallbackCategorization(description string) Categorization {
	lower := strings.ToLower(description)
	for _, rule := range fallbackRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.result
			}
		}
	}
	return Categorization{"other", defaultCategory, "💰", 0.3, "Belirli bir kategori tespit edilemedi"}
}

// QuickAdd is a transaction extracted from free text.
type QuickAdd struct {
	Amount          float64  `json:"amount"`
	Description     string   `json:"description"`
	CategoryName    string   `json:"categoryName"`
	AccountName     *string  `json:"accountName"`
	TransactionDate *string  `json:"transactionDate"`
	TransactionType string   `json:"transactionType"`
	IsStock         bool     `json:"isStock"`
	StockSymbol     string   `json:"stockSymbol,omitempty"`
	Quantity        float64  `json:"quantity,omitempty"`
	Price           *float64 `json:"price,omitempty"`
	IsBuy           bool     `json:"isBuy,omitempty"`
	IsSell          bool     `json:"isSell,omitempty"`
}

// ParseQuickAdd reads the MIKTAR / AÇIKLAMA / ... lines of a quick-add reply.
// Relative dates resolve against now.
func ParseQuickAdd(text string, now time.Time) QuickAdd {
	q := QuickAdd{CategoryName: defaultCategory, TransactionType: "expense"}
	for _, kv := range fields(text) {
		key, val := kv[0], kv[1]
		switch key {
		case "MIKTAR", "MİKTAR":
			q.Amount, _ = leadingFloat(strings.Replace(val, ",", ".", 1))
		case "AÇIKLAMA":
			q.Description = val
		case "KATEGORİ":
			q.CategoryName = val
		case "HESAP":
			if val != notFound && val != "" {
				q.AccountName = &val
			}
		case "TARİH":
			if val != notFound && val != "" {
				d := ParseDateString(val, now).Format(time.RFC3339)
				q.TransactionDate = &d
			}
		case "TİP":
			if strings.ToLower(val) == "gelir" {
				q.TransactionType = "income"
			} else {
				q.TransactionType = "expense"
			}
		case "HİSSE":
			v := strings.ToLower(val)
			q.IsStock = v == "evet" || v == "yes"
		case "HİSSE_SEMBOL":
			q.StockSymbol = val
		case "HİSSE_MİKTAR":
			q.Quantity, _ = leadingFloat(val)
		case "HİSSE_FİYAT":
			if val != notFound {
				if p, ok := leadingFloat(strings.Replace(val, ",", ".", 1)); ok && p != 0 {
					q.Price = &p
				}
			}
		case "HİSSE_İŞLEM":
			v := strings.ToLower(val)
			q.IsBuy = strings.Contains(v, "alım") || strings.Contains(v, "buy")
			q.IsSell = strings.Contains(v, "satış") || strings.Contains(v, "sat") || strings.Contains(v, "sell")
		}
	}
	return q
}

var (
	numberPrefix  = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)`)
	dayMonthRegex = regexp.MustCompile(`(\d{1,2})\s*(\p{L}+)`)

	turkishMonths = map[string]time.Month{
		"ocak": time.January, "şubat": time.February, "mart": time.March, "nisan": time.April,
		"mayıs": time.May, "haziran": time.June, "temmuz": time.July, "ağustos": time.August,
		"eylül": time.September, "ekim": time.October, "kasım": time.November, "aralık": time.December,
	}
)

// leadingFloat parses the numeric prefix of s, so "95 (yüksek)" reads as 95.
func leadingFloat(s string) (float64, bool) {
	m := numberPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseDateString resolves bugün/dün/evvelsi and "15 ekim" style dates
// relative to now. Anything else resolves to now.
func ParseDateString(s string, now time.Time) time.Time {
	lower := strings.ToLower(strings.TrimSpace(s))
	switch lower {
	case "bugün", "today":
		return now
	case "dün", "yesterday":
		return now.AddDate(0, 0, -1)
	case "evvelsi gün", "evvelsi":
		return now.AddDate(0, 0, -2)
	}
	if m := dayMonthRegex.FindStringSubmatch(lower); m != nil {
		day, _ := strconv.Atoi(m[1])
		if month, ok := turkishMonths[m[2]]; ok {
			return time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
		}
	}
	return now
}
