package prompt

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"qanta-backend-go/internal/models"
)

// Profile is the generation configuration picked for a message.
type Profile struct {
	Name            string
	Temperature     float32
	TopK            int32
	TopP            float32
	MaxOutputTokens int32
}

var (
	AnalysisProfile = Profile{Name: "analysis", Temperature: 0.4, TopK: 32, TopP: 0.95, MaxOutputTokens: 2048}
	SimpleProfile   = Profile{Name: "simple", Temperature: 0.2, TopK: 20, TopP: 0.9, MaxOutputTokens: 512}
	DefaultProfile  = Profile{Name: "default", Temperature: 0.3, TopK: 20, TopP: 0.9, MaxOutputTokens: 1024}
)

const (
	maxHistoryTurns   = 10
	keepHeadTurns     = 3
	keepTailTurns     = 7
	simpleMessageRune = 100
)

var (
	amountPattern      = regexp.MustCompile(`(?i)\d+\s*(tl|₺|dollar|\$|try|usd|eur|€)`)
	turkishCharPattern = regexp.MustCompile(`(?i)[çğışöü]`)

	actionWords = []string{"ekle", "add", "harcama", "expense", "gelir", "income"}

	turkishWords = wordSet(
		"ve", "bir", "bu", "için", "ile", "ne", "var", "yok", "kadar", "gibi",
		"mi", "mı", "mu", "mü",
		"ekle", "göster", "sil", "bul", "nasıl", "nedir", "nerede",
		"harcama", "gelir", "bütçe", "hesap", "kart", "para", "lira",
		"günlük", "haftalık", "aylık", "toplam", "son",
	)
	englishWords = wordSet(
		"add", "show", "delete", "find", "how", "what", "where",
		"expense", "income", "budget", "account", "card", "money",
		"daily", "weekly", "monthly", "total", "last",
		"the", "is", "are", "was", "were", "my", "your",
	)
)

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// DetectLanguage guesses the language of a message: Turkish letters or
// common Turkish words mean "tr", common English words mean "en". An empty
// result means undecided.
func DetectLanguage(message string) string {
	if message == "" {
		return ""
	}
	if turkishCharPattern.MatchString(message) {
		return "tr"
	}
	words := strings.Fields(strings.ToLower(message))
	for _, w := range words {
		if _, ok := turkishWords[w]; ok {
			return "tr"
		}
	}
	for _, w := range words {
		if _, ok := englishWords[w]; ok {
			return "en"
		}
	}
	return ""
}

// IsAnalysisRequest reports whether the message asks for financial analysis.
func (l *Language) IsAnalysisRequest(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range l.AnalysisKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsSimpleTransaction reports whether the message is a short
// "amount + what" entry that needs no analysis.
func (l *Language) IsSimpleTransaction(message string) bool {
	if !amountPattern.MatchString(message) {
		return false
	}
	lower := strings.ToLower(message)
	action := false
	for _, w := range actionWords {
		if strings.Contains(lower, w) {
			action = true
			break
		}
	}
	return action && !l.IsAnalysisRequest(message) && utf8.RuneCountInString(message) < simpleMessageRune
}

// Plan is the per-message decision of how to call the model.
type Plan struct {
	Profile Profile
	// Hint is appended to the user's message; empty when none applies.
	Hint string
}

// PlanMessage classifies a message. Reasoning hints are only added to text
// messages; attachments go through unchanged.
func (l *Language) PlanMessage(message string, hasAttachment bool) Plan {
	analysis := l.IsAnalysisRequest(message)
	simple := l.IsSimpleTransaction(message)

	p := Plan{Profile: DefaultProfile}
	switch {
	case analysis:
		p.Profile = AnalysisProfile
	case simple:
		p.Profile = SimpleProfile
	}
	if hasAttachment {
		return p
	}
	switch {
	case analysis:
		p.Hint = l.AnalysisHint
	case !simple:
		p.Hint = l.ComplexHint
	}
	return p
}

// CompressHistory keeps the first three and the last seven turns of long
// conversations.
func CompressHistory(history []models.ChatTurn) []models.ChatTurn {
	if len(history) <= maxHistoryTurns {
		return history
	}
	out := make([]models.ChatTurn, 0, keepHeadTurns+keepTailTurns)
	out = append(out, history[:keepHeadTurns]...)
	out = append(out, history[len(history)-keepTailTurns:]...)
	return out
}
