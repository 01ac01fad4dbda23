package reply

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReadyDirective(t *testing.T) {
	p := NewParser(nil)

	res := p.Parse("Ekliyorum!\nREADY: {\"type\":\"expense\",\"amount\":50,\"category\":\"Kahve\"}")

	assert.Equal(t, "Ekliyorum!", res.Message)
	require.True(t, res.IsReady())
	assert.Equal(t, map[string]any{"type": "expense", "amount": float64(50), "category": "Kahve"}, res.TransactionData)
	assert.Nil(t, res.QuickReplies)
}

func TestParseReadyWithBraceInString(t *testing.T) {
	p := NewParser(nil)

	res := p.Parse(`Tamam READY: {"type":"expense","description":"a } b { c","amount":10} trailing`)

	require.True(t, res.IsReady())
	assert.Equal(t, "a } b { c", res.TransactionData["description"])
	assert.Equal(t, "Tamam", res.Message)
}

func TestParseReadyNested(t *testing.T) {
	p := NewParser(nil)

	res := p.Parse(`READY: {"type":"bulk_delete","filters":{"days":5,"transactionType":"expense"}}`)

	require.True(t, res.IsReady())
	assert.Equal(t, "", res.Message)
	filters, ok := res.TransactionData["filters"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(5), filters["days"])
}

func TestParseMalformedReadyKeepsText(t *testing.T) {
	p := NewParser(nil)
	raw := `Bir sorun var READY: {"type": "expense", "amount": }`

	res := p.Parse(raw)

	assert.False(t, res.IsReady())
	assert.Equal(t, raw, res.Message)
}

func TestParseQuickReplies(t *testing.T) {
	p := NewParser(nil)

	res := p.Parse("Hangi hesaptan?\nQUICK_REPLIES: [\"Nakit\", \"Garanti [Kredi]\", \"İş Bankası\"]")

	assert.Equal(t, "Hangi hesaptan?", res.Message)
	assert.Equal(t, []string{"Nakit", "Garanti [Kredi]", "İş Bankası"}, res.QuickReplies)
	assert.False(t, res.IsReady())
}

func TestParseMalformedQuickRepliesKeepsMarker(t *testing.T) {
	p := NewParser(nil)

	res := p.Parse("Seçin QUICK_REPLIES: [\"a\", ")

	assert.Nil(t, res.QuickReplies)
	assert.Equal(t, "Seçin QUICK_REPLIES: [\"a\",", res.Message)
}

func TestParseStripsThinkingMarkers(t *testing.T) {
	p := NewParser(nil)
	raw := "[Düşün: eksik bilgi var]\nMerhaba\n\n\n\n[THINKING: hidden] dünya [denken: x]\n[Think: y]"

	res := p.Parse(raw)

	assert.Equal(t, "Merhaba\n\n dünya", res.Message)
}

func TestParseQuickRepliesAndReady(t *testing.T) {
	p := NewParser(nil)

	res := p.Parse(`Ekliyorum READY: {"type":"theme","theme":"dark"} QUICK_REPLIES: ["Tamam"]`)

	assert.Equal(t, []string{"Tamam"}, res.QuickReplies)
	require.True(t, res.IsReady())
	assert.Equal(t, "dark", res.TransactionData["theme"])
	assert.Equal(t, "Ekliyorum", res.Message)
}

func TestReadyExtractionProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	p := NewParser(nil)

	properties.Property("display text is the prefix and data round-trips", prop.ForAll(
		func(prefix string, values map[string]string) bool {
			obj := make(map[string]any, len(values))
			for k, v := range values {
				obj[k] = v + " {x}"
			}
			encoded, err := json.Marshal(obj)
			if err != nil {
				return false
			}
			res := p.Parse(prefix + "\n" + ReadyMarker + " " + string(encoded))
			if !res.IsReady() || res.Message != strings.TrimSpace(prefix) {
				return false
			}
			if len(res.TransactionData) != len(obj) {
				return false
			}
			for k, v := range obj {
				if res.TransactionData[k] != v {
					return false
				}
			}
			again := p.Parse(res.Message)
			return again.Message == res.Message && !again.IsReady()
		},
		gen.AlphaString(),
		gen.MapOf(gen.Identifier(), gen.AlphaString()),
	))

	properties.TestingRun(t)
}
