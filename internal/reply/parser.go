// Package reply extracts the machine-readable directives the assistant embeds
// in its free-text answers: a READY: {json} action and a QUICK_REPLIES: [...]
// option list.
package reply

import (
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

const (
	ReadyMarker        = "READY:"
	QuickRepliesMarker = "QUICK_REPLIES:"
)

var (
	// Reasoning markers the model sometimes leaks despite being told not to.
	thinkingPattern = regexp.MustCompile(`(?i)\[(?:Düşün|Think(?:ing)?|Denken):[^\]]*\]`)
	blankRunPattern = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// Result is what the client renders.
type Result struct {
	Message         string         `json:"message"`
	QuickReplies    []string       `json:"quickReplies"`
	TransactionData map[string]any `json:"transactionData"`
}

// IsReady reports whether an action directive was extracted.
func (r Result) IsReady() bool { return r.TransactionData != nil }

// Parser turns raw model output into a Result. Malformed directives are logged
// and dropped; Parse never fails.
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a Parser. A nil logger discards parse diagnostics.
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// Parse runs the three extraction steps in order: quick replies, reasoning
// marker cleanup, READY directive.
func (p *Parser) Parse(raw string) Result {
	var res Result

	text := raw
	if replies, cut, ok := p.quickReplies(raw); ok {
		res.QuickReplies = replies
		text = cut
	}

	text = Clean(text)
	res.Message = text

	if data, before, ok := p.ready(text); ok {
		res.TransactionData = data
		res.Message = before
	}
	return res
}

// Clean removes reasoning markers, collapses runs of blank lines and trims.
func Clean(s string) string {
	s = thinkingPattern.ReplaceAllString(s, "")
	s = blankRunPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// quickReplies decodes the array after QUICK_REPLIES:. On success it returns
// the text preceding the marker.
func (p *Parser) quickReplies(s string) ([]string, string, bool) {
	idx := strings.Index(s, QuickRepliesMarker)
	if idx < 0 {
		return nil, s, false
	}
	start := strings.IndexByte(s[idx:], '[')
	if start < 0 {
		return nil, s, false
	}
	var replies []string
	if err := json.NewDecoder(strings.NewReader(s[idx+start:])).Decode(&replies); err != nil {
		p.logger.Warn("Quick replies could not be decoded", zap.Error(err))
		return nil, s, false
	}
	return replies, strings.TrimSpace(s[:idx]), true
}

// ready decodes the object after READY:. The decoder tracks string and escape
// state, so braces inside string values do not end the object early.
func (p *Parser) ready(s string) (map[string]any, string, bool) {
	idx := strings.Index(s, ReadyMarker)
	if idx < 0 {
		return nil, s, false
	}
	start := strings.IndexByte(s[idx:], '{')
	if start < 0 {
		return nil, s, false
	}
	var data map[string]any
	if err := json.NewDecoder(strings.NewReader(s[idx+start:])).Decode(&data); err != nil {
		p.logger.Warn("READY directive could not be decoded", zap.Error(err), zap.String("candidate", truncate(s[idx+start:], 200)))
		return nil, s, false
	}
	if data == nil {
		return nil, s, false
	}
	return data, strings.TrimSpace(s[:idx]), true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
