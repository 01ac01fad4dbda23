// Package i18n serves user-facing messages from JSON catalogs addressed by
// dotted key paths, e.g. "limits.freeWithBonus", with {param} substitution.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// DefaultLanguage is used whenever a language code is missing or unsupported.
const DefaultLanguage = "tr"

//go:embed locales/*.json
var localeFS embed.FS

var catalogs = mustLoad()

func mustLoad() map[string]map[string]any {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		panic(fmt.Sprintf("i18n: reading embedded locales: %v", err))
	}
	out := make(map[string]map[string]any, len(entries))
	for _, e := range entries {
		raw, err := localeFS.ReadFile(path.Join("locales", e.Name()))
		if err != nil {
			panic(fmt.Sprintf("i18n: reading %s: %v", e.Name(), err))
		}
		var tree map[string]any
		if err := json.Unmarshal(raw, &tree); err != nil {
			panic(fmt.Sprintf("i18n: decoding %s: %v", e.Name(), err))
		}
		out[strings.TrimSuffix(e.Name(), ".json")] = tree
	}
	return out
}

// Supported reports whether a catalog exists for the two-letter code.
func Supported(lang string) bool {
	_, ok := catalogs[lang]
	return ok
}

// NormalizeLanguage lower-cases, keeps the first two letters and falls back to
// DefaultLanguage for anything without a catalog.
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if len(lang) > 2 {
		lang = lang[:2]
	}
	if Supported(lang) {
		return lang
	}
	return DefaultLanguage
}

// Params are substituted into {name} placeholders.
type Params map[string]any

// T looks key up in the catalog of lang. A missing key yields the key itself.
func T(lang, key string, params Params) string {
	node, ok := catalogs[lang]
	if !ok {
		node = catalogs[DefaultLanguage]
	}
	var cur any = node
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return key
		}
		if cur, ok = m[part]; !ok {
			return key
		}
	}
	msg, ok := cur.(string)
	if !ok || msg == "" {
		return key
	}
	for name, v := range params {
		msg = strings.ReplaceAll(msg, "{"+name+"}", fmt.Sprint(v))
	}
	return msg
}

// MonthName returns the localized name of month 1..12.
func MonthName(lang string, month int) string {
	return T(lang, fmt.Sprintf("months.%d", month), nil)
}
