// Package prompt assembles the assistant's system prompt and the single-shot
// task prompts. All language-specific text lives in the embedded YAML catalog
// under templates/, one file per language plus tasks.yaml.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// DefaultLanguage is served for unknown language codes.
const DefaultLanguage = "tr"

//go:embed templates/*.yaml
var templateFS embed.FS

type languageFile struct {
	Language         string            `yaml:"language"`
	Priming          string            `yaml:"priming"`
	DateLayout       string            `yaml:"dateLayout"`
	AnalysisKeywords []string          `yaml:"analysisKeywords"`
	Reasoning        reasoningFile     `yaml:"reasoning"`
	Labels           map[string]string `yaml:"labels"`
	System           string            `yaml:"system"`
}

type reasoningFile struct {
	Analysis string `yaml:"analysis"`
	Complex  string `yaml:"complex"`
}

type tasksFile struct {
	DefaultCategories []string `yaml:"defaultCategories"`
	Categorize        string   `yaml:"categorize"`
	QuickAdd          string   `yaml:"quickAdd"`
	Summary           string   `yaml:"summary"`
}

// Language is the compiled catalog entry of one language.
type Language struct {
	Code             string
	Priming          string
	AnalysisHint     string
	ComplexHint      string
	AnalysisKeywords []string

	dateLayout string
	labels     map[string]string
	system     *template.Template
}

// Catalog holds every language plus the task prompts.
type Catalog struct {
	languages         map[string]*Language
	tasks             *template.Template
	defaultCategories []string
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("reading prompt templates: %w", err)
	}
	c := &Catalog{languages: make(map[string]*Language)}
	for _, e := range entries {
		raw, err := templateFS.ReadFile(path.Join("templates", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		if e.Name() == "tasks.yaml" {
			if err := c.loadTasks(raw); err != nil {
				return nil, err
			}
			continue
		}
		lang, err := compileLanguage(e.Name(), raw)
		if err != nil {
			return nil, err
		}
		c.languages[lang.Code] = lang
	}
	if _, ok := c.languages[DefaultLanguage]; !ok {
		return nil, fmt.Errorf("prompt catalog has no %q entry", DefaultLanguage)
	}
	if c.tasks == nil {
		return nil, fmt.Errorf("prompt catalog has no tasks.yaml")
	}
	return c, nil
}

// MustLoad is Load for package initialisation paths.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

func compileLanguage(name string, raw []byte) (*Language, error) {
	var f languageFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	if f.Language == "" {
		return nil, fmt.Errorf("%s: language is required", name)
	}
	sys, err := template.New(f.Language).Option("missingkey=error").Parse(f.System)
	if err != nil {
		return nil, fmt.Errorf("%s: system template: %w", name, err)
	}
	layout := f.DateLayout
	if layout == "" {
		layout = "2006-01-02"
	}
	return &Language{
		Code:             f.Language,
		Priming:          f.Priming,
		AnalysisHint:     f.Reasoning.Analysis,
		ComplexHint:      f.Reasoning.Complex,
		AnalysisKeywords: f.AnalysisKeywords,
		dateLayout:       layout,
		labels:           f.Labels,
		system:           sys,
	}, nil
}

func (c *Catalog) loadTasks(raw []byte) error {
	var f tasksFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("decoding tasks.yaml: %w", err)
	}
	t := template.New("tasks").Funcs(template.FuncMap{"join": strings.Join})
	for name, body := range map[string]string{
		"categorize": f.Categorize,
		"quickAdd":   f.QuickAdd,
		"summary":    f.Summary,
	} {
		if body == "" {
			return fmt.Errorf("tasks.yaml: %s prompt is empty", name)
		}
		if _, err := t.New(name).Parse(body); err != nil {
			return fmt.Errorf("tasks.yaml %s: %w", name, err)
		}
	}
	c.tasks = t
	c.defaultCategories = f.DefaultCategories
	return nil
}

// Normalize maps a client language code onto a catalog entry code.
func (c *Catalog) Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if len(code) > 2 {
		code = code[:2]
	}
	if _, ok := c.languages[code]; ok {
		return code
	}
	return DefaultLanguage
}

// Language returns the entry for code after normalisation.
func (c *Catalog) Language(code string) *Language {
	return c.languages[c.Normalize(code)]
}

// Label returns the localized label, or the key when it is missing.
func (l *Language) Label(key string) string {
	if v, ok := l.labels[key]; ok {
		return v
	}
	return key
}

// labelf substitutes {name} placeholders in a label.
func (l *Language) labelf(key string, kv ...string) string {
	s := l.Label(key)
	for i := 0; i+1 < len(kv); i += 2 {
		s = strings.ReplaceAll(s, "{"+kv[i]+"}", kv[i+1])
	}
	return s
}

func (c *Catalog) execTask(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := c.tasks.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", name, err)
	}
	return buf.String(), nil
}
