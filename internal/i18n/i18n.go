package i18n

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

const DefaultLang = "en"

// Translator resolves localized strings using dot-separated keys.
type Translator interface {
	T(key string) string
	// Render executes the text/template stored under key with params.
	Render(key string, params any) string
	Lang() string
}

// Manager stores all available translations and their parsed templates.
type Manager struct {
	translations map[string]map[string]string
	defaultLang  string

	mu        sync.RWMutex
	templates map[string]*template.Template
}

// Load loads the catalogs compiled into the binary.
func Load(defaultLang string) (*Manager, error) {
	return LoadFS(embedded, "locales", defaultLang)
}

// LoadFromDir loads translations from a directory containing YAML files.
func LoadFromDir(dir, defaultLang string) (*Manager, error) {
	return LoadFS(os.DirFS(dir), ".", defaultLang)
}

// LoadFS loads every YAML file found in dir of fsys.
func LoadFS(fsys fs.FS, dir, defaultLang string) (*Manager, error) {
	catalog, err := parseDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	defaultLang = normalizeLang(defaultLang)
	if defaultLang == "" {
		defaultLang = DefaultLang
	}

	if _, ok := catalog[defaultLang]; !ok {
		return nil, fmt.Errorf("i18n: default language %q is missing", defaultLang)
	}

	return &Manager{
		translations: catalog,
		defaultLang:  defaultLang,
		templates:    make(map[string]*template.Template),
	}, nil
}

// Translator returns a translator for the requested language. Regional tags
// fall back to any catalog sharing the base language ("zh-hant" → "zh-tw").
func (m *Manager) Translator(lang string) Translator {
	if m == nil {
		return translator{}
	}

	return translator{
		lang:     m.resolve(lang),
		fallback: m.defaultLang,
		manager:  m,
	}
}

// Languages returns all loaded languages.
func (m *Manager) Languages() []string {
	if m == nil {
		return nil
	}

	languages := make([]string, 0, len(m.translations))
	for lang := range m.translations {
		languages = append(languages, lang)
	}
	return languages
}

func (m *Manager) resolve(lang string) string {
	norm := normalizeLang(lang)
	if norm == "" {
		return m.defaultLang
	}
	if m.translations[norm] != nil {
		return norm
	}

	base, _, _ := strings.Cut(norm, "-")
	if m.translations[base] != nil {
		return base
	}
	for candidate := range m.translations {
		if strings.HasPrefix(candidate, base+"-") {
			return candidate
		}
	}

	return m.defaultLang
}

func (m *Manager) template(lang, key, text string) (*template.Template, error) {
	cacheKey := lang + "/" + key

	m.mu.RLock()
	tmpl, ok := m.templates[cacheKey]
	m.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	tmpl, err := template.New(key).Funcs(funcs).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("i18n: parse %s/%s: %w", lang, key, err)
	}

	m.mu.Lock()
	m.templates[cacheKey] = tmpl
	m.mu.Unlock()

	return tmpl, nil
}

var funcs = template.FuncMap{
	"plural": func(n int, one, other string) string {
		if n == 1 {
			return one
		}
		return other
	},
	"sub": func(a, b int) int { return a - b },
}

type translator struct {
	lang     string
	fallback string
	manager  *Manager
}

func (t translator) Lang() string {
	return t.lang
}

func (t translator) T(key string) string {
	_, value := t.find(key)
	return value
}

func (t translator) Render(key string, params any) string {
	lang, text := t.find(key)
	if lang == "" || !strings.Contains(text, "{{") {
		return text
	}

	tmpl, err := t.manager.template(lang, strings.TrimSpace(key), text)
	if err != nil {
		return text
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return text
	}
	return buf.String()
}

// find returns the language the key was found in together with its value.
// An unknown key resolves to itself with an empty language.
func (t translator) find(key string) (string, string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ""
	}

	if value := t.lookup(t.lang, key); value != "" {
		return t.lang, value
	}

	if value := t.lookup(t.fallback, key); value != "" {
		return t.fallback, value
	}

	return "", key
}

func (t translator) lookup(lang, key string) string {
	if lang == "" || t.manager == nil {
		return ""
	}

	if entries := t.manager.translations[lang]; entries != nil {
		return entries[key]
	}

	return ""
}

func normalizeLang(lang string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(lang)), "_", "-")
}

func parseDir(fsys fs.FS, dir string) (map[string]map[string]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("i18n: read dir %s: %w", dir, err)
	}

	catalog := make(map[string]map[string]string)
	var processed bool

	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry) {
			continue
		}

		processed = true

		fileCatalog, err := parseFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		for lang, translations := range fileCatalog {
			if _, ok := catalog[lang]; !ok {
				catalog[lang] = make(map[string]string)
			}
			for key, value := range translations {
				catalog[lang][key] = value
			}
		}
	}

	if !processed {
		return nil, fmt.Errorf("i18n: no yaml files found in %s", dir)
	}

	return catalog, nil
}

func isYAML(entry fs.DirEntry) bool {
	name := strings.ToLower(entry.Name())
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

func parseFile(fsys fs.FS, name string) (map[string]map[string]string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("i18n: read file %s: %w", name, err)
	}

	if strings.TrimSpace(string(data)) == "" {
		return map[string]map[string]string{}, nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("i18n: parse file %s: %w", name, err)
	}

	catalog := make(map[string]map[string]string)
	for lang, value := range raw {
		langKey := normalizeLang(lang)
		if langKey == "" {
			continue
		}

		normalized, ok := value.(map[string]any)
		if !ok || len(normalized) == 0 {
			continue
		}

		flattened := make(map[string]string)
		flatten("", normalized, flattened)
		if len(flattened) == 0 {
			continue
		}

		catalog[langKey] = flattened
	}

	return catalog, nil
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	for key, value := range in {
		if key == "" {
			continue
		}

		nextKey := key
		if prefix != "" {
			nextKey = prefix + "." + key
		}

		switch v := value.(type) {
		case string:
			out[nextKey] = v
		case map[string]any:
			flatten(nextKey, v, out)
		}
	}
}
