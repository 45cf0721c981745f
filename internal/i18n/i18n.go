package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var builtin embed.FS

// Translator resolves message keys to localized text with fallback.
type Translator struct {
	locales     map[string]map[string]string
	defaultLang string
}

// NewTranslator loads all *.yaml locale files from dir.
// Each file is named after its language (en.yaml, es.yaml) and holds flat key/value pairs.
func NewTranslator(dir string, defaultLang string) (*Translator, error) {
	return load(os.DirFS(dir), ".", defaultLang)
}

// NewBuiltin loads the locale files compiled into the binary.
func NewBuiltin(defaultLang string) (*Translator, error) {
	return load(builtin, "locales", defaultLang)
}

func load(fsys fs.FS, root, defaultLang string) (*Translator, error) {
	t := &Translator{
		locales:     make(map[string]map[string]string),
		defaultLang: defaultLang,
	}

	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".yaml") {
			return nil
		}
		lang := strings.TrimSuffix(d.Name(), ".yaml")
		data, readErr := fs.ReadFile(fsys, path)
		if readErr != nil {
			return fmt.Errorf("read locale %s: %w", path, readErr)
		}
		kv := make(map[string]string)
		if unmarshalErr := yaml.Unmarshal(data, &kv); unmarshalErr != nil {
			return fmt.Errorf("parse locale %s: %w", path, unmarshalErr)
		}
		t.locales[lang] = kv
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Ensure default exists
	if _, ok := t.locales[defaultLang]; !ok {
		t.locales[defaultLang] = make(map[string]string)
	}

	return t, nil
}

// NewFallback creates a translator with no locales and a given default language.
func NewFallback(defaultLang string) *Translator {
	return &Translator{
		locales:     map[string]map[string]string{defaultLang: {}},
		defaultLang: defaultLang,
	}
}

// T returns translation for key with fallback to default and then the key itself.
func (t *Translator) T(lang, key string) string {
	if lang != "" {
		if val, ok := t.locales[lang][key]; ok {
			return val
		}
	}
	if val, ok := t.locales[t.defaultLang][key]; ok {
		return val
	}
	return key
}

// Format translates key and fills {name} placeholders from args.
func (t *Translator) Format(lang, key string, args map[string]string) string {
	text := t.T(lang, key)
	if len(args) == 0 {
		return text
	}
	pairs := make([]string, 0, len(args)*2)
	for name, value := range args {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Match picks the best loaded language for an Accept-Language header.
func (t *Translator) Match(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		base, _, _ := strings.Cut(strings.ToLower(tag), "-")
		if _, ok := t.locales[base]; ok {
			return base
		}
	}
	return t.defaultLang
}

// Available returns loaded language codes.
func (t *Translator) Available() []string {
	keys := make([]string, 0, len(t.locales))
	for k := range t.locales {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
