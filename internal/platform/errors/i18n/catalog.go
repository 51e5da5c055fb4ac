// Package i18n provides internationalization support for error messages.
package i18n

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the fallback locale for every lookup.
const BaseLocale = "en-US"

// Code is a machine-readable error code (duplicated from errors package to avoid cycle).
type Code = string

// Catalog maps error codes to message templates for a specific locale.
type Catalog struct {
	locale   string
	messages map[Code]string
}

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

//go:embed locales/*.yaml
var embeddedLocales embed.FS

var (
	catalogsMu sync.RWMutex
	catalogs   = map[string]*Catalog{}
	matcher    language.Matcher
	supported  []string
)

func init() {
	loaded, err := LoadFromFS(embeddedLocales)
	if err != nil {
		panic(err)
	}
	for _, cat := range loaded {
		RegisterCatalog(cat.locale, cat)
	}
}

// LoadFromFS parses every locales/*.yaml file in catalogFS.
func LoadFromFS(catalogFS fs.FS) ([]*Catalog, error) {
	paths, err := fs.Glob(catalogFS, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	out := make([]*Catalog, 0, len(paths))
	hasBase := false
	for _, p := range paths {
		data, err := fs.ReadFile(catalogFS, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		locale := strings.TrimSpace(file.Locale)
		if want := strings.TrimSuffix(path.Base(p), path.Ext(p)); locale != want {
			return nil, fmt.Errorf("catalog %s: locale %q must match file name %q", p, locale, want)
		}
		if len(file.Messages) == 0 {
			return nil, fmt.Errorf("catalog %s: messages are required", p)
		}
		if _, err := language.Parse(locale); err != nil {
			return nil, fmt.Errorf("catalog %s: parse locale: %w", p, err)
		}
		hasBase = hasBase || locale == BaseLocale
		out = append(out, NewCatalog(locale, file.Messages))
	}
	if !hasBase {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	return out, nil
}

// GetCatalog returns the catalog for the given locale.
// Falls back to en-US if the locale is not found.
func GetCatalog(locale string) *Catalog {
	requested := strings.TrimSpace(locale)
	if requested == "" {
		requested = BaseLocale
	}
	if c, ok := lookupCatalog(requested); ok {
		return c
	}
	c, _ := lookupCatalog(BaseLocale)
	return c
}

// Negotiate picks the best supported locale for an Accept-Language value.
func Negotiate(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(strings.TrimSpace(acceptLanguage))
	if err != nil || len(tags) == 0 {
		return BaseLocale
	}
	catalogsMu.RLock()
	m, names := matcher, supported
	catalogsMu.RUnlock()
	if m == nil {
		return BaseLocale
	}
	_, index, confidence := m.Match(tags...)
	if confidence == language.No || index < 0 || index >= len(names) {
		return BaseLocale
	}
	return names[index]
}

// Locale returns the locale of this catalog.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the message template with the given metadata.
// Falls back to the error code itself if no template is found.
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	tmpl, ok := c.messages[code]
	if !ok {
		return code
	}
	if metadata == nil {
		metadata = map[string]string{}
	}

	t, err := template.New("msg").Parse(tmpl)
	if err != nil {
		return tmpl
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, metadata); err != nil {
		return tmpl
	}
	return buf.String()
}

// RegisterCatalog registers a catalog for the given locale and refreshes the
// locale matcher.
func RegisterCatalog(locale string, cat *Catalog) {
	catalogsMu.Lock()
	defer catalogsMu.Unlock()
	catalogs[locale] = cat
	rebuildMatcherLocked()
}

// NewCatalog creates a new catalog with the given locale and messages.
func NewCatalog(locale string, messages map[Code]string) *Catalog {
	cloned := make(map[Code]string, len(messages))
	for key, value := range messages {
		cloned[key] = value
	}
	return &Catalog{locale: locale, messages: cloned}
}

func lookupCatalog(locale string) (*Catalog, bool) {
	catalogsMu.RLock()
	defer catalogsMu.RUnlock()
	cat, ok := catalogs[locale]
	return cat, ok
}

// rebuildMatcherLocked keeps BaseLocale first so it wins ties.
func rebuildMatcherLocked() {
	names := []string{}
	tags := []language.Tag{}
	if _, ok := catalogs[BaseLocale]; ok {
		names = append(names, BaseLocale)
		tags = append(tags, language.MustParse(BaseLocale))
	}
	others := make([]string, 0, len(catalogs))
	for locale := range catalogs {
		if locale != BaseLocale {
			others = append(others, locale)
		}
	}
	sort.Strings(others)
	for _, locale := range others {
		tag, err := language.Parse(locale)
		if err != nil {
			continue
		}
		names = append(names, locale)
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		matcher, supported = nil, nil
		return
	}
	matcher = language.NewMatcher(tags)
	supported = names
}
