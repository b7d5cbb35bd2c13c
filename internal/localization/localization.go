// Package localization provides functionality for internationalization (i18n).
// Catalogs are JSON files named by language code ("en.json"); the default set
// is embedded in the binary and a directory can override it.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
)

//go:embed locales/*.json
var embedded embed.FS

const DefaultLang = "en"

// Localizer manages the translations for the application.
type Localizer struct {
	translations map[string]map[string]string
	fallback     string
	mu           sync.RWMutex
}

// Default returns a Localizer built from the embedded catalogs.
func Default() *Localizer {
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		panic(err)
	}
	l, err := Load(sub)
	if err != nil {
		panic(err)
	}
	return l
}

// NewLocalizer loads all translations from the provided directory path.
func NewLocalizer(path string) (*Localizer, error) {
	return Load(os.DirFS(path))
}

// Load reads every *.json catalog at the root of fsys.
func Load(fsys fs.FS) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
		fallback:     DefaultLang,
	}

	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		data, err := fs.ReadFile(fsys, file.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read localization file %s: %w", file.Name(), err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}

		l.translations[strings.TrimSuffix(file.Name(), ".json")] = translations
	}

	return l, nil
}

// SetFallback changes the language used when a key is missing.
func (l *Localizer) SetFallback(lang string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fallback = lang
}

// Has reports whether a catalog for lang is loaded.
func (l *Localizer) Has(lang string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.translations[lang]
	return ok
}

// GetString returns the localized string for a given key and language.
// If the language or the key is not found, it returns the key itself as a fallback.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if langTranslations, ok := l.translations[lang]; ok {
		if value, ok := langTranslations[key]; ok {
			return value
		}
	}

	if lang != l.fallback {
		if fb, ok := l.translations[l.fallback]; ok {
			if value, ok := fb[key]; ok {
				return value
			}
		}
	}

	return key
}

// Format looks up key and substitutes {name} placeholders.
func (l *Localizer) Format(lang, key string, args map[string]string) string {
	s := l.GetString(lang, key)
	for k, v := range args {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

// PickLang chooses the first supported language from an Accept-Language value.
func (l *Localizer) PickLang(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		tag = strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if tag != "" && l.Has(tag) {
			return tag
		}
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fallback
}
