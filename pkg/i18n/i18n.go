// Package i18n renders user-facing messages in English or Chinese.
// Catalogues are embedded JSON files addressed by dotted keys such as "errors.not_found".
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed messages/*.json
var messagesFS embed.FS

// Supported locales
const (
	LocaleEnglish = "en"
	LocaleChinese = "zh"
	DefaultLocale = LocaleEnglish
)

type localeKey struct{}

var (
	supportedTags = []language.Tag{language.English, language.Chinese}
	tagLocales    = []string{LocaleEnglish, LocaleChinese}
	tagMatcher    = language.NewMatcher(supportedTags)
)

// catalogue maps a flattened key to its template, per locale
type catalogue map[string]map[string]string

var (
	catalogueOnce sync.Once
	messages      catalogue
)

func loadMessages() catalogue {
	catalogueOnce.Do(func() {
		messages = make(catalogue, len(tagLocales))
		for _, locale := range tagLocales {
			data, err := messagesFS.ReadFile("messages/" + locale + ".json")
			if err != nil {
				panic(fmt.Sprintf("i18n: missing catalogue %s: %v", locale, err))
			}

			var tree map[string]interface{}
			if err := json.Unmarshal(data, &tree); err != nil {
				panic(fmt.Sprintf("i18n: invalid catalogue %s: %v", locale, err))
			}

			flat := make(map[string]string)
			flatten("", tree, flat)
			messages[locale] = flat
		}
	})
	return messages
}

func flatten(prefix string, tree map[string]interface{}, into map[string]string) {
	for k, v := range tree {
		switch val := v.(type) {
		case string:
			into[prefix+k] = val
		case map[string]interface{}:
			flatten(prefix+k+".", val, into)
		}
	}
}

// Keys lists every key of a locale's catalogue in sorted order
func Keys(locale string) []string {
	flat := loadMessages()[locale]
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Localizer renders messages for one locale, falling back to English
type Localizer struct {
	locale string
}

// NewLocalizer returns a localizer; unknown locales get DefaultLocale
func NewLocalizer(locale string) *Localizer {
	if _, ok := loadMessages()[locale]; !ok {
		locale = DefaultLocale
	}
	return &Localizer{locale: locale}
}

// LocalizerFromContext returns the localizer for the request locale
func LocalizerFromContext(ctx context.Context) *Localizer {
	return NewLocalizer(GetLocaleFromContext(ctx))
}

// T renders key, substituting {name} placeholders from params.
// Missing keys render as the key itself.
func (l *Localizer) T(key string, params ...map[string]string) string {
	all := loadMessages()

	msg, ok := all[l.locale][key]
	if !ok {
		msg, ok = all[DefaultLocale][key]
	}
	if !ok {
		return key
	}

	if len(params) == 0 || len(params[0]) == 0 {
		return msg
	}
	pairs := make([]string, 0, 2*len(params[0]))
	for k, v := range params[0] {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

// GetLocale returns the localizer's locale
func (l *Localizer) GetLocale() string {
	return l.locale
}

// WithLocale stores locale on ctx
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey{}, locale)
}

// GetLocaleFromContext returns the locale stored by WithLocale, or DefaultLocale
func GetLocaleFromContext(ctx context.Context) string {
	if locale, ok := ctx.Value(localeKey{}).(string); ok && locale != "" {
		return locale
	}
	return DefaultLocale
}

// ParseAcceptLanguage matches the Accept-Language header against the supported locales
func ParseAcceptLanguage(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return DefaultLocale
	}

	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}

	_, index, confidence := tagMatcher.Match(tags...)
	if confidence == language.No {
		return DefaultLocale
	}
	return tagLocales[index]
}

// T translates using the default locale
func T(key string, params ...map[string]string) string {
	return NewLocalizer(DefaultLocale).T(key, params...)
}

// TFromContext translates using the locale on ctx
func TFromContext(ctx context.Context, key string, params ...map[string]string) string {
	return LocalizerFromContext(ctx).T(key, params...)
}
