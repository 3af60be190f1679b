package manifest

import (
	"golang.org/x/text/language"
)

// LocalizedName returns the plugin name for the requested locale, falling
// back to the untranslated value when no suitable translation exists.
func (m *Manifest) LocalizedName(locale string) string {
	return m.localized(m.NameI18n, locale, m.Name)
}

// LocalizedDescription returns the short description for the requested locale.
func (m *Manifest) LocalizedDescription(locale string) string {
	return m.localized(m.DescriptionI18n, locale, m.Description)
}

// LocalizedLongDescription returns the long description for the requested locale.
func (m *Manifest) LocalizedLongDescription(locale string) string {
	return m.localized(m.LongDescriptionI18n, locale, m.LongDescription)
}

// localized picks the best translation for locale using BCP 47 matching, so a
// request for "de_AT" still finds a plain "de" entry. Manifest locales use
// underscores (ll_CC); language.Parse accepts both separators.
func (m *Manifest) localized(table map[string]string, locale, fallback string) string {
	if len(table) == 0 || locale == "" {
		return fallback
	}

	want, err := language.Parse(locale)
	if err != nil {
		return fallback
	}

	keys := make([]string, 0, len(table))
	supported := make([]language.Tag, 0, len(table))
	for key := range table {
		tag, err := language.Parse(key)
		if err != nil {
			continue
		}
		keys = append(keys, key)
		supported = append(supported, tag)
	}
	if len(supported) == 0 {
		return fallback
	}

	matcher := language.NewMatcher(supported)
	_, index, confidence := matcher.Match(want)
	if confidence == language.No {
		return fallback
	}
	return table[keys[index]]
}
