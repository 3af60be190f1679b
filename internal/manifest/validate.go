package manifest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"riff/internal/pluginver"
)

const (
	maxNameLength            = 100
	maxDescriptionLength     = 200
	maxLongDescriptionLength = 2000
)

var (
	sourceLocaleRe = regexp.MustCompile(`^[a-z]{2}(_[A-Z]{2})?$`)
	htmlTagRe      = regexp.MustCompile(`<[a-zA-Z/][^>]*>`)
	dangerousTagRe = regexp.MustCompile(`(?i)<\s*(script|iframe|object|embed)\b`)
	// List items nested deeper than 8 levels (4 spaces each) are rejected.
	excessiveNestingRe = regexp.MustCompile(`(?m)^ {36,}[-*+]`)
)

// Validate checks the manifest against the schema rules and returns every
// problem found, not just the first.
func (m *Manifest) Validate() []string {
	var problems []string

	problems = appendRequired(problems, "uuid", m.UUID)
	problems = appendRequired(problems, "name", m.Name)
	problems = appendRequired(problems, "description", m.Description)
	if len(m.API) == 0 {
		problems = append(problems, "missing required field: api")
	}

	if m.UUID != "" {
		parsed, err := uuid.Parse(m.UUID)
		if err != nil || parsed.Version() != 4 {
			problems = append(problems, "field 'uuid' must be a valid UUID v4")
		}
	}
	if m.Name != "" && len(m.Name) > maxNameLength {
		problems = append(problems, fmt.Sprintf("field 'name' must be 1-%d characters", maxNameLength))
	}
	if m.Description != "" && len(m.Description) > maxDescriptionLength {
		problems = append(problems, fmt.Sprintf("field 'description' must be 1-%d characters", maxDescriptionLength))
	}
	if m.LongDescription != "" {
		if len(m.LongDescription) > maxLongDescriptionLength {
			problems = append(problems, fmt.Sprintf("field 'long_description' must be max %d characters", maxLongDescriptionLength))
		}
		problems = append(problems, checkMarkdown("long_description", m.LongDescription)...)
	}

	for _, v := range m.API {
		if _, err := pluginver.ParseAPIVersion(v); err != nil {
			problems = append(problems, fmt.Sprintf("invalid API version %q", v))
		}
	}

	if m.Authors != nil && len(m.Authors) == 0 {
		problems = append(problems, "field 'authors' must contain at least one author if present")
	}
	if m.Categories != nil && len(m.Categories) == 0 {
		problems = append(problems, "field 'categories' must contain at least one category if present")
	}
	// Unknown category names are accepted for forward compatibility.

	if m.SourceLocale != "" && !sourceLocaleRe.MatchString(m.SourceLocale) {
		problems = append(problems, fmt.Sprintf("field 'source_locale' %q is not a valid locale (expected ll or ll_CC)", m.SourceLocale))
	}

	problems = append(problems, checkI18nSection("name_i18n", m.NameI18n, false)...)
	problems = append(problems, checkI18nSection("description_i18n", m.DescriptionI18n, false)...)
	problems = append(problems, checkI18nSection("long_description_i18n", m.LongDescriptionI18n, true)...)

	return problems
}

func appendRequired(problems []string, field, value string) []string {
	if strings.TrimSpace(value) == "" {
		return append(problems, "missing required field: "+field)
	}
	return problems
}

func checkI18nSection(name string, section map[string]string, markdown bool) []string {
	if section == nil {
		return nil
	}
	if len(section) == 0 {
		return []string{fmt.Sprintf("section '%s' is present but empty", name)}
	}
	var problems []string
	for locale, text := range section {
		if markdown {
			problems = append(problems, checkMarkdown(name+"."+locale, text)...)
		}
		if strings.TrimSpace(text) == "" {
			problems = append(problems, fmt.Sprintf("section '%s' entry %q is empty", name, locale))
		}
	}
	return problems
}

// checkMarkdown rejects HTML and structures that render poorly in the plugin
// browser. Only plain markdown is allowed in long descriptions.
func checkMarkdown(field, text string) []string {
	var problems []string
	if dangerousTagRe.MatchString(text) {
		problems = append(problems, fmt.Sprintf("field '%s' contains dangerous HTML content", field))
	} else if htmlTagRe.MatchString(text) {
		problems = append(problems, fmt.Sprintf("field '%s' contains HTML tags, only markdown is allowed", field))
	}
	if excessiveNestingRe.MatchString(text) {
		problems = append(problems, fmt.Sprintf("field '%s' contains excessive list nesting", field))
	}
	return problems
}
