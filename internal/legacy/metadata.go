package legacy

import (
	"regexp"
	"strings"
)

// Metadata is the PLUGIN_* constant block of an old-style plugin.
type Metadata struct {
	Name        string
	Author      string
	Description string
	Version     string
	APIVersions []string
	License     string
	LicenseURL  string
}

var (
	namePat       = regexp.MustCompile(`PLUGIN_NAME\s*=\s*["'](.+?)["']`)
	authorSingle  = regexp.MustCompile(`PLUGIN_AUTHOR\s*=\s*'((?:[^'\\]|\\.)*)'`)
	authorDouble  = regexp.MustCompile(`PLUGIN_AUTHOR\s*=\s*"((?:[^"\\]|\\.)*)"`)
	versionPat    = regexp.MustCompile(`PLUGIN_VERSION\s*=\s*["'](.+?)["']`)
	apiPat        = regexp.MustCompile(`(?s)PLUGIN_API_VERSIONS\s*=\s*\[(.+?)\]`)
	licensePat    = regexp.MustCompile(`PLUGIN_LICENSE\s*=\s*["'](.+?)["']`)
	licenseURLPat = regexp.MustCompile(`PLUGIN_LICENSE_URL\s*=\s*["'](.+?)["']`)
	quotedPat     = regexp.MustCompile(`["']([^"']+)["']`)

	// Description forms, in matching order: triple quotes, parenthesized
	// string concatenation, then plain single or double quoted strings.
	descTriple1 = regexp.MustCompile(`(?s)PLUGIN_DESCRIPTION\s*=\s*'''(.*?)'''`)
	descTriple2 = regexp.MustCompile(`(?s)PLUGIN_DESCRIPTION\s*=\s*"""(.*?)"""`)
	descParen   = regexp.MustCompile(`(?s)PLUGIN_DESCRIPTION\s*=\s*\((.*?)\)`)
	descSingle  = regexp.MustCompile(`PLUGIN_DESCRIPTION\s*=\s*'((?:[^'\\]|\\.)*)'`)
	descDouble  = regexp.MustCompile(`(?s)PLUGIN_DESCRIPTION\s*=\s*"((?:[^"\\]|\\.)*)"`)

	continuationPat = regexp.MustCompile(`\\\s*\n\s*`)
	spacesPat       = regexp.MustCompile(`\s+`)
)

// ExtractMetadata pulls the PLUGIN_* constants out of plugin source code.
// Missing constants leave their fields empty; a result with no Name means
// the file is not a plugin.
func ExtractMetadata(source string) Metadata {
	var meta Metadata

	if m := namePat.FindStringSubmatch(source); m != nil {
		meta.Name = m[1]
	}
	if m := authorSingle.FindStringSubmatch(source); m != nil {
		meta.Author = unescapeQuotes(m[1])
	} else if m := authorDouble.FindStringSubmatch(source); m != nil {
		meta.Author = unescapeQuotes(m[1])
	}
	if m := versionPat.FindStringSubmatch(source); m != nil {
		meta.Version = m[1]
	}
	if m := licensePat.FindStringSubmatch(source); m != nil {
		meta.License = m[1]
	}
	if m := licenseURLPat.FindStringSubmatch(source); m != nil {
		meta.LicenseURL = m[1]
	}
	if m := apiPat.FindStringSubmatch(source); m != nil {
		for _, q := range quotedPat.FindAllStringSubmatch(m[1], -1) {
			meta.APIVersions = append(meta.APIVersions, q[1])
		}
	}
	meta.Description = extractDescription(source)
	return meta
}

func extractDescription(source string) string {
	for _, pat := range []*regexp.Regexp{descTriple1, descTriple2} {
		if m := pat.FindStringSubmatch(source); m != nil {
			return cleanDescription(m[1])
		}
	}
	if m := descParen.FindStringSubmatch(source); m != nil {
		var parts []string
		for _, q := range quotedPat.FindAllStringSubmatch(m[1], -1) {
			parts = append(parts, q[1])
		}
		if len(parts) > 0 {
			return cleanDescription(strings.Join(parts, ""))
		}
	}
	for _, pat := range []*regexp.Regexp{descSingle, descDouble} {
		if m := pat.FindStringSubmatch(source); m != nil {
			return cleanDescription(m[1])
		}
	}
	return ""
}

func cleanDescription(desc string) string {
	desc = continuationPat.ReplaceAllString(desc, " ")
	desc = spacesPat.ReplaceAllString(desc, " ")
	return strings.TrimSpace(desc)
}

func unescapeQuotes(s string) string {
	s = strings.ReplaceAll(s, `\"`, `"`)
	return strings.ReplaceAll(s, `\'`, `'`)
}
