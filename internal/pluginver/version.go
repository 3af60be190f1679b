package pluginver

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// APIVersion is a plugin API version of the form MAJOR.MINOR.
type APIVersion struct {
	Major int
	Minor int
}

func (v APIVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Less reports whether v orders before other.
func (v APIVersion) Less(other APIVersion) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	return v.Minor < other.Minor
}

// ParseAPIVersion parses a MAJOR.MINOR version string.
func ParseAPIVersion(s string) (APIVersion, error) {
	majorStr, minorStr, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return APIVersion{}, fmt.Errorf("invalid API version %q", s)
	}
	major, err := strconv.Atoi(majorStr)
	if err != nil {
		return APIVersion{}, fmt.Errorf("invalid API version %q", s)
	}
	minor, err := strconv.Atoi(minorStr)
	if err != nil {
		return APIVersion{}, fmt.Errorf("invalid API version %q", s)
	}
	return APIVersion{Major: major, Minor: minor}, nil
}

// Compatible reports whether any plugin-declared API version is among the
// versions the host supports.
func Compatible(pluginVersions, hostVersions []string) bool {
	host := make(map[APIVersion]struct{}, len(hostVersions))
	for _, s := range hostVersions {
		if v, err := ParseAPIVersion(s); err == nil {
			host[v] = struct{}{}
		}
	}
	for _, s := range pluginVersions {
		v, err := ParseAPIVersion(s)
		if err != nil {
			continue
		}
		if _, ok := host[v]; ok {
			return true
		}
	}
	return false
}

// Versioning schemes supported by the registry.
const (
	SchemeSemver = "semver"
	SchemeCalver = "calver"

	schemeRegexPrefix = "regex:"
)

var (
	firstDigitRe = regexp.MustCompile(`\d`)
	semverTagRe  = regexp.MustCompile(`^v?\d+\.\d+(\.\d+)?([-+].*)?$`)
	calverTagRe  = regexp.MustCompile(`^v?\d{4}\.\d{1,2}(\.\d{1,2})?$`)
)

// SchemePattern returns the tag filter for a versioning scheme, or nil when
// the scheme is unknown or empty (meaning no version tags).
func SchemePattern(scheme string) *regexp.Regexp {
	switch {
	case scheme == SchemeSemver:
		return semverTagRe
	case scheme == SchemeCalver:
		return calverTagRe
	case strings.HasPrefix(scheme, schemeRegexPrefix):
		pattern, err := regexp.Compile(strings.TrimPrefix(scheme, schemeRegexPrefix))
		if err != nil {
			return nil
		}
		return pattern
	default:
		return nil
	}
}

// stripToFirstDigit drops any non-digit prefix such as "v" or "release-".
func stripToFirstDigit(tag string) string {
	if loc := firstDigitRe.FindStringIndex(tag); loc != nil {
		return tag[loc[0]:]
	}
	return tag
}

// canonical converts a tag into a semver.Canonical-comparable string, or ""
// when the tag does not parse as a version.
func canonical(tag string) string {
	v := "v" + stripToFirstDigit(tag)
	if !semver.IsValid(v) {
		// Tolerate two-part versions like "1.2".
		if semver.IsValid(v + ".0") {
			return v + ".0"
		}
		return ""
	}
	return v
}

// SortTags orders tags newest-first according to the versioning scheme.
// Tags that do not parse as versions sort last.
func SortTags(tags []string, scheme string) []string {
	sorted := append([]string{}, tags...)
	switch scheme {
	case SchemeSemver:
		sort.SliceStable(sorted, func(i, j int) bool {
			vi, vj := canonical(sorted[i]), canonical(sorted[j])
			if vi == "" || vj == "" {
				return vj == "" && vi != ""
			}
			return semver.Compare(vi, vj) > 0
		})
	case SchemeCalver:
		sort.SliceStable(sorted, func(i, j int) bool {
			return stripToFirstDigit(sorted[i]) > stripToFirstDigit(sorted[j])
		})
	default:
		// Custom regex schemes: version order where parseable, natural
		// string order otherwise.
		sort.SliceStable(sorted, func(i, j int) bool {
			vi, vj := canonical(sorted[i]), canonical(sorted[j])
			if vi != "" && vj != "" {
				return semver.Compare(vi, vj) > 0
			}
			if vi != "" || vj != "" {
				return vi != ""
			}
			return sorted[i] > sorted[j]
		})
	}
	return sorted
}

// NewerTag returns the newest tag strictly greater than current under the
// scheme's ordering, or "" when none exists.
func NewerTag(tags []string, current, scheme string) string {
	sorted := SortTags(tags, scheme)
	if len(sorted) == 0 {
		return ""
	}

	switch scheme {
	case SchemeSemver, SchemeCalver:
		currentVersion := canonical(current)
		if currentVersion == "" {
			return ""
		}
		for _, tag := range sorted {
			if v := canonical(tag); v != "" && semver.Compare(v, currentVersion) > 0 {
				return tag
			}
		}
		return ""
	default:
		for _, tag := range sorted {
			if tag > current {
				return tag
			}
		}
		return ""
	}
}
