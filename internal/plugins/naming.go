package plugins

import (
	"crypto/sha1"
	"fmt"
	"regexp"
	"strings"
)

const maxSanitizedName = 50

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// DirName builds the installation directory name <sanitized_name>_<uuid>.
// The name part is lowercased, non-alphanumeric runs collapse to a single
// underscore and it is capped at 50 characters.
func DirName(name, uuid string) string {
	sanitized := strings.Trim(nonAlnumRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if sanitized == "" {
		sanitized = "plugin"
	}
	if len(sanitized) > maxSanitizedName {
		sanitized = sanitized[:maxSanitizedName]
	}
	if uuid == "" {
		uuid = "no_uuid"
	}
	return sanitized + "_" + uuid
}

// tempCloneDir names the temporary clone target for a source URL. The name
// is deterministic so a crashed install can be identified and swept.
func tempCloneDir(url string) string {
	return fmt.Sprintf(".tmp-%x", sha1.Sum([]byte(url)))
}
