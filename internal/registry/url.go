package registry

import (
	"os"
	"path/filepath"
	"strings"
)

// NormalizeGitURL normalizes a git URL for comparison. Local paths are
// expanded to absolute form; remote URLs are returned unchanged.
func NormalizeGitURL(url string) string {
	if url == "" {
		return url
	}
	if strings.Contains(url, "://") && !strings.HasPrefix(url, "file://") {
		return url
	}
	path := strings.TrimPrefix(url, "file://")
	if abs := LocalPath(path); abs != "" {
		return abs
	}
	return url
}

// IsLocalPath reports whether url names a local filesystem path rather than
// a remote git URL. Git accepts scheme URLs, scp-like user@host:path syntax
// and plain paths.
func IsLocalPath(url string) bool {
	if url == "" {
		return false
	}
	if strings.Contains(url, "://") {
		return strings.HasPrefix(url, "file://")
	}
	// scp-like syntax: user@host:path has @ before : and no / before the colon.
	if at := strings.Index(url, "@"); at >= 0 {
		if colon := strings.Index(url, ":"); colon > at && !strings.Contains(url[:colon], "/") {
			return false
		}
	}
	return true
}

// LocalPath returns the absolute local path for url, or "" for remote URLs.
func LocalPath(url string) string {
	if !IsLocalPath(url) {
		return ""
	}
	path := strings.TrimPrefix(url, "file://")
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// LocalRepositoryPath returns the path when url names an existing local git
// repository, or "" otherwise.
func LocalRepositoryPath(url string) string {
	path := LocalPath(url)
	if path == "" {
		return ""
	}
	if info, err := os.Stat(filepath.Join(path, ".git")); err == nil && info != nil {
		return path
	}
	return ""
}
