package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsLocalPath(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://example.org/plugin.git", false},
		{"git://example.org/plugin.git", false},
		{"ssh://git@example.org/plugin.git", false},
		{"git@example.org:user/plugin.git", false},
		{"file:///srv/plugins/example", true},
		{"/srv/plugins/example", true},
		{"~/plugins/example", true},
		{"relative/path", true},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsLocalPath(tc.url); got != tc.want {
			t.Errorf("IsLocalPath(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestNormalizeGitURL(t *testing.T) {
	if got := NormalizeGitURL("https://example.org/p.git"); got != "https://example.org/p.git" {
		t.Errorf("remote URL should be unchanged, got %q", got)
	}
	if got := NormalizeGitURL("file:///srv/plugins/example"); got != "/srv/plugins/example" {
		t.Errorf("file URL = %q", got)
	}
	if got := NormalizeGitURL(""); got != "" {
		t.Errorf("empty URL = %q", got)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if got := NormalizeGitURL("relative/path"); got != filepath.Join(wd, "relative/path") {
		t.Errorf("relative path = %q", got)
	}
}

func TestLocalRepositoryPath(t *testing.T) {
	dir := t.TempDir()
	if got := LocalRepositoryPath(dir); got != "" {
		t.Errorf("directory without .git reported as repository: %q", got)
	}
	if err := os.Mkdir(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if got := LocalRepositoryPath(dir); got != dir {
		t.Errorf("LocalRepositoryPath = %q, want %q", got, dir)
	}
	if got := LocalRepositoryPath("https://example.org/p.git"); got != "" {
		t.Errorf("remote URL reported as local repository: %q", got)
	}
}
