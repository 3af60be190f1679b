package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteManifest writes a minimal valid plugin manifest into dir.
func WriteManifest(t testing.TB, dir, uuid, name string, api ...string) {
	t.Helper()

	if len(api) == 0 {
		api = []string{"3.0"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", dir, err)
	}
	content := fmt.Sprintf("uuid = %q\nname = %q\nversion = \"1.0.0\"\ndescription = \"Test plugin.\"\napi = [", uuid, name)
	for i, v := range api {
		if i > 0 {
			content += ", "
		}
		content += fmt.Sprintf("%q", v)
	}
	content += "]\n"
	if err := os.WriteFile(filepath.Join(dir, "MANIFEST.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}
