package legacy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

const maxShortDescription = 200

// scaffold mirrors the MANIFEST.toml field order authors expect to see.
type scaffold struct {
	UUID            string   `toml:"uuid"`
	Name            string   `toml:"name"`
	Authors         []string `toml:"authors"`
	Version         string   `toml:"version"`
	Description     string   `toml:"description"`
	LongDescription string   `toml:"long_description,omitempty"`
	API             []string `toml:"api"`
	License         string   `toml:"license"`
	LicenseURL      string   `toml:"license_url"`
}

// ScaffoldManifest generates MANIFEST.toml content for an old-style plugin,
// assigning a fresh UUID. Old API versions map to the current major line.
func ScaffoldManifest(meta Metadata) (string, error) {
	if meta.Name == "" {
		return "", fmt.Errorf("plugin has no name")
	}

	apiSet := map[string]struct{}{}
	for _, v := range meta.APIVersions {
		if v == "1.0" || v == "2.0" {
			apiSet["3.0"] = struct{}{}
		}
	}
	if len(apiSet) == 0 {
		apiSet["3.0"] = struct{}{}
	}
	api := make([]string, 0, len(apiSet))
	for v := range apiSet {
		api = append(api, v)
	}
	sort.Strings(api)

	description := meta.Description
	longDescription := ""
	if len(description) > maxShortDescription {
		longDescription = description
		// Prefer a sentence boundary for the short form.
		if idx := strings.Index(description, ". "); idx > 0 && idx < maxShortDescription {
			description = description[:idx+1]
		} else {
			description = description[:maxShortDescription-3] + "..."
		}
	}

	m := scaffold{
		UUID:            uuid.NewString(),
		Name:            meta.Name,
		Authors:         []string{valueOr(meta.Author, "Unknown")},
		Version:         valueOr(meta.Version, "1.0.0"),
		Description:     description,
		LongDescription: longDescription,
		API:             api,
		License:         valueOr(meta.License, "GPL-2.0-or-later"),
		LicenseURL:      valueOr(meta.LicenseURL, "https://www.gnu.org/licenses/gpl-2.0.html"),
	}

	out, err := toml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode manifest scaffold: %w", err)
	}
	return string(out), nil
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
