package store

import "time"

// InstalledPlugin is the persisted record of one installed plugin.
type InstalledPlugin struct {
	UUID       string
	Name       string
	DirName    string
	URL        string
	Ref        string
	RefType    string
	Commit     string
	Version    string
	TrustLevel string
	Enabled    bool

	// OriginalURL and OriginalUUID record the pre-redirect source when a
	// registry redirect moved the plugin to a new home.
	OriginalURL  string
	OriginalUUID string

	InstalledAt time.Time
	UpdatedAt   time.Time
}
