package plugins

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// checkFreeSpace refuses installs when the plugin directory's filesystem is
// nearly full. Running out of space mid-clone leaves a broken tree.
func checkFreeSpace(dir string, required uint64) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		// Preflight only; an exotic filesystem must not block installs.
		return nil
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < required {
		return fmt.Errorf("not enough free space in %s: %d bytes available, %d required", dir, free, required)
	}
	return nil
}

// VerifyFreeSpace runs the install preflight on demand, for environment
// checks.
func (m *Manager) VerifyFreeSpace() error {
	return checkFreeSpace(m.pluginDir, minFreeBytes)
}
