package legacy

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Plugin is one discovered old-style plugin.
type Plugin struct {
	// ModuleName is the plugin's module name (file or directory stem).
	ModuleName string
	// Path is where the plugin was found.
	Path string
	// Kind is file, package or zip.
	Kind string
	Metadata
}

// ScanFailure records a plugin that could not be read.
type ScanFailure struct {
	Path string
	Err  error
}

const (
	KindFile    = "file"
	KindPackage = "package"
	KindZip     = "zip"
)

// Scan walks a legacy plugin directory and extracts metadata from every
// *.py file, package directory and *.zip archive found at the top level.
// Unreadable entries are reported as failures without aborting the scan.
func Scan(dir string) ([]Plugin, []ScanFailure, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read legacy plugin directory: %w", err)
	}

	var plugins []Plugin
	var failures []ScanFailure
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		path := filepath.Join(dir, name)

		var plugin *Plugin
		var err error
		switch {
		case entry.IsDir():
			plugin, err = scanPackage(path)
		case strings.HasSuffix(name, ".py"):
			plugin, err = scanFile(path)
		case strings.HasSuffix(name, ".zip"):
			plugin, err = scanZip(path)
		default:
			continue
		}

		if err != nil {
			failures = append(failures, ScanFailure{Path: path, Err: err})
			continue
		}
		if plugin != nil {
			plugins = append(plugins, *plugin)
		}
	}
	return plugins, failures, nil
}

func scanFile(path string) (*Plugin, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	meta := ExtractMetadata(string(source))
	if meta.Name == "" {
		// Not a plugin, just a stray Python file.
		return nil, nil
	}
	return &Plugin{
		ModuleName: strings.TrimSuffix(filepath.Base(path), ".py"),
		Path:       path,
		Kind:       KindFile,
		Metadata:   meta,
	}, nil
}

func scanPackage(path string) (*Plugin, error) {
	source, err := os.ReadFile(filepath.Join(path, "__init__.py"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	meta := ExtractMetadata(string(source))
	if meta.Name == "" {
		return nil, nil
	}
	return &Plugin{
		ModuleName: filepath.Base(path),
		Path:       path,
		Kind:       KindPackage,
		Metadata:   meta,
	}, nil
}

// scanZip looks for <module>/__init__.py or <module>.py inside the archive.
func scanZip(path string) (*Plugin, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	moduleName := strings.TrimSuffix(filepath.Base(path), ".zip")
	candidates := []string{
		moduleName + "/__init__.py",
		moduleName + ".py",
	}
	for _, file := range reader.File {
		for _, want := range candidates {
			if file.Name != want {
				continue
			}
			rc, err := file.Open()
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", file.Name, err)
			}
			source, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", file.Name, err)
			}
			meta := ExtractMetadata(string(source))
			if meta.Name == "" {
				return nil, nil
			}
			return &Plugin{
				ModuleName: moduleName,
				Path:       path,
				Kind:       KindZip,
				Metadata:   meta,
			}, nil
		}
	}
	return nil, nil
}
