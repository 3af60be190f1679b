package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"riff/internal/legacy"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var scaffoldDir string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "migrate [legacy-plugin-dir]",
		Short: "Inspect old-style plugins and suggest migration paths",
		Long: "Scans a directory of old-style plugins, matches them against the\n" +
			"registry for new-style successors and optionally scaffolds manifest\n" +
			"files to help plugin authors port their code. Without an argument\n" +
			"the configured paths.legacy_plugin_dir is scanned.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd.Context(), func(rt *runtime) error {
				dir := rt.cfg.Paths.LegacyPluginDir
				if len(args) > 0 {
					dir = args[0]
				}
				if dir == "" {
					return errors.New("no legacy plugin directory given and paths.legacy_plugin_dir is not set")
				}
				found, failures, err := legacy.Scan(dir)
				if err != nil {
					return err
				}
				entries := legacy.Report(cmd.Context(), found, rt.registry)

				if scaffoldDir != "" {
					if err := writeScaffolds(cmd, entries, scaffoldDir); err != nil {
						return err
					}
				}

				if asJSON {
					return writeJSON(cmd, map[string]any{
						"plugins":  entries,
						"failures": failureStrings(failures),
					})
				}

				out := cmd.OutOrStdout()
				if len(entries) == 0 && len(failures) == 0 {
					fmt.Fprintln(out, "No old-style plugins found.")
					return nil
				}
				for _, entry := range entries {
					switch entry.Status {
					case legacy.StatusSuccessor:
						fmt.Fprintf(out, "%s: new version available, install with `riff install %s`\n",
							entry.Plugin.Name, entry.Successor.GitURL)
					case legacy.StatusIncompatible:
						fmt.Fprintf(out, "%s: targets an unsupported API and has no known successor\n",
							entry.Plugin.Name)
					default:
						fmt.Fprintf(out, "%s: no registry match; contact the plugin author\n",
							entry.Plugin.Name)
					}
				}
				for _, failure := range failures {
					fmt.Fprintf(out, "could not read %s: %v\n", failure.Path, failure.Err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&scaffoldDir, "scaffold", "", "Write manifest scaffolds for scanned plugins into this directory")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func writeScaffolds(cmd *cobra.Command, entries []legacy.ReportEntry, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create scaffold directory: %w", err)
	}
	for _, entry := range entries {
		content, err := legacy.ScaffoldManifest(entry.Plugin.Metadata)
		if err != nil {
			return fmt.Errorf("scaffold %s: %w", entry.Plugin.ModuleName, err)
		}
		target := filepath.Join(dir, entry.Plugin.ModuleName+".MANIFEST.toml")
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write scaffold: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", target)
	}
	return nil
}

func failureStrings(failures []legacy.ScanFailure) []string {
	out := make([]string, 0, len(failures))
	for _, f := range failures {
		out = append(out, fmt.Sprintf("%s: %v", f.Path, f.Err))
	}
	return out
}
