package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"riff/internal/store"
)

type pluginListEntry struct {
	UUID       string `json:"uuid"`
	Name       string `json:"name"`
	Version    string `json:"version"`
	Ref        string `json:"ref"`
	RefType    string `json:"ref_type"`
	Commit     string `json:"commit"`
	URL        string `json:"url"`
	TrustLevel string `json:"trust_level"`
	Enabled    bool   `json:"enabled"`
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd.Context(), func(rt *runtime) error {
				installed, err := rt.manager.List(cmd.Context())
				if err != nil {
					return err
				}

				if asJSON {
					entries := make([]pluginListEntry, 0, len(installed))
					for _, p := range installed {
						entries = append(entries, listEntry(p))
					}
					return writeJSON(cmd, entries)
				}

				out := cmd.OutOrStdout()
				if len(installed) == 0 {
					fmt.Fprintln(out, "No plugins installed.")
					return nil
				}
				rows := make([][]string, 0, len(installed))
				for _, p := range installed {
					rows = append(rows, []string{
						p.Name, p.Version, p.Ref, shortCommit(p.Commit), p.TrustLevel, yesNo(p.Enabled),
					})
				}
				if !isTerminal(out) {
					// Pipes get machine-friendly tab-separated lines.
					for _, row := range rows {
						fmt.Fprintln(out, strings.Join(row, "\t"))
					}
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Name", "Version", "Ref", "Commit", "Trust", "Enabled"}, rows))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func listEntry(p *store.InstalledPlugin) pluginListEntry {
	return pluginListEntry{
		UUID:       p.UUID,
		Name:       p.Name,
		Version:    p.Version,
		Ref:        p.Ref,
		RefType:    p.RefType,
		Commit:     p.Commit,
		URL:        p.URL,
		TrustLevel: p.TrustLevel,
		Enabled:    p.Enabled,
	}
}

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info <plugin>",
		Short: "Show details for an installed plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd.Context(), func(rt *runtime) error {
				p, err := rt.manager.Find(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				mf, mfErr := rt.manager.Manifest(p)

				if asJSON {
					payload := map[string]any{"plugin": listEntry(p)}
					if mfErr == nil {
						payload["manifest"] = mf
					}
					return writeJSON(cmd, payload)
				}

				locale := rt.cfg.Host.Locale
				out := cmd.OutOrStdout()
				name := p.Name
				description := ""
				if mfErr == nil {
					name = mf.LocalizedName(locale)
					description = mf.LocalizedDescription(locale)
				}
				fmt.Fprintf(out, "%s %s\n", name, p.Version)
				if description != "" {
					fmt.Fprintf(out, "  %s\n", description)
				}
				fmt.Fprintf(out, "  UUID:      %s\n", p.UUID)
				fmt.Fprintf(out, "  Source:    %s\n", p.URL)
				if p.OriginalURL != "" {
					fmt.Fprintf(out, "  Moved from: %s\n", p.OriginalURL)
				}
				fmt.Fprintf(out, "  Ref:       %s (%s) @ %s\n", p.Ref, p.RefType, shortCommit(p.Commit))
				if date, err := rt.manager.CommitDate(cmd.Context(), p); err == nil {
					fmt.Fprintf(out, "  Committed: %s\n", date.Local().Format(time.RFC1123))
				}
				fmt.Fprintf(out, "  Trust:     %s\n", p.TrustLevel)
				fmt.Fprintf(out, "  Enabled:   %s\n", yesNo(p.Enabled))
				fmt.Fprintf(out, "  Installed: %s\n", p.InstalledAt.Local().Format(time.RFC1123))
				if mfErr == nil {
					if len(mf.Authors) > 0 {
						fmt.Fprintf(out, "  Authors:   %v\n", mf.Authors)
					}
					if mf.License != "" {
						fmt.Fprintf(out, "  License:   %s\n", mf.License)
					}
					if mf.Homepage != "" {
						fmt.Fprintf(out, "  Homepage:  %s\n", mf.Homepage)
					}
				} else {
					fmt.Fprintf(out, "  Manifest:  unreadable (%v)\n", mfErr)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
