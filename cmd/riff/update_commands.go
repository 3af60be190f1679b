package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"riff/internal/plugins"
	"riff/internal/registry"
)

func newUpdateCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var opts plugins.UpdateOptions

	cmd := &cobra.Command{
		Use:   "update [plugin]",
		Short: "Update installed plugins",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return errors.New("name a plugin or pass --all")
			}
			return ctx.withManager(cmd.Context(), func(rt *runtime) error {
				out := cmd.OutOrStdout()
				if all {
					results, err := rt.manager.UpdateAll(cmd.Context(), opts)
					if err != nil {
						return err
					}
					failed := 0
					for _, result := range results {
						printUpdateResult(out, result)
						if result.Err != nil {
							failed++
						}
					}
					if failed > 0 {
						return fmt.Errorf("%d plugin(s) failed to update", failed)
					}
					return nil
				}

				result, err := rt.manager.Update(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				printUpdateResult(out, result)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Update every installed plugin")
	cmd.Flags().BoolVar(&opts.Discard, "discard", false, "Discard local modifications")
	return cmd
}

func printUpdateResult(out io.Writer, result *plugins.UpdateResult) {
	name := result.Plugin.Name
	switch {
	case result.Err != nil:
		fmt.Fprintf(out, "%s: update failed: %v\n", name, result.Err)
	case result.Skipped != nil:
		fmt.Fprintf(out, "%s: skipped (%v)\n", name, result.Skipped)
	case result.Updated:
		fmt.Fprintf(out, "%s: %s -> %s (%s)\n",
			name, shortCommit(result.OldCommit), shortCommit(result.NewCommit), result.NewRef)
	default:
		fmt.Fprintf(out, "%s: up to date\n", name)
	}
}

func newCheckUpdatesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check-updates",
		Short: "Report available plugin updates without applying them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd.Context(), func(rt *runtime) error {
				checks, err := rt.manager.CheckUpdates(cmd.Context())
				if err != nil {
					return err
				}

				if asJSON {
					type check struct {
						Name            string `json:"name"`
						CurrentCommit   string `json:"current_commit"`
						LatestCommit    string `json:"latest_commit,omitempty"`
						NewerTag        string `json:"newer_tag,omitempty"`
						UpdateAvailable bool   `json:"update_available"`
						Pinned          bool   `json:"pinned"`
					}
					entries := make([]check, 0, len(checks))
					for _, c := range checks {
						entries = append(entries, check{
							Name:            c.Plugin.Name,
							CurrentCommit:   c.CurrentCommit,
							LatestCommit:    c.LatestCommit,
							NewerTag:        c.NewerTag,
							UpdateAvailable: c.UpdateAvailable,
							Pinned:          c.Pinned,
						})
					}
					return writeJSON(cmd, entries)
				}

				out := cmd.OutOrStdout()
				if len(checks) == 0 {
					fmt.Fprintln(out, "No plugins installed.")
					return nil
				}
				for _, c := range checks {
					switch {
					case c.Pinned:
						fmt.Fprintf(out, "%s: pinned to %s\n", c.Plugin.Name, shortCommit(c.CurrentCommit))
					case c.NewerTag != "":
						fmt.Fprintf(out, "%s: %s available (currently %s)\n", c.Plugin.Name, c.NewerTag, c.Plugin.Ref)
					case c.UpdateAvailable:
						fmt.Fprintf(out, "%s: %s -> %s\n", c.Plugin.Name,
							shortCommit(c.CurrentCommit), shortCommit(c.LatestCommit))
					default:
						fmt.Fprintf(out, "%s: up to date\n", c.Plugin.Name)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newSwitchRefCommand(ctx *commandContext) *cobra.Command {
	var discard bool

	cmd := &cobra.Command{
		Use:   "switch-ref <plugin> <ref>",
		Short: "Check out a different branch, tag or commit for a plugin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd.Context(), func(rt *runtime) error {
				p, err := rt.manager.SwitchRef(cmd.Context(), args[0], args[1], discard)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s now at %s (%s) @ %s\n",
					p.Name, p.Ref, p.RefType, shortCommit(p.Commit))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&discard, "discard", false, "Discard local modifications")
	return cmd
}

func newRefsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var refresh bool

	cmd := &cobra.Command{
		Use:   "refs <url>",
		Short: "List a plugin repository's branches and tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd.Context(), func(rt *runtime) error {
				if refresh {
					rt.manager.InvalidateRefs(args[0])
				}
				refs, err := rt.manager.Refs(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, refs)
				}

				// Mark the checked-out ref when this repository is installed.
				current := ""
				if p, err := rt.store.GetByURL(cmd.Context(), registry.NormalizeGitURL(args[0])); err == nil {
					current = p.Ref
				}
				marker := func(name string) string {
					if name == current {
						return " *"
					}
					return ""
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Branches:")
				for _, b := range refs.Branches {
					fmt.Fprintf(out, "  %s%s\n", b, marker(b))
				}
				fmt.Fprintln(out, "Tags:")
				for _, tag := range refs.Tags {
					fmt.Fprintf(out, "  %s%s\n", tag, marker(tag))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
