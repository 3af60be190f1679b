package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"riff/internal/deps"
	"riff/internal/gitcmd"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment riff depends on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd.Context(), func(rt *runtime) error {
				out := cmd.OutOrStdout()

				git := deps.CheckGit(cmd.Context(), gitcmd.New(""))
				if git.Available {
					fmt.Fprintf(out, "git: ok (%s)\n", git.Detail)
				} else {
					fmt.Fprintf(out, "git: MISSING - %s\n", git.Detail)
				}

				fmt.Fprintf(out, "plugin dir: %s\n", rt.cfg.Paths.PluginDir)
				fmt.Fprintf(out, "cache dir:  %s\n", rt.cfg.Paths.CacheDir)
				fmt.Fprintf(out, "state db:   %s\n", rt.cfg.Paths.StateDB)
				if err := rt.manager.VerifyFreeSpace(); err != nil {
					fmt.Fprintf(out, "disk space: LOW - %v\n", err)
				} else {
					fmt.Fprintln(out, "disk space: ok")
				}

				if rt.registry == nil {
					fmt.Fprintln(out, "registry: not configured")
				} else if info, err := rt.registry.RegistryInfo(cmd.Context()); err != nil {
					fmt.Fprintf(out, "registry: unreachable (%v)\n", err)
				} else {
					fmt.Fprintf(out, "registry: ok (%d plugins from %s)\n", info.PluginCount, info.SourceURL)
				}

				if !git.Available {
					return fmt.Errorf("git is required for plugin management")
				}
				return nil
			})
		},
	}
}
