package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"riff/internal/plugins"
)

func newInstallCommand(ctx *commandContext) *cobra.Command {
	var opts plugins.InstallOptions

	cmd := &cobra.Command{
		Use:   "install <url|path>",
		Short: "Install a plugin from a git repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd.Context(), func(rt *runtime) error {
				p, err := rt.manager.Install(cmd.Context(), args[0], opts)
				if err != nil {
					var blocked *plugins.BlacklistedError
					if errors.As(err, &blocked) {
						return fmt.Errorf("%w (use --force to override)", err)
					}
					if errors.Is(err, plugins.ErrAlreadyInstalled) {
						return fmt.Errorf("%w (use --reinstall to replace it)", err)
					}
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Installed %s %s (%s @ %s)\n", p.Name, p.Version, p.Ref, shortCommit(p.Commit))
				if p.TrustLevel != "" {
					fmt.Fprintf(out, "Trust level: %s\n", p.TrustLevel)
				}
				if !p.Enabled {
					fmt.Fprintf(out, "Run `riff enable %s` to activate it.\n", p.Name)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.Ref, "ref", "", "Branch, tag or commit to install")
	cmd.Flags().BoolVar(&opts.Reinstall, "reinstall", false, "Replace an existing install from the same source")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Bypass blacklist and UUID conflict checks")
	cmd.Flags().BoolVar(&opts.Discard, "discard", false, "Discard local modifications on reinstall")
	cmd.Flags().BoolVar(&opts.Enable, "enable", false, "Enable the plugin after installing")
	return cmd
}

func newUninstallCommand(ctx *commandContext) *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "uninstall <plugin>",
		Short: "Remove an installed plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd.Context(), func(rt *runtime) error {
				if err := rt.manager.Uninstall(cmd.Context(), args[0], purge); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Uninstalled %s\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&purge, "purge", false, "Also delete the plugin's settings")
	return cmd
}

func newEnableCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "enable <plugin>",
		Short: "Enable an installed plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd.Context(), func(rt *runtime) error {
				if err := rt.manager.Enable(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Enabled %s\n", args[0])
				return nil
			})
		},
	}
}

func newDisableCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "disable <plugin>",
		Short: "Disable a plugin without uninstalling it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd.Context(), func(rt *runtime) error {
				if err := rt.manager.Disable(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Disabled %s\n", args[0])
				return nil
			})
		},
	}
}

func shortCommit(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}
