package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"riff/internal/registry"
)

func newRegistryCommand(ctx *commandContext) *cobra.Command {
	registryCmd := &cobra.Command{
		Use:   "registry",
		Short: "Browse the plugin registry",
	}

	registryCmd.AddCommand(newRegistryListCommand(ctx))
	registryCmd.AddCommand(newRegistrySearchCommand(ctx))
	registryCmd.AddCommand(newRegistryInfoCommand(ctx))
	registryCmd.AddCommand(newRegistryRefreshCommand(ctx))

	return registryCmd
}

func requireRegistry(rt *runtime) (*registry.Client, error) {
	if rt.registry == nil {
		return nil, errors.New("no registry configured; set registry.urls in the config file")
	}
	return rt.registry, nil
}

func newRegistryListCommand(ctx *commandContext) *cobra.Command {
	var filter registry.Filter
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plugins known to the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd.Context(), func(rt *runtime) error {
				reg, err := requireRegistry(rt)
				if err != nil {
					return err
				}
				entries := reg.List(cmd.Context(), filter)
				if asJSON {
					return writeJSON(cmd, entries)
				}

				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Registry returned no plugins.")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, p := range entries {
					rows = append(rows, []string{
						p.ID, p.Name, p.Trust(), strings.Join(p.Categories, ", "),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "Name", "Trust", "Categories"}, rows))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&filter.Category, "category", "", "Only list plugins in this category")
	cmd.Flags().StringVar(&filter.TrustLevel, "trust", "", "Only list plugins with this trust level")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newRegistrySearchCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search registry plugins by name or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd.Context(), func(rt *runtime) error {
				reg, err := requireRegistry(rt)
				if err != nil {
					return err
				}
				term := strings.ToLower(args[0])
				var matches []registry.Plugin
				for _, p := range reg.List(cmd.Context(), registry.Filter{}) {
					if strings.Contains(strings.ToLower(p.Name), term) ||
						strings.Contains(strings.ToLower(p.ID), term) ||
						strings.Contains(strings.ToLower(p.Description), term) {
						matches = append(matches, p)
					}
				}
				if asJSON {
					return writeJSON(cmd, matches)
				}

				out := cmd.OutOrStdout()
				if len(matches) == 0 {
					fmt.Fprintf(out, "No registry plugins match %q.\n", args[0])
					if suggestions := reg.Suggest(cmd.Context(), args[0]); len(suggestions) > 0 {
						fmt.Fprintf(out, "Did you mean: %s\n", strings.Join(suggestions, ", "))
					}
					return nil
				}
				for _, p := range matches {
					fmt.Fprintf(out, "%s (%s, %s)\n", p.Name, p.ID, p.Trust())
					if p.Description != "" {
						fmt.Fprintf(out, "  %s\n", p.Description)
					}
					fmt.Fprintf(out, "  %s\n", p.GitURL)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newRegistryInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show registry source and statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd.Context(), func(rt *runtime) error {
				reg, err := requireRegistry(rt)
				if err != nil {
					return err
				}
				info, err := reg.RegistryInfo(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Source:      %s\n", info.SourceURL)
				fmt.Fprintf(out, "API version: %s\n", info.APIVersion)
				fmt.Fprintf(out, "Plugins:     %d\n", info.PluginCount)
				return nil
			})
		},
	}
}

func newRegistryRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-fetch the registry, bypassing the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(cmd.Context(), func(rt *runtime) error {
				reg, err := requireRegistry(rt)
				if err != nil {
					return err
				}
				if err := reg.Refresh(cmd.Context()); err != nil {
					return err
				}
				// Cached refs may describe repositories the new snapshot
				// redirects or drops, so they go too.
				rt.refs.Clear()
				info, err := reg.RegistryInfo(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registry refreshed: %d plugins from %s\n",
					info.PluginCount, info.SourceURL)
				return nil
			})
		},
	}
}
