package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wwcc-dale/zaphod/internal/assetreg"
)

func newRegistryCommand(cmdCtx *commandContext) *cobra.Command {
	registryCmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect and maintain a course's asset registry",
	}

	registryCmd.AddCommand(newRegistryStatsCommand(cmdCtx))
	registryCmd.AddCommand(newRegistryPruneCommand(cmdCtx))

	return registryCmd
}

func newRegistryStatsCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [course-dir]",
		Short: "Show asset registry statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := openRegistry(cmdCtx, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Registry: %s\n", registry.Path())

			stats := registry.Stats()
			if stats.Assets == 0 {
				fmt.Fprintln(out, "No assets tracked")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Metric", "Value"},
				[][]string{
					{"Assets", strconv.Itoa(stats.Assets)},
					{"Tracked paths", strconv.Itoa(stats.Paths)},
					{"Total bytes", strconv.FormatInt(stats.TotalBytes, 10)},
				},
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newRegistryPruneCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune [course-dir]",
		Short: "Drop registry entries whose files no longer exist",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := openRegistry(cmdCtx, args)
			if err != nil {
				return err
			}

			removed, err := registry.PruneMissing()
			if err != nil {
				return err
			}
			if removed == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No missing assets found")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d missing asset entries\n", removed)
			return nil
		},
	}
}

func openRegistry(cmdCtx *commandContext, args []string) (*assetreg.Registry, error) {
	courseDir, err := resolveCourseDir(args)
	if err != nil {
		return nil, err
	}
	logger, err := cmdCtx.ensureLogger()
	if err != nil {
		return nil, err
	}
	return assetreg.Open(courseDir, logger), nil
}
