package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wwcc-dale/zaphod/internal/rubric"
)

func newDedupCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dedup [course-dir]",
		Short: "Extract duplicated rubric content into the shared store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			courseDir, err := resolveCourseDir(args)
			if err != nil {
				return err
			}
			info, err := os.Stat(courseDir)
			if err != nil {
				return fmt.Errorf("inspect course directory %q: %w", courseDir, err)
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", courseDir)
			}

			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}

			result, err := rubric.NewDeduplicator(courseDir, logger).Run()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Total() == 0 {
				fmt.Fprintln(out, "No shared rubric content found")
				return nil
			}
			fmt.Fprintf(out, "Extracted %d shared rubrics and %d shared criterion rows\n",
				result.SharedRubrics, result.SharedRows)
			return nil
		},
	}
}
