package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wwcc-dale/zaphod/internal/config"
)

func newConfigCommand(cmdCtx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigShowCommand(cmdCtx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigShowCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", cmdCtx.configPath)
			if !cmdCtx.configExists {
				fmt.Fprintln(out, "Config file does not exist; defaults are in effect")
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Setting", "Value"},
				buildConfigRows(cfg),
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func buildConfigRows(cfg *config.Config) [][]string {
	return [][]string{
		{"paths.output_dir", cfg.Paths.OutputDir},
		{"paths.scratch_dir", cfg.Paths.ScratchDir},
		{"paths.log_dir", cfg.Paths.LogDir},
		{"archive.max_total_bytes", strconv.FormatInt(cfg.Archive.MaxTotalBytes, 10)},
		{"archive.max_member_bytes", strconv.FormatInt(cfg.Archive.MaxMemberBytes, 10)},
		{"archive.max_members", strconv.Itoa(cfg.Archive.MaxMembers)},
		{"archive.max_compression_ratio", strconv.FormatFloat(cfg.Archive.MaxCompressionRatio, 'f', -1, 64)},
		{"classifier.assignment_descriptor", cfg.Classifier.AssignmentDescriptor},
		{"classifier.bank_keywords", strings.Join(cfg.Classifier.BankKeywords, ", ")},
		{"import.clean", yesNo(cfg.Import.Clean)},
		{"import.track_assets", yesNo(cfg.Import.TrackAssets)},
		{"import.module_prefix", yesNo(cfg.Import.ModulePrefix)},
		{"import.default_published", yesNo(cfg.Import.DefaultPublished)},
		{"logging.format", cfg.Logging.Format},
		{"logging.level", cfg.Logging.Level},
	}
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to point output_dir at your course library before importing.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}
