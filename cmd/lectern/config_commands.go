package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/config"
	"lectern/internal/learned"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigSetCommand(ctx))

	return configCmd
}

// settingKeys maps the CLI-facing names onto learned-store setting keys.
var settingKeys = map[string]string{
	"max-concurrent": learned.SettingMaxConcurrent,
	"chunk-size-mib": learned.SettingChunkSizeMiB,
	"retry-attempts": learned.SettingRetryAttempts,
}

func newConfigSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist an upload setting across sessions (max-concurrent, chunk-size-mib, retry-attempts)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, ok := settingKeys[args[0]]
			if !ok {
				return fmt.Errorf("unknown setting %q (expected one of: max-concurrent, chunk-size-mib, retry-attempts)", args[0])
			}
			value, err := strconv.Atoi(args[1])
			if err != nil || value < 1 {
				return fmt.Errorf("setting %q needs a positive integer, got %q", args[0], args[1])
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := learned.Open(cfg)
			if err != nil {
				return fmt.Errorf("open learned store: %w", err)
			}
			defer store.Close()

			if err := store.SaveSetting(cmd.Context(), key, strconv.Itoa(value)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s = %d\n", args[0], value)
			return nil
		},
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

			if overwrite {
				if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("remove existing config: %w", err)
				}
			}

			if err := config.WriteSample(target); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set the catalog and storage credentials before uploading.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var flagPath string
			if ctx.configFlag != nil {
				flagPath = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, path, exists, err := config.Load(flagPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			rows := [][]string{
				{"State directory", cfg.Paths.StateDir},
				{"Log directory", cfg.Paths.LogDir},
				{"Ingest directory", cfg.Paths.IngestDir},
				{"Catalog base URL", cfg.Catalog.BaseURL},
				{"Storage endpoint", cfg.Storage.Endpoint},
				{"Storage bucket", cfg.Storage.Bucket},
				{"Workbook", cfg.Sheet.WorkbookPath},
				{"Sheet name", cfg.Sheet.SheetName},
				{"Max concurrent uploads", fmt.Sprintf("%d", cfg.Upload.MaxConcurrent)},
				{"Default academic year", cfg.Upload.DefaultYear},
				{"Notifications", yesNo(cfg.Notifications.NtfyTopic != "")},
				{"Log level", cfg.Logging.Level},
				{"Log format", cfg.Logging.Format},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Setting", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))
			return nil
		},
	}
}
