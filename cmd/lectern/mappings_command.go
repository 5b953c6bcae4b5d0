package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"lectern/internal/learned"
)

func newMappingsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Inspect learned filename-to-library mappings",
	}
	cmd.AddCommand(newMappingsListCommand(ctx))
	cmd.AddCommand(newMappingsDeleteCommand(ctx))
	return cmd
}

func newMappingsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all learned mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := learned.Open(cfg)
			if err != nil {
				return fmt.Errorf("open learned store: %w", err)
			}
			defer store.Close()

			mappings, err := store.ListMappings(cmd.Context())
			if err != nil {
				return err
			}
			if len(mappings) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No learned mappings")
				return nil
			}
			signatures := make([]string, 0, len(mappings))
			for sig := range mappings {
				signatures = append(signatures, sig)
			}
			sort.Strings(signatures)
			rows := make([][]string, 0, len(signatures))
			for _, sig := range signatures {
				m := mappings[sig]
				rows = append(rows, []string{sig, m.LibraryName, m.LibraryID})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Signature", "Library", "ID"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}
}

func newMappingsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <signature>",
		Short: "Delete one learned mapping by signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := learned.Open(cfg)
			if err != nil {
				return fmt.Errorf("open learned store: %w", err)
			}
			defer store.Close()

			if err := store.DeleteMapping(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted mapping for %q\n", args[0])
			return nil
		},
	}
}
