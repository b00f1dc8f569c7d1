package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/vtree/pkg/sqlmodel"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage SQLite node tables",
	}
	cmd.AddCommand(newDBSeedCmd(), newDBAddCmd())
	return cmd
}

func newDBSeedCmd() *cobra.Command {
	var (
		path   string
		depth  int
		fanout int
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty database with a synthetic tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if depth < 0 || fanout < 1 {
				return fmt.Errorf("need depth >= 0 and fanout >= 1")
			}
			store, err := sqlmodel.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := store.Seed(cmd.Context(), depth, fanout)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d nodes into %s\n", n, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "db", "tree.db", "database file")
	cmd.Flags().IntVar(&depth, "depth", 3, "levels below the root")
	cmd.Flags().IntVar(&fanout, "fanout", 10, "children per node")
	return cmd
}

func newDBAddCmd() *cobra.Command {
	var (
		path   string
		parent int64
		leaf   bool
	)
	cmd := &cobra.Command{
		Use:   "add LABEL",
		Short: "Append a node under a parent (0 for a top-level node)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sqlmodel.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()
			if parent != 0 {
				if _, err := store.Get(cmd.Context(), parent); err != nil {
					return fmt.Errorf("parent %d: %w", parent, err)
				}
			}
			id, err := store.Add(cmd.Context(), parent, args[0], leaf)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "db", "tree.db", "database file")
	cmd.Flags().Int64Var(&parent, "parent", 0, "parent node id")
	cmd.Flags().BoolVar(&leaf, "leaf", false, "mark the node as a leaf")
	return cmd
}
