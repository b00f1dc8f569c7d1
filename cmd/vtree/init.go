package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/vtree/pkg/config"
)

func newInitCmd() *cobra.Command {
	var yes, force, noGitignore bool
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create .vtree/config.yaml for a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			root, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			path := config.ConfigPath(root)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := config.DefaultConfig()
			if !yes && isTerminal(os.Stdin) {
				if err := askConfig(&cfg); err != nil {
					return err
				}
			}
			if err := config.SaveConfig(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)

			if _, err := os.Stat(filepath.Join(root, ".git")); err == nil && !noGitignore {
				if err := config.EnsureGitignored(root); err != nil {
					return fmt.Errorf("update .gitignore: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "write the defaults without asking")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	cmd.Flags().BoolVar(&noGitignore, "no-gitignore", false, "leave .gitignore alone in git repositories")
	return cmd
}

// askConfig lets the user adjust cfg in an interactive form.
func askConfig(cfg *config.Config) error {
	pool := strconv.Itoa(cfg.PoolSize)
	backend := cfg.State.Backend
	watch := cfg.WatchEnabled()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Rows on screen").
				Description("Number of row widgets the tree renders").
				Value(&pool).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 {
						return errors.New("enter a positive number")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Remember open folders in").
				Options(
					huh.NewOption("JSON file", config.BackendJSON),
					huh.NewOption("bbolt database", config.BackendBolt),
					huh.NewOption("nowhere", config.BackendNone),
				).
				Value(&backend),
			huh.NewConfirm().
				Title("Follow file system changes?").
				Value(&watch),
			huh.NewConfirm().
				Title("Hide the root row?").
				Value(&cfg.HideRoot),
			huh.NewConfirm().
				Title("Show hidden files?").
				Value(&cfg.ShowHidden),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	cfg.PoolSize, _ = strconv.Atoi(pool)
	cfg.State.Backend = backend
	cfg.Watch.Enabled = &watch
	return nil
}
