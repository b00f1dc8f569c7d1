package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/vtree/pkg/config"
	"github.com/vanderheijden86/vtree/pkg/ui"
)

func newProjectsCmd() *cobra.Command {
	var (
		scan     []string
		maxDepth int
		pick     bool
	)
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List directories that hold a .vtree project",
		Long: `List directories that hold a .vtree project.

Scan paths come from --scan, then from discovery.scan_paths in
~/.vtree/config.yaml, then default to the current directory.
With --pick the list is shown as a picker and the chosen path is printed,
so 'cd "$(vtree projects --pick)"' works.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := userConfig()
			if err != nil {
				return err
			}
			if len(scan) > 0 {
				cfg.Discovery.ScanPaths = scan
			}
			if len(cfg.Discovery.ScanPaths) == 0 {
				cfg.Discovery.ScanPaths = []string{"."}
			}
			if cmd.Flags().Changed("max-depth") {
				cfg.Discovery.MaxDepth = maxDepth
			}

			found := config.DiscoverProjects(*cfg)
			if !pick {
				for _, p := range found {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return nil
			}

			if !isTerminal(os.Stderr) {
				return errors.New("--pick needs a terminal")
			}
			theme := ui.DefaultTheme(lipgloss.NewRenderer(os.Stderr))
			picker := ui.NewProjectPicker(ui.ProjectEntries(found), theme)
			final, err := tea.NewProgram(picker, tea.WithOutput(os.Stderr)).Run()
			if err != nil {
				return err
			}
			chosen := final.(ui.ProjectPickerModel).Chosen()
			if chosen == nil {
				return errors.New("no project chosen")
			}
			fmt.Fprintln(cmd.OutOrStdout(), chosen.Path)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&scan, "scan", nil, "directories to scan (repeatable)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 3, "how deep to scan below each path")
	cmd.Flags().BoolVar(&pick, "pick", false, "choose a project interactively and print its path")
	return cmd
}

// userConfig loads ~/.vtree/config.yaml, or the defaults when there is none.
func userConfig() (*config.Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		def := config.DefaultConfig()
		return &def, nil
	}
	return config.LoadConfig(config.ConfigPath(home))
}
