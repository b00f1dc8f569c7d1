// Command vtree browses and exports large trees (directories or SQLite
// node tables) through the virtual tree controller.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/vtree/pkg/config"
	"github.com/vanderheijden86/vtree/pkg/logging"
)

// version is set at build time.
var version = "dev"

// isTerminal reports whether f is a terminal. Tests replace it.
var isTerminal = func(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "vtree",
		Short:         "Browse huge trees through a fixed pool of rows",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(*cobra.Command, []string) {
			logging.Close()
		},
	}
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("log-file", "", "also write logs to this file")
	cmd.AddCommand(newBrowseCmd(), newExportCmd(), newDBCmd(), newInitCmd(), newProjectsCmd())
	return cmd
}

// setupLogging initializes the process logger from the project config, with
// command-line flags taking precedence.
func setupLogging(cmd *cobra.Command, cfg *config.Config, console io.Writer) (zerolog.Logger, error) {
	opts := logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, Console: console}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		opts.Level = "debug"
	}
	if file, _ := cmd.Flags().GetString("log-file"); file != "" {
		opts.File = file
	}
	log, err := logging.Init(opts)
	if err != nil {
		return log, fmt.Errorf("init logging: %w", err)
	}
	return log, nil
}
