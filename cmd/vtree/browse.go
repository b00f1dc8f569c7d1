package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/vtree/pkg/config"
	"github.com/vanderheijden86/vtree/pkg/fsmodel"
	"github.com/vanderheijden86/vtree/pkg/loop"
	"github.com/vanderheijden86/vtree/pkg/tree"
	"github.com/vanderheijden86/vtree/pkg/ui"
)

type browseOptions struct {
	db       string
	poolSize int
	hideRoot bool
	noWatch  bool
}

func newBrowseCmd() *cobra.Command {
	var opts browseOptions
	cmd := &cobra.Command{
		Use:   "browse [dir]",
		Short: "Browse a directory or node table interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runBrowse(cmd, dir, opts)
		},
	}
	cmd.Flags().StringVar(&opts.db, "db", "", "browse the node table of this SQLite database")
	cmd.Flags().IntVar(&opts.poolSize, "pool", 0, "number of row widgets (default from config)")
	cmd.Flags().BoolVar(&opts.hideRoot, "hide-root", false, "hide the root row")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "do not follow file system changes")
	return cmd
}

func runBrowse(cmd *cobra.Command, dir string, opts browseOptions) error {
	if !isTerminal(os.Stdout) {
		return errors.New("browse needs a terminal; use 'vtree export' instead")
	}
	projectRoot, cfg, err := config.Discover(dir)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("pool") {
		cfg.PoolSize = opts.poolSize
	}
	if cmd.Flags().Changed("hide-root") {
		cfg.HideRoot = opts.hideRoot
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// The TUI owns the terminal, so logs only go to the log file.
	log, err := setupLogging(cmd, cfg, io.Discard)
	if err != nil {
		return err
	}

	src, err := openSource(cmd.Context(), dir, opts.db, cfg)
	if err != nil {
		return err
	}
	defer src.close()

	store, closeStore, err := stateStore(cfg, projectRoot, src)
	if err != nil {
		return err
	}
	defer closeStore()

	q := loop.New()
	defer q.Close()
	treeOpts := []tree.Option{
		tree.WithScheduler(q),
		tree.WithLoader(src.loader),
		tree.WithPoolSize(cfg.PoolSize),
		tree.WithHideRoot(cfg.HideRoot),
		tree.WithLogger(log),
	}
	if store != nil {
		treeOpts = append(treeOpts, tree.WithStateStore(store))
	}
	tr := tree.New(treeOpts...)
	defer tr.Dispose()

	if src.dir && cfg.WatchEnabled() && !opts.noWatch {
		w, err := fsmodel.NewWatcher(tr, q, fsmodel.WatchOptions{
			ShowHidden: cfg.ShowHidden,
			Debounce:   cfg.Watch.Debounce.Std(),
			Logger:     log,
		})
		if err != nil {
			log.Warn().Err(err).Msg("file watching disabled")
		} else {
			defer w.Close()
		}
	}

	tr.SetModel(src.root)
	log.Info().Str("root", src.title).Int("pool", tr.PoolSize()).Msg("browsing")

	m := ui.NewModel(tr, q, src.title).WithPathFunc(src.pathOf)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run browser: %w", err)
	}
	return nil
}
