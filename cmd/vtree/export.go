package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/vtree/pkg/config"
	"github.com/vanderheijden86/vtree/pkg/export"
	"github.com/vanderheijden86/vtree/pkg/tree"
)

type exportOptions struct {
	db     string
	format string
	depth  int
	out    string
	title  string
	pretty bool
}

func newExportCmd() *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export [dir]",
		Short: "Expand a tree and write it as Markdown, SVG or PNG",
		Example: `  # Outline of the current directory, two levels deep
  vtree export --depth 2

  # Whole node table as an image
  vtree export --db nodes.db --depth -1 --format png --out tree.png`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runExport(cmd, dir, opts)
		},
	}
	cmd.Flags().StringVar(&opts.db, "db", "", "export the node table of this SQLite database")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "md", "output format: md, svg or png")
	cmd.Flags().IntVarP(&opts.depth, "depth", "d", 2, "levels to expand (-1 for everything)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file (default stdout; required for png)")
	cmd.Flags().StringVar(&opts.title, "title", "", "document title (default the tree root)")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "render Markdown for the terminal")
	return cmd
}

func runExport(cmd *cobra.Command, dir string, opts exportOptions) error {
	switch opts.format {
	case "md", "svg", "png":
	default:
		return fmt.Errorf("unknown format %q (use md, svg or png)", opts.format)
	}
	if opts.format == "png" && opts.out == "" {
		return fmt.Errorf("png output needs --out")
	}

	_, cfg, err := config.Discover(dir)
	if err != nil {
		return err
	}
	log, err := setupLogging(cmd, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	src, err := openSource(cmd.Context(), dir, opts.db, cfg)
	if err != nil {
		return err
	}
	defer src.close()

	tr := tree.New(tree.WithLoader(src.loader), tree.WithLogger(log))
	defer tr.Dispose()
	tr.SetModel(src.root)
	export.Expand(tr, opts.depth)
	rows := export.FromTree(tr)
	log.Debug().Int("rows", len(rows)).Int("loads", tr.Stats().Loads).Msg("tree expanded")

	title := opts.title
	if title == "" {
		title = src.title
	}

	switch opts.format {
	case "svg", "png":
		if opts.out == "" {
			return export.WriteSVG(cmd.OutOrStdout(), rows, export.ImageOptions{})
		}
		if err := export.SaveImage(rows, opts.format, opts.out, export.ImageOptions{}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rows to %s\n", len(rows), opts.out)
		return nil
	}

	if opts.out != "" {
		if err := export.SaveMarkdownToFile(rows, title, opts.out); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rows to %s\n", len(rows), opts.out)
		return nil
	}
	md, err := export.GenerateMarkdown(rows, title)
	if err != nil {
		return err
	}
	if opts.pretty {
		md, err = export.RenderTerminal(md, terminalWidth())
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), md)
	return err
}

func terminalWidth() int {
	if isTerminal(os.Stdout) {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return 80
}
