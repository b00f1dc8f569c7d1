package export

import (
	"fmt"
	"io"
	"os"

	svg "github.com/ajstarks/svgo"
	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"
)

// ImageOptions sizes the drawn outline.
type ImageOptions struct {
	RowHeight int // Default 20
	Indent    int // Pixels per depth level, default 16
	Width     int // Default fits the longest row
	Margin    int // Default 10
}

func (o ImageOptions) withDefaults(rows []Row) ImageOptions {
	if o.RowHeight <= 0 {
		o.RowHeight = 20
	}
	if o.Indent <= 0 {
		o.Indent = 16
	}
	if o.Margin <= 0 {
		o.Margin = 10
	}
	if o.Width <= 0 {
		o.Width = 2 * o.Margin
		for _, r := range rows {
			// basicfont glyphs are 7px wide; the marker takes two cells.
			o.Width = max(o.Width, 2*o.Margin+r.Depth*o.Indent+(len([]rune(r.Label))+2)*7)
		}
	}
	return o
}

func (o ImageOptions) height(rows []Row) int {
	return 2*o.Margin + max(1, len(rows))*o.RowHeight
}

// marker returns the open/closed glyph. basicfont only has ASCII glyphs.
func marker(r Row, ascii bool) string {
	switch {
	case r.Open && ascii:
		return "-"
	case r.Open:
		return "▾"
	case r.Openable && ascii:
		return "+"
	case r.Openable:
		return "▸"
	default:
		return " "
	}
}

// WriteSVG draws rows as an SVG outline.
func WriteSVG(w io.Writer, rows []Row, opts ImageOptions) error {
	o := opts.withDefaults(rows)
	canvas := svg.New(w)
	canvas.Start(o.Width, o.height(rows))
	canvas.Rect(0, 0, o.Width, o.height(rows), "fill:white")
	canvas.Gstyle("font-family:monospace;font-size:13px;fill:#222")
	for i, r := range rows {
		x := o.Margin + r.Depth*o.Indent
		y := o.Margin + (i+1)*o.RowHeight - o.RowHeight/4
		if r.Depth > 0 {
			lx := x - o.Indent/2
			canvas.Line(lx, y-o.RowHeight+o.RowHeight/4, lx, y-o.RowHeight/4, "stroke:#ccc")
		}
		style := ""
		if r.Failed {
			style = "fill:#c00"
		}
		canvas.Text(x, y, marker(r, false)+" "+r.Label, style)
	}
	canvas.Gend()
	canvas.End()
	return nil
}

// WritePNG draws rows into a PNG image.
func WritePNG(w io.Writer, rows []Row, opts ImageOptions) error {
	o := opts.withDefaults(rows)
	dc := gg.NewContext(o.Width, o.height(rows))
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)
	for i, r := range rows {
		x := float64(o.Margin + r.Depth*o.Indent)
		y := float64(o.Margin + (i+1)*o.RowHeight - o.RowHeight/4)
		if r.Depth > 0 {
			lx := x - float64(o.Indent)/2
			dc.SetRGB(0.8, 0.8, 0.8)
			dc.DrawLine(lx, y-float64(o.RowHeight)*0.75, lx, y)
			dc.Stroke()
		}
		if r.Failed {
			dc.SetRGB(0.8, 0, 0)
		} else {
			dc.SetRGB(0.13, 0.13, 0.13)
		}
		dc.DrawString(marker(r, true)+" "+r.Label, x, y)
	}
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// SaveImage writes rows to filename as "svg" or "png".
func SaveImage(rows []Row, format, filename string, opts ImageOptions) error {
	if format != "svg" && format != "png" {
		return fmt.Errorf("unknown image format %q", format)
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	switch format {
	case "svg":
		err = WriteSVG(f, rows, opts)
	default:
		err = WritePNG(f, rows, opts)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
