// Package output renders command results for the terminal, with colors
// when stdout is a TTY and plain text when piped.
package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/seekerlabs/indexscope/internal/history"
	"github.com/seekerlabs/indexscope/internal/search"
	"github.com/seekerlabs/indexscope/internal/ui"
)

// Writer renders results to a destination stream.
type Writer struct {
	w      io.Writer
	styles ui.Styles
}

// NewWriter builds a writer for w, choosing colored styles when w is a
// terminal and NO_COLOR is unset.
func NewWriter(w io.Writer) *Writer {
	styles := ui.NoColorStyles()
	if f, ok := w.(*os.File); ok {
		if os.Getenv("NO_COLOR") == "" && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			styles = ui.DefaultStyles()
		}
	}
	return &Writer{w: w, styles: styles}
}

// NewPlainWriter builds a writer with colors forced off.
func NewPlainWriter(w io.Writer) *Writer {
	return &Writer{w: w, styles: ui.NoColorStyles()}
}

// Printf writes formatted text without styling.
func (o *Writer) Printf(format string, args ...interface{}) {
	fmt.Fprintf(o.w, format, args...)
}

// Errorf writes an error line.
func (o *Writer) Errorf(format string, args ...interface{}) {
	fmt.Fprintln(o.w, o.styles.Error.Render(fmt.Sprintf(format, args...)))
}

// PrintResult renders an executed query's rows.
func (o *Writer) PrintResult(res *search.Result, raw string, elapsed time.Duration) {
	fmt.Fprintln(o.w, o.styles.Title.Render(fmt.Sprintf("%d hits", res.TotalHits)),
		o.styles.Subtle.Render(fmt.Sprintf("for %q in %s", raw, elapsed.Round(time.Microsecond))))
	for i, row := range res.Rows {
		fmt.Fprintf(o.w, "%s %s %s\n",
			o.styles.Subtle.Render(fmt.Sprintf("%2d.", i+1)),
			o.styles.DocID.Render(row.DocID),
			o.styles.Score.Render(fmt.Sprintf("(%.4f)", row.Score)))
		if row.Preview != "" {
			fmt.Fprintf(o.w, "    %s\n", o.styles.Preview.Render(row.Preview))
		}
	}
}

// PrintExplanation renders a score breakdown tree.
func (o *Writer) PrintExplanation(docID string, expl *search.Explanation) {
	fmt.Fprintln(o.w, o.styles.Title.Render(fmt.Sprintf("score breakdown for %s", docID)))
	fmt.Fprint(o.w, expl.String())
}

// PrintIndexInfo renders the info command's summary.
func (o *Writer) PrintIndexInfo(path string, readOnly bool, docCount uint64, fields []string) {
	mode := "writable"
	if readOnly {
		mode = "read-only"
	}
	fmt.Fprintln(o.w, o.styles.Title.Render(path))
	fmt.Fprintf(o.w, "  mode:   %s\n", mode)
	fmt.Fprintf(o.w, "  docs:   %d\n", docCount)
	fmt.Fprintf(o.w, "  fields: %d\n", len(fields))
	for _, f := range fields {
		fmt.Fprintf(o.w, "    %s\n", f)
	}
}

// PrintHistory renders recent opens and queries.
func (o *Writer) PrintHistory(indexes []history.IndexEntry, queries []history.QueryEntry) {
	fmt.Fprintln(o.w, o.styles.Title.Render("recent indexes"))
	if len(indexes) == 0 {
		fmt.Fprintln(o.w, o.styles.Subtle.Render("  none"))
	}
	for _, e := range indexes {
		mode := "rw"
		if e.ReadOnly {
			mode = "ro"
		}
		fmt.Fprintf(o.w, "  %s %s %s\n",
			o.styles.Subtle.Render(e.OpenedAt.Local().Format("2006-01-02 15:04")),
			o.styles.DocID.Render(e.Path),
			o.styles.Subtle.Render(fmt.Sprintf("(%s, %s)", e.DirImpl, mode)))
	}

	fmt.Fprintln(o.w, o.styles.Title.Render("recent queries"))
	if len(queries) == 0 {
		fmt.Fprintln(o.w, o.styles.Subtle.Render("  none"))
	}
	for _, e := range queries {
		fmt.Fprintf(o.w, "  %s %q %s\n",
			o.styles.Subtle.Render(e.ExecutedAt.Local().Format("2006-01-02 15:04")),
			e.Raw,
			o.styles.Subtle.Render(fmt.Sprintf("%d hits on %s", e.TotalHits, e.Field)))
	}
}
