package commands

import (
	"io"
	"maps"
	"slices"
	"strings"

	"esic-scraper/lib/esic/records"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

// formatAttributes renders attributes sorted by name, one per line.
func formatAttributes(record records.RawRecord) string {
	attrs := record.Attributes()
	lines := make([]string, 0, len(attrs))
	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		lines = append(lines, name+": "+attrs[name])
	}
	return strings.Join(lines, "\n")
}
