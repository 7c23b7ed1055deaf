package ls

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/deploymenttheory/go-btrfs/pkg/app"
)

// FormatOutput writes the listing in the given format
func FormatOutput(w io.Writer, resp *Response, format string) error {
	if format != "table" {
		return app.WriteStructured(w, resp, format)
	}

	d := resp.Directory
	title := fmt.Sprintf("Directory %d in tree %d", d.Inode, resp.Tree)
	if d.Name != "" {
		title += fmt.Sprintf(" (%q, parent %d)", d.Name, d.Parent)
	}

	if len(resp.Entries) == 0 {
		fmt.Fprintf(w, "%s: empty\n", title)
		return nil
	}

	t := app.NewTable(w, title)
	t.AppendHeader(table.Row{"Index", "Inode", "Type", "Size", "Modified", "Name"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	for _, e := range resp.Entries {
		size, modified := humanize.IBytes(e.Size), e.Modified.Format("2006-01-02 15:04:05")
		switch {
		case e.Subvolume:
			size, modified = "-", "subvolume"
		case e.Error != "":
			size, modified = "?", "unreadable inode"
		}
		t.AppendRow(table.Row{e.Index, e.Inode, e.Type, size, modified, e.Name})
	}
	t.Render()
	fmt.Fprintf(w, "%d entries\n", len(resp.Entries))
	return nil
}
