package examine

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/deploymenttheory/go-btrfs/pkg/app"
)

// FormatOutput writes the report in the given format
func FormatOutput(w io.Writer, resp *Response, format string) error {
	if format == "table" {
		return formatTable(w, resp)
	}
	return app.WriteStructured(w, resp, format)
}

func hex(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}

func formatTable(w io.Writer, resp *Response) error {
	status := "complete"
	if !resp.Pool.Complete {
		status = "incomplete"
	}
	fmt.Fprintf(w, "Pool %s: %d of %d device(s), %s\n\n", resp.Pool.FSID, resp.Pool.Found, resp.Pool.Declared, status)

	sb := resp.Superblock
	t := app.NewTable(w, "Superblock")
	t.AppendRow(table.Row{"Label", sb.Label})
	t.AppendRow(table.Row{"Read from device", sb.Device})
	t.AppendRow(table.Row{"Generation", sb.Generation})
	t.AppendRow(table.Row{"Root tree", fmt.Sprintf("%s (level %d)", hex(sb.RootTree), sb.RootLevel)})
	t.AppendRow(table.Row{"Chunk tree", fmt.Sprintf("%s (level %d)", hex(sb.ChunkTree), sb.ChunkRootLevel)})
	t.AppendRow(table.Row{"Total size", humanize.IBytes(sb.TotalBytes)})
	t.AppendRow(table.Row{"Used", humanize.IBytes(sb.BytesUsed)})
	t.AppendRow(table.Row{"Sector / node / stripe", fmt.Sprintf("%d / %d / %d", sb.SectorSize, sb.NodeSize, sb.StripeSize)})
	t.AppendRow(table.Row{"Devices", sb.NumDevices})
	t.AppendRow(table.Row{"System chunks", sb.SysChunkEntries})
	t.Render()
	fmt.Fprintln(w)

	t = app.NewTable(w, "Devices")
	t.AppendHeader(table.Row{"ID", "UUID", "Image", "Offset", "Size", "Chunk tree"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, Align: text.AlignRight}, {Number: 4, Align: text.AlignRight}})
	for _, d := range resp.Devices {
		t.AppendRow(table.Row{d.ID, d.UUID, d.Image, d.Offset, humanize.IBytes(d.Size), d.InChunkTree})
	}
	t.Render()
	fmt.Fprintln(w)

	if len(resp.Chunks) > 0 {
		t = app.NewTable(w, "Chunks")
		t.AppendHeader(table.Row{"Logical", "Length", "Type", "Stripes"})
		for _, c := range resp.Chunks {
			stripes := ""
			for i, s := range c.Stripes {
				if i > 0 {
					stripes += ", "
				}
				stripes += fmt.Sprintf("dev %d @ %s", s.Device, hex(s.Offset))
			}
			t.AppendRow(table.Row{hex(c.Logical), humanize.IBytes(c.Length), c.Type, stripes})
		}
		t.Render()
		fmt.Fprintln(w)
	}

	t = app.NewTable(w, "Trees")
	t.AppendHeader(table.Row{"ID", "Name", "Root", "Level", "Generation", "UUID"})
	for _, r := range resp.Roots {
		t.AppendRow(table.Row{r.ObjectID, r.Name, hex(r.Bytenr), r.Level, r.Generation, r.UUID})
	}
	t.Render()
	fmt.Fprintln(w)

	for _, leaf := range resp.Leaves {
		t = app.NewTable(w, fmt.Sprintf("Leaf %s (owner %d, generation %d)", hex(leaf.Address), leaf.Owner, leaf.Generation))
		t.AppendHeader(table.Row{"Object", "Type", "Offset", "Size", "Content"})
		for _, it := range leaf.Items {
			t.AppendRow(table.Row{it.ObjectID, it.Type, hex(it.Offset), it.Size, it.Summary})
		}
		t.Render()
		for _, f := range leaf.Files {
			fmt.Fprintf(w, "  file: %s\n", f)
		}
		fmt.Fprintln(w)
	}

	if resp.Analysis != nil {
		formatAnalysis(w, resp.Analysis)
	}
	if len(resp.Validation) > 0 {
		formatValidation(w, resp.Validation)
	}

	if len(resp.Damage) > 0 {
		t = app.NewTable(w, "Damaged nodes")
		t.AppendHeader(table.Row{"Address", "Depth", "Reason"})
		for _, d := range resp.Damage {
			t.AppendRow(table.Row{hex(d.Address), d.Depth, d.Reason})
		}
		t.Render()
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Examined in %v\n", resp.Elapsed)
	return nil
}

func formatAnalysis(w io.Writer, a *AnalysisInfo) {
	t := app.NewTable(w, fmt.Sprintf("Tree %d at %s", a.Tree, hex(a.Root)))
	t.AppendRow(table.Row{"Height", a.Height})
	t.AppendRow(table.Row{"Nodes", a.Nodes})
	t.AppendRow(table.Row{"Items", a.Items})
	t.AppendRow(table.Row{"Fill factor", fmt.Sprintf("%.1f%%", a.FillFactor)})
	t.AppendRow(table.Row{"Damaged nodes", a.Damaged})

	names := make([]string, 0, len(a.ItemTypes))
	for name := range a.ItemTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t.AppendRow(table.Row{name, a.ItemTypes[name]})
	}
	t.Render()
	fmt.Fprintln(w)
}

func formatValidation(w io.Writer, results []ValidationInfo) {
	t := app.NewTable(w, "Node validation")
	t.AppendHeader(table.Row{"Node", "Valid", "Findings"})
	for _, r := range results {
		findings := ""
		for _, e := range r.Errors {
			findings += "error: " + e + "\n"
		}
		for _, wn := range r.Warnings {
			findings += "warning: " + wn + "\n"
		}
		t.AppendRow(table.Row{hex(r.Address), r.Valid, findings})
	}
	t.Render()
	fmt.Fprintln(w)
}
