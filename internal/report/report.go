// Package report renders analysis snapshots as Markdown or console tables.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"

	"vdflow/internal/analyzer"
	"vdflow/internal/storage"
)

const dateLayout = "2006-01-02"

// Style picks the table renderer
type Style int

const (
	StyleConsole Style = iota
	StyleMarkdown
)

// Markdown renders snap as a Markdown document, rounded with p
func Markdown(snap storage.Snapshot, p analyzer.Precision) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, snap, p, StyleMarkdown); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write renders every section of snap to w
func Write(w io.Writer, snap storage.Snapshot, p analyzer.Precision, style Style) error {
	r := snap.Result.Rounded(p)

	heading := func(level int, title string) {
		if style == StyleMarkdown {
			fmt.Fprintf(w, "\n%s %s\n\n", strings.Repeat("#", level), title)
		} else {
			fmt.Fprintf(w, "\n--- %s ---\n", title)
		}
	}

	if style == StyleMarkdown {
		fmt.Fprintf(w, "# Volume-delta flow: %s\n\n", r.Ticker)
	} else {
		fmt.Fprintf(w, "[%s]\n", r.Ticker)
	}
	fmt.Fprintf(w, "As of %s, %d sessions (pre-context %d), generated %s\n",
		snap.AsOf.Format(dateLayout), r.Days, r.PreContextDays, snap.GeneratedAt.UTC().Format(time.RFC3339))

	heading(2, "Accumulation zones")
	if err := zoneTable(w, r.Zones, style); err != nil {
		return err
	}

	heading(2, "Distribution")
	if err := clusterTable(w, r.Distribution, style); err != nil {
		return err
	}

	heading(2, "Accumulation in decline")
	if err := clusterTable(w, r.AccumulationInDecline, style); err != nil {
		return err
	}

	heading(2, "Breakouts")
	if err := breakoutTable(w, r.Breakouts, style); err != nil {
		return err
	}
	for _, b := range r.Breakouts {
		if len(b.Proximity.Details) == 0 {
			continue
		}
		heading(3, fmt.Sprintf("Precursors before %s", b.Date.Format(dateLayout)))
		for _, d := range b.Proximity.Details {
			fmt.Fprintf(w, "- %s %s (+%d): %s\n", d.Date.Format(dateLayout), d.Signal, d.Points, d.Detail)
		}
	}

	heading(2, "Timeline")
	return timelineTable(w, r.Timeline, style)
}

func newTable(w io.Writer, style Style, header []string) *tablewriter.Table {
	opts := []tablewriter.Option{tablewriter.WithHeader(header)}
	if style == StyleMarkdown {
		opts = append(opts, tablewriter.WithRenderer(renderer.NewMarkdown()))
	}
	return tablewriter.NewTable(w, opts...)
}

func none(w io.Writer, style Style) error {
	if style == StyleMarkdown {
		_, err := fmt.Fprintln(w, "_None detected._")
		return err
	}
	_, err := fmt.Fprintln(w, "  none")
	return err
}

func zoneTable(w io.Writer, zones []analyzer.AccumulationZone, style Style) error {
	if len(zones) == 0 {
		return none(w, style)
	}
	table := newTable(w, style, []string{"#", "Start", "End", "Days", "Score", "Price", "Net Delta", "Absorption", "Penalty"})
	for i, z := range zones {
		if err := table.Append([]string{
			fmt.Sprintf("%d", i+1),
			z.StartDate.Format(dateLayout),
			z.EndDate.Format(dateLayout),
			fmt.Sprintf("%d", z.WindowDays),
			fmt.Sprintf("%.3f", z.Score),
			fmt.Sprintf("%+.1f%%", z.OverallPriceChange),
			fmt.Sprintf("%+.1f%%", z.NetDeltaPct),
			fmt.Sprintf("%.1f%%", z.AbsorptionPct),
			fmt.Sprintf("%.2f", z.ConcordancePenalty),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func clusterTable(w io.Writer, clusters []analyzer.DistributionCluster, style Style) error {
	if len(clusters) == 0 {
		return none(w, style)
	}
	table := newTable(w, style, []string{"Start", "End", "Windows", "Price", "Net Delta", "Peak Price", "Peak Delta"})
	for _, c := range clusters {
		if err := table.Append([]string{
			c.StartDate.Format(dateLayout),
			c.EndDate.Format(dateLayout),
			fmt.Sprintf("%d", c.WindowCount),
			fmt.Sprintf("%+.1f%%", c.PriceChangePct),
			fmt.Sprintf("%+.1f%%", c.NetDeltaPct),
			fmt.Sprintf("%+.1f%%", c.PeakPriceChangePct),
			fmt.Sprintf("%+.1f%%", c.PeakDeltaPct),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func breakoutTable(w io.Writer, breakouts []analyzer.Breakout, style Style) error {
	if len(breakouts) == 0 {
		return none(w, style)
	}
	table := newTable(w, style, []string{"Date", "Run Start", "Price", "Volume", "Delta", "Polarity", "Durability", "Proximity"})
	for _, b := range breakouts {
		if err := table.Append([]string{
			b.Date.Format(dateLayout),
			b.StartDate.Format(dateLayout),
			fmt.Sprintf("%+.1f%%", b.PriceChangePct),
			fmt.Sprintf("%.2fx", b.VolumeRatio),
			fmt.Sprintf("%+.1f%%", b.DeltaPct),
			string(b.Polarity),
			string(b.Durability),
			fmt.Sprintf("%s (%d)", b.Proximity.Level, b.Proximity.Points),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func timelineTable(w io.Writer, events []analyzer.TimelineEvent, style Style) error {
	if len(events) == 0 {
		return none(w, style)
	}
	table := newTable(w, style, []string{"Date", "Event", "Action", "Note"})
	for _, e := range events {
		if err := table.Append([]string{
			e.Date.Format(dateLayout),
			string(e.Kind),
			e.Action,
			e.Note,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
