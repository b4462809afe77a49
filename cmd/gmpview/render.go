package main

import (
	"fmt"
	"io"

	"github.com/fenilmodi00/gmp-tracker/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func renderStats(w io.Writer, info models.SnapshotInfo, stats models.DisplayStats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("GMP snapshot %s", info.FetchedAt.Format("02 Jan 2006 15:04"))
	t.AppendHeader(table.Row{"Active", "Upcoming", "Avg GMP", "Records"})
	t.AppendRow(table.Row{stats.ActiveCount, stats.UpcomingCount, stats.AveragePremium, info.RecordCount})
	t.Render()
}

func renderView(w io.Writer, view *models.DashboardView) {
	renderStats(w, view.Snapshot, view.Stats)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"IPO", "Status", "Sub", "Price", "GMP", "Est Listing", "Size", "Lot", "Open", "Close", "BoA", "Listing", "Updated"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Price", Align: text.AlignRight},
		{Name: "GMP", Align: text.AlignRight},
		{Name: "Size", Align: text.AlignRight},
		{Name: "Lot", Align: text.AlignRight},
	})

	for _, o := range view.Offerings {
		premium := o.Premium
		if o.PremiumPositive {
			premium = text.FgGreen.Sprint(premium)
		}
		t.AppendRow(table.Row{
			o.Name, o.Status, o.Subscription, o.Price, premium, o.EstimatedListing,
			o.IssueSize, o.LotSize, o.OpenDate, o.CloseDate, o.AllotmentDate, o.ListingDate, o.LastUpdated,
		})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d of %d", view.MatchedCount, view.TotalCount)})
	t.Render()
}
