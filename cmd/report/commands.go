package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"dataco-dashboard/internal/export"
	"dataco-dashboard/internal/models"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	section = color.New(color.FgYellow)
	success = color.New(color.FgGreen)
)

func (a *app) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Print KPIs, rankings and OTIF by region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.analytics.Dashboard(cmd.Context(), a.query())
			if err != nil {
				return err
			}
			printDashboard(cmd.OutOrStdout(), d)
			return nil
		},
	}
}

func (a *app) regionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List the years and the regions with orders in the selected year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := a.query()
			years, err := a.analytics.Years()
			if err != nil {
				return err
			}
			regions, err := a.analytics.Regions(q.Year)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			heading.Fprintf(w, "Years: %v\n", years)
			section.Fprintf(w, "\nRegions in %d\n", q.Year)
			table := newTable(w, "Region")
			for _, r := range regions {
				table.Append([]string{r})
			}
			table.Render()
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the dashboard to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.analytics.Dashboard(cmd.Context(), a.query())
			if err != nil {
				return err
			}

			path := out
			if path == "" {
				path = export.FileName(d)
			} else if info, err := os.Stat(path); err == nil && info.IsDir() {
				path = filepath.Join(path, export.FileName(d))
			}

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create workbook: %w", err)
			}
			if err := export.Write(f, d); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close workbook: %w", err)
			}

			success.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file or directory (default dashboard_<year>_<region>.xlsx)")
	return cmd
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	return table
}

func printDashboard(w io.Writer, d *models.Dashboard) {
	heading.Fprintf(w, "DataCo dashboard: %d, %s (%d orders)\n", d.Year, d.Region, d.Rows)

	section.Fprintln(w, "\nKey figures")
	kpis := newTable(w, "Metric", "Value")
	for _, k := range d.KPIs.All() {
		kpis.Append([]string{k.Name, k.Display})
	}
	kpis.Render()

	printRanking(w, "Top Regions by Total Sales", "Region", d.TopRegionsBySales)
	printRanking(w, "Top Regions by Total Order", "Region", d.TopRegionsByOrders)
	printRanking(w, "Top Categories in "+d.Region, "Category", d.TopCategories)
	printRanking(w, "Bottom Categories in "+d.Region, "Category", d.BottomCategories)

	section.Fprintln(w, "\nOTIF Rate by Region")
	otif := newTable(w, "Region", "OTIF Rate", "Orders")
	for _, s := range d.OTIFByRegion {
		otif.Append([]string{s.Scope, strconv.FormatFloat(s.Value, 'f', 2, 64) + " %", strconv.Itoa(s.Rows)})
	}
	otif.Render()

	if d.ChoroplethURL != "" {
		fmt.Fprintf(w, "\nMap: %s\n", d.ChoroplethURL)
	}
}

func printRanking(w io.Writer, title, label string, rows []models.RankingRow) {
	section.Fprintf(w, "\n%s\n", title)
	table := newTable(w, "#", label, "Value")
	for i, r := range rows {
		group := r.Group
		if r.Parent != "" {
			group += " (" + r.Parent + ")"
		}
		table.Append([]string{strconv.Itoa(i + 1), group, r.Label})
	}
	table.Render()
}
