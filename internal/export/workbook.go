// Package export renders a dashboard payload as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"dataco-dashboard/internal/models"
)

const (
	SheetSummary          = "Summary"
	SheetOTIF             = "OTIF by Region"
	SheetRegionsBySales   = "Regions by Sales"
	SheetRegionsByOrders  = "Regions by Orders"
	SheetTopCategories    = "Top Categories"
	SheetBottomCategories = "Bottom Categories"
	SheetDailySales       = "Daily Sales"
	SheetRelationship     = "Relationship"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type sheet struct {
	name   string
	header []any
	rows   [][]any
}

// Workbook builds one sheet per dashboard section. The caller owns the
// returned file and must Close it.
func Workbook(d *models.Dashboard) (*excelize.File, error) {
	f := excelize.NewFile()

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, s := range sheets(d) {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				f.Close()
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %q: %w", s.name, err)
		}
		if err := writeSheet(f, s, bold); err != nil {
			f.Close()
			return nil, fmt.Errorf("write sheet %q: %w", s.name, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Write streams the workbook for d to w.
func Write(w io.Writer, d *models.Dashboard) error {
	f, err := Workbook(d)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// FileName is the download name for d, e.g. dashboard_2017_western-europe.xlsx.
func FileName(d *models.Dashboard) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '-'
	}, d.Region)
	return fmt.Sprintf("dashboard_%d_%s.xlsx", d.Year, slug)
}

func writeSheet(f *excelize.File, s sheet, headerStyle int) error {
	if err := f.SetSheetRow(s.name, "A1", &s.header); err != nil {
		return err
	}
	if err := f.SetRowStyle(s.name, 1, 1, headerStyle); err != nil {
		return err
	}
	for i, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return err
		}
	}
	last, err := excelize.ColumnNumberToName(len(s.header))
	if err != nil {
		return err
	}
	return f.SetColWidth(s.name, "A", last, 22)
}

func sheets(d *models.Dashboard) []sheet {
	summary := sheet{name: SheetSummary, header: []any{"Metric", "Scope", "Value", "Display"}}
	summary.rows = append(summary.rows,
		[]any{"Year", "", d.Year, fmt.Sprint(d.Year)},
		[]any{"Region", "", d.Region, d.Region},
		[]any{"Orders in scope", d.Region, d.Rows, fmt.Sprint(d.Rows)},
	)
	for _, k := range d.KPIs.All() {
		var v any = k.Value
		if !k.Available {
			v = nil
		}
		summary.rows = append(summary.rows, []any{k.Name, k.Scope, v, k.Display})
	}
	if d.ChoroplethURL != "" {
		summary.rows = append(summary.rows, []any{"Map", "", d.ChoroplethURL, d.ChoroplethURL})
	}

	otif := sheet{name: SheetOTIF, header: []any{"Scope", "OTIF Rate", "Orders"}}
	for _, sv := range d.OTIFByRegion {
		otif.rows = append(otif.rows, []any{sv.Scope, sv.Value, sv.Rows})
	}

	daily := sheet{name: SheetDailySales, header: []any{"Date", "Sales"}}
	for _, p := range d.DailySales {
		daily.rows = append(daily.rows, []any{p.Date, p.Sales})
	}

	rel := sheet{name: SheetRelationship, header: []any{"Region", "Avg Days (Actual)", "Avg Days (Scheduled)", "Avg Sales"}}
	for _, r := range d.Relationship {
		rel.rows = append(rel.rows, []any{r.Region, r.MeanDaysReal, r.MeanDaysScheduled, r.MeanSales})
	}

	return []sheet{
		summary,
		otif,
		rankingSheet(SheetRegionsBySales, "Total Sales", d.TopRegionsBySales),
		rankingSheet(SheetRegionsByOrders, "Total Order", d.TopRegionsByOrders),
		rankingSheet(SheetTopCategories, "Total Sales", d.TopCategories),
		rankingSheet(SheetBottomCategories, "Total Sales", d.BottomCategories),
		daily,
		rel,
	}
}

func rankingSheet(name, measure string, rows []models.RankingRow) sheet {
	s := sheet{name: name, header: []any{"Rank", "Group", "Market", measure, "Label", "Color"}}
	for i, r := range rows {
		s.rows = append(s.rows, []any{i + 1, r.Group, r.Parent, r.Value, r.Label, r.Color})
	}
	return s
}
