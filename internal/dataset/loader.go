package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"dataco-dashboard/internal/models"
)

const (
	defaultBatchSize = 10000
	defaultWorkers   = 10
)

// ErrNoRows is returned when a file parses but yields no usable orders.
var ErrNoRows = errors.New("no valid rows found")

type Options struct {
	// Sheet selects the XLSX worksheet; empty means the first sheet.
	Sheet string
	// CacheDir enables the gob table cache when non-empty.
	CacheDir  string
	BatchSize int
	Workers   int
	Logger    *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Load reads a .csv or .xlsx order file into a Table.
func Load(ctx context.Context, path string, opts Options) (*Table, error) {
	opts = opts.withDefaults()

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat dataset: %w", err)
	}

	if opts.CacheDir != "" {
		if entry, err := readCache(opts.CacheDir, path); err == nil && info.ModTime().Before(entry.CreatedAt) {
			t := NewTable(entry.Orders)
			t.source, t.skipped = path, entry.Skipped
			opts.Logger.Info("dataset loaded from cache", "path", path, "rows", t.Len())
			return t, nil
		}
	}

	start := time.Now()
	opts.Logger.Info("loading dataset", "path", path)

	df, err := readFrame(path, opts.Sheet)
	if err != nil {
		return nil, err
	}

	orders, skipped, err := convert(ctx, df, opts)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoRows)
	}
	if skipped > 0 {
		opts.Logger.Warn("skipped invalid rows", "path", path, "skipped", skipped)
	}

	t := NewTable(orders)
	t.source, t.skipped = path, skipped

	if opts.CacheDir != "" {
		if err := writeCache(opts.CacheDir, path, cacheEntry{Orders: orders, Skipped: skipped, CreatedAt: time.Now()}); err != nil {
			opts.Logger.Warn("failed to save dataset cache", "error", err)
		}
	}

	duration := time.Since(start)
	opts.Logger.Info("dataset loaded",
		"rows", len(orders),
		"skipped", skipped,
		"duration", duration,
		"rate", fmt.Sprintf("%.0f rows/sec", float64(len(orders))/duration.Seconds()))
	return t, nil
}

func loadOptions() []dataframe.LoadOption {
	return []dataframe.LoadOption{
		dataframe.WithTypes(columnTypes),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.HasHeader(true),
	}
}

func readFrame(path, sheet string) (dataframe.DataFrame, error) {
	var df dataframe.DataFrame
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return df, fmt.Errorf("open dataset: %w", err)
		}
		defer f.Close()
		df = dataframe.ReadCSV(f, loadOptions()...)
	case ".xlsx":
		records, err := readSheet(path, sheet)
		if err != nil {
			return df, err
		}
		df = dataframe.LoadRecords(records, loadOptions()...)
	default:
		return df, fmt.Errorf("unsupported dataset format %q", filepath.Ext(path))
	}

	if df.Err != nil {
		return df, fmt.Errorf("parse dataset: %w", df.Err)
	}
	return df, checkColumns(df.Names())
}

func readSheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	// GetRows drops trailing empty cells; the frame needs a rectangle.
	width := len(rows[0])
	for i, row := range rows {
		if len(row) < width {
			rows[i] = append(row, make([]string, width-len(row))...)
		} else if len(row) > width {
			rows[i] = row[:width]
		}
	}
	return rows, nil
}

func checkColumns(names []string) error {
	have := make(map[string]bool, len(names))
	for _, n := range names {
		have[n] = true
	}
	var missing []string
	for _, c := range RequiredColumns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("dataset missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

type columns struct {
	year, sales, quantity, profit, daysReal, daysScheduled, daysDiff []float64
	date, region, market, category                                   []string
}

func extract(df dataframe.DataFrame) columns {
	return columns{
		year:          df.Col(colYear).Float(),
		sales:         df.Col(colSales).Float(),
		quantity:      df.Col(colQuantity).Float(),
		profit:        df.Col(colProfit).Float(),
		daysReal:      df.Col(colDaysReal).Float(),
		daysScheduled: df.Col(colDaysScheduled).Float(),
		daysDiff:      df.Col(colDaysDiff).Float(),
		date:          df.Col(colDate).Records(),
		region:        df.Col(colRegion).Records(),
		market:        df.Col(colMarket).Records(),
		category:      df.Col(colCategory).Records(),
	}
}

func (c *columns) order(i int) (models.Order, bool) {
	for _, v := range []float64{c.year[i], c.sales[i], c.quantity[i], c.profit[i], c.daysReal[i], c.daysScheduled[i], c.daysDiff[i]} {
		if math.IsNaN(v) {
			return models.Order{}, false
		}
	}
	date, err := parseDate(c.date[i])
	if err != nil {
		return models.Order{}, false
	}
	return models.Order{
		Year:           int(c.year[i]),
		Date:           date,
		Region:         strings.TrimSpace(c.region[i]),
		Market:         strings.TrimSpace(c.market[i]),
		Category:       strings.TrimSpace(c.category[i]),
		Sales:          c.sales[i],
		Quantity:       int(math.Round(c.quantity[i])),
		Profit:         c.profit[i],
		DaysReal:       c.daysReal[i],
		DaysScheduled:  c.daysScheduled[i],
		DaysDifference: c.daysDiff[i],
	}, true
}

type batchResult struct {
	orders  []models.Order
	skipped int
}

// convert turns frame rows into orders in fixed-size batches on a bounded
// worker pool. Results are merged in batch order so file order is kept.
func convert(ctx context.Context, df dataframe.DataFrame, opts Options) ([]models.Order, int, error) {
	n := df.Nrow()
	cols := extract(df)

	batches := (n + opts.BatchSize - 1) / opts.BatchSize
	results := make([]batchResult, batches)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for b := range batches {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			first, end := b*opts.BatchSize, min((b+1)*opts.BatchSize, n)
			res := batchResult{orders: make([]models.Order, 0, end-first)}
			for i := first; i < end; i++ {
				o, ok := cols.order(i)
				if !ok {
					res.skipped++
					continue
				}
				res.orders = append(res.orders, o)
			}
			results[b] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("convert rows: %w", err)
	}

	orders := make([]models.Order, 0, n)
	skipped := 0
	for _, r := range results {
		orders = append(orders, r.orders...)
		skipped += r.skipped
	}
	return orders, skipped, nil
}
