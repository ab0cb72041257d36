// Package mcptools exposes the dashboard service as MCP tools.
package mcptools

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"dataco-dashboard/internal/errors"
	"dataco-dashboard/internal/models"
	"dataco-dashboard/internal/services"
)

const (
	ToolDashboard   = "dashboard"
	ToolListRegions = "list_regions"
)

type DashboardInput struct {
	Year   int    `json:"year,omitempty" jsonschema_description:"Order year; defaults to the configured dashboard year"`
	Region string `json:"region,omitempty" jsonschema_description:"Order region, or 'All Regions' (default)"`
}

type RegionsInput struct {
	Year int `json:"year,omitempty" jsonschema_description:"Order year; 0 lists every region in the dataset"`
}

type RegionsOutput struct {
	Year    int      `json:"year"`
	Years   []int    `json:"years"`
	Regions []string `json:"regions"`
}

type Tools struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func New(analytics *services.Analytics, logger *slog.Logger) *Tools {
	return &Tools{analytics: analytics, logger: logger}
}

// Register adds the dashboard tools to s.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool(
		ToolDashboard,
		mcp.WithDescription("Compute the DataCo order dashboard for one year and region: OTIF rate, average shipping days, total orders, sales and profit, top regions by sales and quantity, top and bottom categories, daily sales and the per-region shipping days versus sales relationship. Errors: VALIDATION_ERROR for years outside the configured range or unknown regions."),
		mcp.WithInputSchema[DashboardInput](),
		mcp.WithOutputSchema[models.Dashboard](),
	), mcp.NewTypedToolHandler(t.Dashboard))

	s.AddTool(mcp.NewTool(
		ToolListRegions,
		mcp.WithDescription("List the years in the dataset and the regions with orders in the given year. The first region is always 'All Regions'."),
		mcp.WithInputSchema[RegionsInput](),
		mcp.WithOutputSchema[RegionsOutput](),
	), mcp.NewTypedToolHandler(t.ListRegions))
}

func (t *Tools) Dashboard(ctx context.Context, req mcp.CallToolRequest, in DashboardInput) (*mcp.CallToolResult, error) {
	q := t.analytics.DefaultQuery()
	if in.Year != 0 {
		q.Year = in.Year
	}
	if in.Region != "" {
		q.Region = in.Region
	}

	d, err := t.analytics.Dashboard(ctx, q)
	if err != nil {
		return t.toolError(req, err), nil
	}

	summary := fmt.Sprintf("%d %s: %d orders, OTIF %s, sales %s, profit %s, average shipping %s",
		d.Year, d.Region, d.Rows,
		d.KPIs.OTIFRate.Display,
		d.KPIs.TotalSales.Display,
		d.KPIs.TotalProfit.Display,
		d.KPIs.AvgShippingDays.Display,
	)
	return mcp.NewToolResultStructured(d, summary), nil
}

func (t *Tools) ListRegions(ctx context.Context, req mcp.CallToolRequest, in RegionsInput) (*mcp.CallToolResult, error) {
	years, err := t.analytics.Years()
	if err != nil {
		return t.toolError(req, err), nil
	}
	regions, err := t.analytics.Regions(in.Year)
	if err != nil {
		return t.toolError(req, err), nil
	}

	out := RegionsOutput{Year: in.Year, Years: years, Regions: regions}
	return mcp.NewToolResultStructured(out, strings.Join(regions, ", ")), nil
}

// toolError reports err to the client as a tool result so the model can
// correct its arguments.
func (t *Tools) toolError(req mcp.CallToolRequest, err error) *mcp.CallToolResult {
	appErr := errors.From(err)
	level := slog.LevelWarn
	if appErr.StatusCode >= 500 && !stderrors.Is(err, context.Canceled) {
		level = slog.LevelError
	}
	t.logger.Log(context.Background(), level, "tool call failed",
		"tool", req.Params.Name,
		"error_code", appErr.Code,
		"error", err,
	)

	msg := string(appErr.Code) + ": " + appErr.Message
	if appErr.Details != "" {
		msg += " (" + appErr.Details + ")"
	}
	return mcp.NewToolResultError(msg)
}
