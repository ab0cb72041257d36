// Command mcp serves the dashboard tools over MCP stdio.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"dataco-dashboard/internal/config"
	"dataco-dashboard/internal/mcptools"
	"dataco-dashboard/internal/observability"
	"dataco-dashboard/internal/services"
)

const version = "1.0.0"

func buildHooks(logger *slog.Logger) *server.Hooks {
	hooks := &server.Hooks{}

	hooks.AddOnRegisterSession(func(ctx context.Context, session server.ClientSession) {
		logger.Info("session registered", "session_id", session.SessionID())
	})

	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, res *mcp.CallToolResult) {
		logger.Info("tool call served", "tool", req.Params.Name, "is_error", res.IsError)
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		logger.Error("request error", "method", string(method), "error", err)
	})

	return hooks
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol.
	logger := observability.NewLoggerTo(os.Stderr, cfg.Logger)
	slog.SetDefault(logger)

	analytics, err := services.Open(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to load dataset", "error", err)
		os.Exit(1)
	}

	srv := server.NewMCPServer(
		"DataCo Dashboard",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithHooks(buildHooks(logger)),
	)
	mcptools.New(analytics, logger).Register(srv)

	logger.Info("mcp server ready", "version", version, "dataset", cfg.Dataset.File)
	if err := server.ServeStdio(srv); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
