// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/lambentLogic/spectrum/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the Spectrum MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Spectrum Analysis Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: scan_model ---
	s.AddTool(mcp.NewTool("scan_model",
		mcp.WithDescription("Compute per-matrix SNR scores from the singular value spectra of a model checkpoint."),
		mcp.WithString("model_path", mcp.Description("Path to the safetensors model file or directory."), mcp.Required()),
		mcp.WithString("types", mcp.Description("Comma-separated structural weight types to score (defaults to all).")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of ranked results returned.")),
	), h.handleScanModel)

	// --- 2. Tool: select_unfrozen ---
	s.AddTool(mcp.NewTool("select_unfrozen",
		mcp.WithDescription("Select the top or bottom percent of matrices per structural type for fine-tuning."),
		mcp.WithString("model_path", mcp.Description("Path to the safetensors model file or directory."), mcp.Required()),
		mcp.WithNumber("percent", mcp.Description("Signed percent to select. Positive selects from the top, negative from the bottom.")),
	), h.handleSelectUnfrozen)

	// --- 3. Tool: list_weight_types ---
	s.AddTool(mcp.NewTool("list_weight_types",
		mcp.WithDescription("List the structural weight types discoverable in a model checkpoint."),
		mcp.WithString("model_path", mcp.Description("Path to the safetensors model file or directory."), mcp.Required()),
	), h.handleListWeightTypes)

	return s
}

// StartMCPServer starts the Spectrum MCP server.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
