package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/lambentLogic/spectrum/core"
	"github.com/lambentLogic/spectrum/internal/contract"
	"github.com/lambentLogic/spectrum/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

// scanResultEntry is the JSON shape returned by scan_model.
type scanResultEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	SNR  string `json:"snr"`
}

func (h *toolHandler) handleScanModel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	cfg.ModelPath = request.GetString("model_path", cfg.ModelPath)
	if t := request.GetString("types", ""); t != "" {
		cfg.Types = contract.SplitTypes(t)
	}
	limit := cfg.ResultLimit
	if l := request.GetInt("limit", 0); l > 0 {
		limit = l
	}

	report, _, err := core.GetScanResults(ctx, cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
	}

	records := report.Records()
	sort.SliceStable(records, func(i, j int) bool { return records[i].SNR > records[j].SNR })

	entries := make([]scanResultEntry, 0, report.Len())
	for _, rec := range records {
		if len(entries) >= limit {
			break
		}
		raw, err := schema.MarshalScore(rec.SNR)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
		}
		entries = append(entries, scanResultEntry{Name: rec.Name, Type: rec.Type, SNR: string(raw)})
	}

	jsonData, _ := json.MarshalIndent(entries, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleSelectUnfrozen(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	cfg.ModelPath = request.GetString("model_path", cfg.ModelPath)
	if p := request.GetInt("percent", cfg.Percent); p != 0 {
		cfg.Percent = p
	}

	_, selection, err := core.GetScanResults(ctx, cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("selection failed: %v", err)), nil
	}

	type selectionPayload struct {
		Direction schema.Direction    `json:"direction"`
		Percent   int                 `json:"percent"`
		Fixed     []string            `json:"fixed"`
		ByType    map[string][]string `json:"by_type"`
	}
	payload := selectionPayload{
		Direction: selection.Direction,
		Percent:   selection.Percent,
		Fixed:     selection.Fixed,
		ByType:    selection.ByType,
	}

	jsonData, _ := json.MarshalIndent(payload, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleListWeightTypes(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	cfg.ModelPath = request.GetString("model_path", cfg.ModelPath)

	types, err := core.GetWeightTypes(cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("type listing failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(types, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
