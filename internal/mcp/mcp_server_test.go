package mcp_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/lambentLogic/spectrum/internal/contract"
	mcp_internal "github.com/lambentLogic/spectrum/internal/mcp"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeModelFixture builds a minimal two-tensor safetensors checkpoint.
func writeModelFixture(t *testing.T) string {
	t.Helper()

	encodeF32 := func(values ...float32) []byte {
		buf := make([]byte, 4*len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
		}
		return buf
	}

	// 4x4 diagonal with one dominant value, then a 2x2 head matrix.
	qProj := encodeF32(
		10, 0, 0, 0,
		0, 0.1, 0, 0,
		0, 0, 0.1, 0,
		0, 0, 0, 0.1,
	)
	head := encodeF32(3, 0, 0, 1)

	header := fmt.Sprintf(
		`{"model.layers.0.self_attn.q_proj.weight":{"dtype":"F32","shape":[4,4],"data_offsets":[0,%d]},`+
			`"lm_head.weight":{"dtype":"F32","shape":[2,2],"data_offsets":[%d,%d]}}`,
		len(qProj), len(qProj), len(qProj)+len(head))

	var file bytes.Buffer
	lenBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(lenBuf, uint64(len(header)))
	file.Write(lenBuf)
	file.WriteString(header)
	file.Write(qProj)
	file.Write(head)

	dir := t.TempDir()
	path := filepath.Join(dir, "model.safetensors")
	require.NoError(t, os.WriteFile(path, file.Bytes(), 0o644), "fixture write should succeed")
	return dir
}

func baseConfig() *contract.Config {
	return &contract.Config{
		Percent:     50,
		Workers:     2,
		BatchSize:   1,
		ResultLimit: 25,
		Precision:   6,
	}
}

func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	return res
}

func TestMCPServerHandlers(t *testing.T) {
	var mgr contract.CacheManager
	s := mcp_internal.NewMCPServer(baseConfig(), mgr)
	modelDir := writeModelFixture(t)

	t.Run("scan_model bad path", func(t *testing.T) {
		res := callTool(t, s, "scan_model", map[string]any{
			"model_path": filepath.Join(modelDir, "does-not-exist"),
		})
		assert.True(t, res.IsError, "The response should indicate an error state")
		assert.Contains(t, res.Content[0].(mcp.TextContent).Text, "scan failed")
	})

	t.Run("scan_model success", func(t *testing.T) {
		res := callTool(t, s, "scan_model", map[string]any{
			"model_path": modelDir,
		})
		require.False(t, res.IsError, "Scan over the fixture should succeed")

		var entries []struct {
			Name string `json:"name"`
			Type string `json:"type"`
			SNR  string `json:"snr"`
		}
		text := res.Content[0].(mcp.TextContent).Text
		require.NoError(t, json.Unmarshal([]byte(text), &entries), "Result should be valid JSON")
		require.Len(t, entries, 2, "Both weight matrices should score")
		assert.NotEmpty(t, entries[0].SNR, "Scores should be populated")
	})

	t.Run("scan_model type filter", func(t *testing.T) {
		res := callTool(t, s, "scan_model", map[string]any{
			"model_path": modelDir,
			"types":      "lm_head.weight",
		})
		require.False(t, res.IsError)

		var entries []struct {
			Name string `json:"name"`
		}
		text := res.Content[0].(mcp.TextContent).Text
		require.NoError(t, json.Unmarshal([]byte(text), &entries))
		require.Len(t, entries, 1, "Only the filtered type should score")
		assert.Equal(t, "lm_head.weight", entries[0].Name)
	})

	t.Run("select_unfrozen success", func(t *testing.T) {
		res := callTool(t, s, "select_unfrozen", map[string]any{
			"model_path": modelDir,
			"percent":    100.0,
		})
		require.False(t, res.IsError, "Selection over the fixture should succeed")

		var payload struct {
			Direction string              `json:"direction"`
			Percent   int                 `json:"percent"`
			Fixed     []string            `json:"fixed"`
			ByType    map[string][]string `json:"by_type"`
		}
		text := res.Content[0].(mcp.TextContent).Text
		require.NoError(t, json.Unmarshal([]byte(text), &payload))
		assert.Equal(t, "top", payload.Direction)
		assert.Equal(t, 100, payload.Percent)
		assert.Contains(t, payload.Fixed, "lm_head.weight", "Fixed entries should always be present")
		assert.Len(t, payload.ByType["self_attn.q_proj.weight"], 1, "Full selection should take the whole group")
	})

	t.Run("list_weight_types success", func(t *testing.T) {
		res := callTool(t, s, "list_weight_types", map[string]any{
			"model_path": modelDir,
		})
		require.False(t, res.IsError, "Type listing over the fixture should succeed")

		var types []string
		text := res.Content[0].(mcp.TextContent).Text
		require.NoError(t, json.Unmarshal([]byte(text), &types))
		assert.Equal(t, []string{"lm_head.weight", "self_attn.q_proj.weight"}, types, "Types should list sorted by category")
	})

	t.Run("list_weight_types bad path", func(t *testing.T) {
		res := callTool(t, s, "list_weight_types", map[string]any{
			"model_path": filepath.Join(modelDir, "does-not-exist"),
		})
		assert.True(t, res.IsError)
		assert.Contains(t, res.Content[0].(mcp.TextContent).Text, "type listing failed")
	})
}
