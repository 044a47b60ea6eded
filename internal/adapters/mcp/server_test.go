package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlbdev/MathCAT"
	"github.com/nlbdev/MathCAT/internal/rules"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := rules.Default()
	require.NoError(t, err)
	return NewServer(repo)
}

const product = `<math><mn>2</mn><mo>×</mo><mn>3</mn></math>`

func TestHandleSpeak(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleSpeak(context.Background(), mcp.CallToolRequest{}, RenderArgs{
		MathML:      product,
		Preferences: map[string]string{"Language": "nb"},
	})
	require.NoError(t, err)
	assert.Equal(t, "2 ganger 3", res.Output)
	assert.Contains(t, res.Canonical, `id="M3"`)
}

func TestHandleBraille(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleBraille(context.Background(), mcp.CallToolRequest{}, RenderArgs{MathML: product, NavHint: "M3"})
	require.NoError(t, err)
	assert.Equal(t, "⠒", res.Output)
}

func TestHandleErrorsKeepCode(t *testing.T) {
	s := newTestServer(t)
	_, err := s.handleSpeak(context.Background(), mcp.CallToolRequest{}, RenderArgs{MathML: "<math><mi>x</mo></math>"})
	require.Error(t, err)
	assert.Equal(t, mathcat.CodeMalformedMarkup, mathcat.Code(err))
}

func call(t *testing.T, s *Server, method string, params any) string {
	t.Helper()
	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)
	resp := s.MCPServer().HandleMessage(context.Background(), msg)
	out, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(out)
}

func TestToolsOverJSONRPC(t *testing.T) {
	s := newTestServer(t)

	list := call(t, s, "tools/list", map[string]any{})
	assert.Contains(t, list, `"speak_mathml"`)
	assert.Contains(t, list, `"braille_mathml"`)
	assert.Contains(t, list, `"list_languages"`)

	got := call(t, s, "tools/call", map[string]any{
		"name": "speak_mathml",
		"arguments": map[string]any{
			"mathml":      product,
			"preferences": map[string]string{"Language": "nb"},
		},
	})
	assert.Contains(t, got, "2 ganger 3")

	got = call(t, s, "tools/call", map[string]any{
		"name":      "list_languages",
		"arguments": map[string]any{},
	})
	assert.Contains(t, got, "SimpleSpeak")
	assert.Contains(t, got, "Nemeth")
}

func TestToolErrorIsReportedAsResult(t *testing.T) {
	s := newTestServer(t)
	got := call(t, s, "tools/call", map[string]any{
		"name":      "speak_mathml",
		"arguments": map[string]any{"mathml": "<math><mi>x</mo></math>"},
	})
	assert.Contains(t, got, `"isError":true`)
	assert.Contains(t, got, mathcat.CodeMalformedMarkup)
}
