package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Bridge is the agent-side stdio MCP server named in spec.md SS6's CLI
// surface (`play`): a thin local server whose four tool handlers forward
// each tools/call as a JSON-RPC 2.0 request to a remote server's HTTP MCP
// endpoint and relay the result back, the same "thin client, real server
// elsewhere" shape as the teacher's transport/mcp.Client proxying to a
// REST API — generalized here to proxy MCP-to-MCP over HTTP instead of
// MCP-to-REST.
type Bridge struct {
	remoteURL  string
	httpClient *http.Client
	server     *server.MCPServer
	nextID     int
}

// NewBridge builds a stdio MCP server that forwards every tool call to
// remoteURL (expected to serve spec.md's `/mcp` JSON-RPC endpoint).
func NewBridge(remoteURL string) *Bridge {
	b := &Bridge{
		remoteURL:  remoteURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	b.server = server.NewMCPServer(
		"Light-Cycle Arena (bridge)",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("Thin stdio bridge forwarding tool calls to a remote Light-Cycle Arena server."),
	)
	b.registerProxiedTools()
	return b
}

// Server exposes the underlying mcp-go server for ServeStdio to drive.
func (b *Bridge) Server() *server.MCPServer {
	return b.server
}

func (b *Bridge) registerProxiedTools() {
	b.server.AddTool(mcp.Tool{
		Name:        "join_game",
		Description: "Join the remote light-cycle arena under the given agent name.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"name": map[string]any{"type": "string", "description": "Your agent name."},
			},
			Required: []string{"name"},
		},
	}, b.forward("join_game"))

	b.server.AddTool(mcp.Tool{
		Name:        "look",
		Description: "Get a read-only snapshot of your surroundings from the remote server.",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}},
	}, b.forward("look"))

	b.server.AddTool(mcp.Tool{
		Name:        "steer",
		Description: "Submit your heading for the next tick on the remote server.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"direction": map[string]any{
					"type": "string", "enum": []string{"left", "right", "straight"},
					"description": "Relative turn to apply this tick.",
				},
			},
			Required: []string{"direction"},
		},
	}, b.forward("steer"))

	b.server.AddTool(mcp.Tool{
		Name:        "game_status",
		Description: "Get the remote server's game status and leaderboard.",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}},
	}, b.forward("game_status"))
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	Result *mcp.CallToolResult `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// forward returns a tool handler that re-issues the incoming call as a
// tools/call JSON-RPC request against the remote server and relays
// whatever it answers, including tool-level errors.
func (b *Bridge) forward(toolName string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b.nextID++
		payload := rpcRequest{
			JSONRPC: "2.0",
			ID:      b.nextID,
			Method:  "tools/call",
			Params: map[string]any{
				"name":      toolName,
				"arguments": request.Params.Arguments,
			},
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("bridge: encode request: %v", err)), nil
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.remoteURL, bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("bridge: build request: %v", err)), nil
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := b.httpClient.Do(req)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("bridge: remote server unreachable: %v", err)), nil
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("bridge: read response: %v", err)), nil
		}
		if resp.StatusCode != http.StatusOK {
			return mcp.NewToolResultError(fmt.Sprintf("bridge: remote server returned %s: %s", resp.Status, raw)), nil
		}

		var parsed rpcResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("bridge: decode response: %v", err)), nil
		}
		if parsed.Error != nil {
			return mcp.NewToolResultError(parsed.Error.Message), nil
		}
		if parsed.Result == nil {
			return mcp.NewToolResultText(string(raw)), nil
		}
		return parsed.Result, nil
	}
}
