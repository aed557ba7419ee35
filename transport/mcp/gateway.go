// Package mcp maps the four light-cycle MCP tools onto Session
// Coordinator operations and renders the look/steer text views, per
// spec.md SS4.6. Registration follows the teacher's transport/mcp/client.go
// shape (mcp.Tool{...} + a handler func registered via AddTool) but calls
// the coordinator directly instead of proxying to a REST API.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lightcycle-mcp/arena/internal/coordinator"
)

// Gateway owns the mcp-go server and the coordinator it drives.
type Gateway struct {
	coord  *coordinator.Coordinator
	server *server.MCPServer
	logger *slog.Logger

	mu      sync.Mutex
	tokenOf map[string]string // mcp connection session ID -> coordinator session token
}

// NewGateway builds an MCP server with the four tools registered and
// wired to coord.
func NewGateway(coord *coordinator.Coordinator, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		coord:   coord,
		logger:  logger,
		tokenOf: make(map[string]string),
	}
	g.server = server.NewMCPServer(
		"Light-Cycle Arena",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Light-Cycle Arena - MCP Interface

You are an agent riding a light-cycle on a shared grid against other agents.
Call join_game once to enter a lobby. Once the game starts, call steer each
tick with "left", "right", or "straight" to choose your next heading; the
call blocks until that tick has been committed and returns your new view.
Call look at any time for a read-only snapshot, and game_status for the
wider state of the server.`),
	)
	g.registerTools()
	return g
}

// Server exposes the underlying mcp-go server for ServeStdio or an HTTP
// transport to drive.
func (g *Gateway) Server() *server.MCPServer {
	return g.server
}

func (g *Gateway) registerTools() {
	g.server.AddTool(mcp.Tool{
		Name:        "join_game",
		Description: "Join the light-cycle arena under the given agent name, entering a lobby at the course level you've earned.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "Your agent name, 1-32 characters.",
				},
			},
			Required: []string{"name"},
		},
	}, g.handleJoinGame)

	g.server.AddTool(mcp.Tool{
		Name:        "look",
		Description: "Get a read-only text snapshot of your current surroundings without waiting for the next tick.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, g.handleLook)

	g.server.AddTool(mcp.Tool{
		Name:        "steer",
		Description: "Submit your heading for the next tick and block until that tick is committed, returning your new view.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"direction": map[string]any{
					"type":        "string",
					"enum":        []string{"left", "right", "straight"},
					"description": "Relative turn to apply this tick.",
				},
			},
			Required: []string{"direction"},
		},
	}, g.handleSteer)

	g.server.AddTool(mcp.Tool{
		Name:        "game_status",
		Description: "Get a structured report of your game (if you're in one) plus the server's overall activity and leaderboard.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, g.handleGameStatus)
}

// connectionID derives a stable identifier for the calling MCP
// connection. mcp-go attaches a ClientSession to the context of every
// tool call; its SessionID is stable for the lifetime of that
// connection, which is exactly the granularity spec.md SS6 calls for
// ("derived implicitly from the MCP session identity").
func connectionID(ctx context.Context) string {
	if session := server.ClientSessionFromContext(ctx); session != nil {
		if id := session.SessionID(); id != "" {
			return id
		}
	}
	return "default"
}

func (g *Gateway) tokenFor(ctx context.Context) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	token, ok := g.tokenOf[connectionID(ctx)]
	return token, ok
}

func (g *Gateway) rememberToken(ctx context.Context, token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokenOf[connectionID(ctx)] = token
}

func (g *Gateway) handleJoinGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	name, _ := args["name"].(string)

	result, err := g.coord.Join(name)
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	g.rememberToken(ctx, result.SessionToken)

	text := fmt.Sprintf(
		"Joined game %s as player %d on %s (level %d). Call steer once the game starts.",
		result.GameID, result.PlayerIndex, result.CourseName, result.CourseLevel,
	)
	return mcp.NewToolResultText(text), nil
}

func (g *Gateway) handleLook(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token, ok := g.tokenFor(ctx)
	if !ok {
		return mcp.NewToolResultError("no active session: call join_game first"), nil
	}
	view, err := g.coord.Look(token)
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	return mcp.NewToolResultText(RenderView(view)), nil
}

func (g *Gateway) handleSteer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token, ok := g.tokenFor(ctx)
	if !ok {
		return mcp.NewToolResultError("no active session: call join_game first"), nil
	}
	args, _ := request.Params.Arguments.(map[string]any)
	direction, _ := args["direction"].(string)

	result, err := g.coord.Steer(ctx, token, direction)
	if err != nil {
		gerr, ok := err.(*coordinator.Error)
		if ok && gerr.Kind == coordinator.KindPlayerDead {
			return mcp.NewToolResultText(RenderStep(result)), nil
		}
		return mcp.NewToolResultError(describeError(err)), nil
	}
	return mcp.NewToolResultText(RenderStep(result)), nil
}

func (g *Gateway) handleGameStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token, _ := g.tokenFor(ctx)
	report, err := g.coord.Status(token)
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	return mcp.NewToolResultText(RenderStatus(report)), nil
}

func describeError(err error) string {
	if gerr, ok := err.(*coordinator.Error); ok {
		return fmt.Sprintf("%s: %s", gerr.Kind, gerr.Message)
	}
	return err.Error()
}
