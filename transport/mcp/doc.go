// Package mcp exposes the arena over the Model Context Protocol: Gateway
// registers join_game/look/steer/game_status against a live Coordinator,
// Bridge forwards the same four tools over HTTP to a remote server for
// agents that only speak stdio MCP, and render.go turns ViewFrame/
// StepResult/StatusReport into the text blobs spec.md SS4.6 describes.
package mcp
