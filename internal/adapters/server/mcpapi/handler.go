// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hylla/orrery/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing snapshot, attention, and project tools.
func NewHandler(cfg Config, service common.Service) (*Handler, error) {
	if service == nil {
		return nil, fmt.Errorf("snapshot service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerSnapshotTool(mcpSrv, service)
	registerAttentionTool(mcpSrv, service)
	registerProjectTool(mcpSrv, service)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "orrery"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerSnapshotTool registers the `orrery.snapshot` tool.
func registerSnapshotTool(srv *mcpserver.MCPServer, snapshots common.SnapshotReader) {
	srv.AddTool(
		mcp.NewTool(
			"orrery.snapshot",
			mcp.WithDescription("Return the latest normalized project, work-order, and run snapshot."),
			mcp.WithBoolean("refresh", mcp.Description("Poll the control center instead of returning the cached snapshot")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			view, err := snapshots.Snapshot(ctx, common.SnapshotRequest{
				Refresh: req.GetBool("refresh", false),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(view)
			if err != nil {
				return nil, fmt.Errorf("encode snapshot result: %w", err)
			}
			return result, nil
		},
	)
}

// registerAttentionTool registers the `orrery.attention` tool.
func registerAttentionTool(srv *mcpserver.MCPServer, attention common.AttentionReader) {
	srv.AddTool(
		mcp.NewTool(
			"orrery.attention",
			mcp.WithDescription("Rank projects by how urgently they need a human, hottest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum projects to return")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			overview, err := attention.Attention(ctx, common.AttentionRequest{
				Limit: req.GetInt("limit", 0),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(overview)
			if err != nil {
				return nil, fmt.Errorf("encode attention result: %w", err)
			}
			return result, nil
		},
	)
}

// registerProjectTool registers the `orrery.project` tool.
func registerProjectTool(srv *mcpserver.MCPServer, projects common.ProjectReader) {
	srv.AddTool(
		mcp.NewTool(
			"orrery.project",
			mcp.WithDescription("Return one project with its work orders, run phases, and heat."),
			mcp.WithString("project_id", mcp.Required(), mcp.Description("Project identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projectID, err := req.RequireString("project_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			detail, err := projects.Project(ctx, common.ProjectRequest{ProjectID: projectID})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(detail)
			if err != nil {
				return nil, fmt.Errorf("encode project result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrUnavailable):
		return mcp.NewToolResultError("snapshot_unavailable: " + err.Error())
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
