// Package mcpserver exposes graph generation over the Model Context
// Protocol, so agents can ask for a playbook's graph or summary as a
// tool call. The transport is stdio; all logging must go to stderr to
// keep the JSON-RPC stream clean.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	grapher "github.com/haidaraM/ansible-playbook-grapher"
	"github.com/haidaraM/ansible-playbook-grapher/internal/renderer"
)

// Server wraps the grapher entry point as an MCP server.
type Server struct {
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// New creates the MCP server and registers its tools.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		logger:    logger,
		mcpServer: server.NewMCPServer("ansible-playbook-grapher", grapher.Version),
	}
	s.registerTools()
	return s
}

// ServeStdio blocks serving on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	graphTool := mcp.NewTool("graph_playbook",
		mcp.WithDescription("Build the execution graph of an Ansible playbook and return it rendered."),
		mcp.WithString("playbook", mcp.Required(), mcp.Description("Path to the playbook file")),
		mcp.WithString("format", mcp.Description("Output format: graphviz, mermaid-flowchart or json (default)")),
		mcp.WithBoolean("include_role_tasks", mcp.Description("Expand the tasks of roles and dynamic includes")),
		mcp.WithString("tags", mcp.Description("Comma-separated run tags")),
		mcp.WithString("skip_tags", mcp.Description("Comma-separated skip tags")),
	)
	s.mcpServer.AddTool(graphTool, s.handleGraphPlaybook)

	summaryTool := mcp.NewTool("playbook_summary",
		mcp.WithDescription("Return a Markdown summary of an Ansible playbook: plays, task counts and role usages."),
		mcp.WithString("playbook", mcp.Required(), mcp.Description("Path to the playbook file")),
	)
	s.mcpServer.AddTool(summaryTool, s.handleSummary)
}

func (s *Server) handleGraphPlaybook(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	playbook, _ := args["playbook"].(string)
	if playbook == "" {
		return mcp.NewToolResultError("playbook is required"), nil
	}
	formatName, _ := args["format"].(string)
	if formatName == "" {
		formatName = string(renderer.FormatJSON)
	}
	format, err := renderer.ParseFormat(formatName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	includeRoleTasks, _ := args["include_role_tasks"].(bool)

	result, err := grapher.Graph(ctx, grapher.Options{
		Playbooks:        []string{playbook},
		Tags:             splitList(args["tags"]),
		SkipTags:         splitList(args["skip_tags"]),
		IncludeRoleTasks: includeRoleTasks,
		Logger:           s.logger,
	})
	if err == nil {
		err = result.Err()
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("building graph failed: %v", err)), nil
	}

	switch format {
	case renderer.FormatGraphviz:
		return mcp.NewToolResultText(renderer.DOT(result.Playbooks, renderer.GraphvizOptions{})), nil
	case renderer.FormatMermaid:
		return mcp.NewToolResultText(renderer.Mermaid(result.Playbooks, renderer.MermaidOptions{})), nil
	default:
		out, err := renderer.JSON(result.Playbooks)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("serializing graph failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

func (s *Server) handleSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	playbook, _ := request.GetArguments()["playbook"].(string)
	if playbook == "" {
		return mcp.NewToolResultError("playbook is required"), nil
	}

	result, err := grapher.Graph(ctx, grapher.Options{
		Playbooks:        []string{playbook},
		IncludeRoleTasks: true,
		ShowHandlers:     true,
		Logger:           s.logger,
	})
	if err == nil {
		err = result.Err()
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("building graph failed: %v", err)), nil
	}
	return mcp.NewToolResultText(renderer.Summary(result.Playbooks)), nil
}

func splitList(v any) []string {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
