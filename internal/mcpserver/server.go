// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the prompt library tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/promptservice"
)

// Server wraps the MCP server with prompt library tools.
type Server struct {
	mcp *server.MCPServer
	svc *promptservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *promptservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("add_prompt",
		mcp.WithDescription("Store a prompt under the given name. The name is sanitized "+
			"to a lowercase [a-z0-9-_] stem; use the returned filename stem for later "+
			"lookups. An existing prompt with the same stem is overwritten. Content "+
			"may start with a YAML frontmatter block; see the get_prompt_format tool."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Prompt name (sanitized to the storage stem)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full prompt content, optional YAML frontmatter first")),
	), s.addPrompt)

	s.mcp.AddTool(mcp.NewTool("get_prompt",
		mcp.WithDescription("Read the full content of a stored prompt."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Canonical prompt name")),
	), s.getPrompt)

	s.mcp.AddTool(mcp.NewTool("list_prompts",
		mcp.WithDescription("List all prompts with their metadata and a short preview of the body."),
	), s.listPrompts)

	s.mcp.AddTool(mcp.NewTool("delete_prompt",
		mcp.WithDescription("Delete a stored prompt."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Canonical prompt name")),
	), s.deletePrompt)

	s.mcp.AddTool(mcp.NewTool("search_prompts",
		mcp.WithDescription("Full-text search across prompt bodies and metadata."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchPrompts)

	s.mcp.AddTool(mcp.NewTool("get_prompt_format",
		mcp.WithDescription("Returns the canonical prompt file format. Call this before "+
			"adding prompts with metadata."),
	), s.getPromptFormat)

	// Resource: prompt format contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://prompt-format", "Prompt Format",
			mcp.WithResourceDescription("Canonical prompt file format with YAML frontmatter."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPromptFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) addPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	stem, err := s.svc.Add(ctx, name, []byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("stored: %s.md", stem)), nil
}

func (s *Server) getPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.Get(ctx, name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(detail.Content), nil
}

func (s *Server) listPrompts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) deletePrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Delete(ctx, name); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", name)), nil
}

func (s *Server) searchPrompts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getPromptFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PromptFormatContract), nil
}

func (s *Server) readPromptFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://prompt-format",
			MIMEType: "text/markdown",
			Text:     PromptFormatContract,
		},
	}, nil
}
