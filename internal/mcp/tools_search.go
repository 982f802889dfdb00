package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ===== TOOL DISCOVERY =====

type toolSearchInput struct {
	Query    string `json:"query" jsonschema:"required,Regex or plain text matched against tool names, descriptions and keywords"`
	Category string `json:"category,omitempty" jsonschema:"Restrict results to one category (chat, tasks, ledger, search)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum results to return (default: 5)"`
}

type toolEntry struct {
	Name         string   `json:"name" jsonschema:"Tool name"`
	Description  string   `json:"description" jsonschema:"What the tool does"`
	Category     string   `json:"category" jsonschema:"Tool category"`
	DeferLoading bool     `json:"defer_loading" jsonschema:"Whether the tool is defer-loaded"`
	Keywords     []string `json:"keywords,omitempty" jsonschema:"Search keywords"`
	Score        int      `json:"score,omitempty" jsonschema:"Match score, higher is better"`
	MatchReason  string   `json:"match_reason,omitempty" jsonschema:"Why the tool matched"`
}

type toolSearchOutput struct {
	Query      string      `json:"query" jsonschema:"Search query used"`
	Results    []toolEntry `json:"results" jsonschema:"Matching tools, best first"`
	Count      int         `json:"count" jsonschema:"Number of tools found"`
	TotalTools int         `json:"total_tools" jsonschema:"Total number of registered tools"`
}

type toolListInput struct {
	Category     string `json:"category,omitempty" jsonschema:"Restrict to one category"`
	DeferredOnly bool   `json:"deferred_only,omitempty" jsonschema:"Only list defer-loaded tools"`
}

type toolListOutput struct {
	Tools []toolEntry `json:"tools" jsonschema:"Registered tools"`
	Count int         `json:"count" jsonschema:"Number of tools returned"`
}

func entryOf(tool *ToolMetadata) toolEntry {
	return toolEntry{
		Name:         tool.Name,
		Description:  tool.Description,
		Category:     string(tool.Category),
		DeferLoading: tool.DeferLoading,
		Keywords:     tool.Keywords,
	}
}

func (s *Server) registerSearchTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolSearch,
		Description: "Search the available manager tools by name, description or keyword",
	}, s.handleToolSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolList,
		Description: "List the available manager tools with their metadata",
	}, s.handleToolList)
}

func (s *Server) handleToolSearch(ctx context.Context, req *mcp.CallToolRequest, args toolSearchInput) (result *mcp.CallToolResult, out toolSearchOutput, toolErr error) {
	done := s.track(ctx, toolSearch)
	defer func() { done(toolErr) }()

	if strings.TrimSpace(args.Query) == "" {
		return nil, toolSearchOutput{}, fmt.Errorf("invalid input: query is required")
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 5
	}

	var matches []*SearchResult
	if args.Category != "" {
		matches = s.toolRegistry.SearchByCategory(args.Query, ToolCategory(args.Category))
	} else {
		matches = s.toolRegistry.Search(args.Query)
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out = toolSearchOutput{
		Query:      args.Query,
		Results:    make([]toolEntry, 0, len(matches)),
		TotalTools: s.toolRegistry.Count(),
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		e := entryOf(m.Tool)
		e.Score = m.Score
		e.MatchReason = m.MatchReason
		out.Results = append(out.Results, e)
		names = append(names, m.Tool.Name)
	}
	out.Count = len(out.Results)

	if out.Count == 0 {
		return text("No tools found matching: %s", args.Query), out, nil
	}
	return text("Found %d tool(s) for query '%s': %s", out.Count, args.Query, strings.Join(names, ", ")), out, nil
}

func (s *Server) handleToolList(ctx context.Context, req *mcp.CallToolRequest, args toolListInput) (result *mcp.CallToolResult, out toolListOutput, toolErr error) {
	done := s.track(ctx, toolList)
	defer func() { done(toolErr) }()

	var tools []*ToolMetadata
	switch {
	case args.Category != "":
		tools = s.toolRegistry.ListByCategory(ToolCategory(args.Category))
	case args.DeferredOnly:
		tools = s.toolRegistry.ListDeferred()
	default:
		tools = s.toolRegistry.List()
	}

	out.Tools = make([]toolEntry, 0, len(tools))
	for _, tool := range tools {
		out.Tools = append(out.Tools, entryOf(tool))
	}
	out.Count = len(out.Tools)
	return text("Found %d tools", out.Count), out, nil
}
