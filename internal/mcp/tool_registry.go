package mcp

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// ToolCategory groups tools by the part of the manager they drive.
type ToolCategory string

const (
	// CategoryChat is for conversational tools.
	CategoryChat ToolCategory = "chat"
	// CategoryTasks is for dashboard tools.
	CategoryTasks ToolCategory = "tasks"
	// CategoryLedger is for finance tools.
	CategoryLedger ToolCategory = "ledger"
	// CategorySearch is for tool discovery.
	CategorySearch ToolCategory = "search"
)

// ToolMetadata describes one registered tool.
type ToolMetadata struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Category    ToolCategory `json:"category"`

	// DeferLoading marks tools a client should discover through
	// tool_search instead of loading up front.
	DeferLoading bool `json:"defer_loading"`

	Keywords []string `json:"keywords,omitempty"`
}

// ToolRegistry indexes tool metadata for discovery.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]*ToolMetadata
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*ToolMetadata)}
}

// Register adds or replaces a tool. Nil or unnamed tools are ignored.
func (r *ToolRegistry) Register(tool *ToolMetadata) {
	if tool == nil || tool.Name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = tool
}

// RegisterAll adds multiple tools.
func (r *ToolRegistry) RegisterAll(tools []*ToolMetadata) {
	for _, tool := range tools {
		r.Register(tool)
	}
}

// Get returns the metadata for a tool.
func (r *ToolRegistry) Get(name string) (*ToolMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns every tool sorted by name.
func (r *ToolRegistry) List() []*ToolMetadata {
	return r.filter(func(*ToolMetadata) bool { return true })
}

// ListByCategory returns the tools of one category sorted by name.
func (r *ToolRegistry) ListByCategory(category ToolCategory) []*ToolMetadata {
	return r.filter(func(t *ToolMetadata) bool { return t.Category == category })
}

// ListDeferred returns the tools marked for deferred loading.
func (r *ToolRegistry) ListDeferred() []*ToolMetadata {
	return r.filter(func(t *ToolMetadata) bool { return t.DeferLoading })
}

func (r *ToolRegistry) filter(keep func(*ToolMetadata) bool) []*ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*ToolMetadata, 0, len(r.tools))
	for _, tool := range r.tools {
		if keep(tool) {
			result = append(result, tool)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Count returns the number of registered tools.
func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// SearchResult is one tool matched by a query.
//
// Score is 3 for an exact name match, 2 when the name contains or matches
// the query, and 1 for a description or keyword hit.
type SearchResult struct {
	Tool        *ToolMetadata `json:"tool"`
	Score       int           `json:"score"`
	MatchReason string        `json:"match_reason"`
}

// Search finds tools by name, description, or keyword. The query is
// tried as a case-insensitive regular expression and falls back to
// substring matching when it does not compile.
func (r *ToolRegistry) Search(query string) []*SearchResult {
	if query == "" {
		return nil
	}
	q := strings.ToLower(query)
	re, err := regexp.Compile("(?i)" + query)
	if err != nil {
		re = nil
	}
	matches := func(s string) bool {
		return strings.Contains(strings.ToLower(s), q) || (re != nil && re.MatchString(s))
	}

	r.mu.RLock()
	var results []*SearchResult
	for _, tool := range r.tools {
		switch {
		case strings.ToLower(tool.Name) == q:
			results = append(results, &SearchResult{Tool: tool, Score: 3, MatchReason: "exact name match"})
		case matches(tool.Name):
			results = append(results, &SearchResult{Tool: tool, Score: 2, MatchReason: "name matches query"})
		case matches(tool.Description):
			results = append(results, &SearchResult{Tool: tool, Score: 1, MatchReason: "description matches query"})
		default:
			for _, kw := range tool.Keywords {
				if matches(kw) {
					results = append(results, &SearchResult{Tool: tool, Score: 1, MatchReason: "keyword matches query"})
					break
				}
			}
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Tool.Name < results[j].Tool.Name
	})
	return results
}

// SearchByCategory searches within one category.
func (r *ToolRegistry) SearchByCategory(query string, category ToolCategory) []*SearchResult {
	var filtered []*SearchResult
	for _, result := range r.Search(query) {
		if result.Tool.Category == category {
			filtered = append(filtered, result)
		}
	}
	return filtered
}

// managerTools is the catalogue registered by NewServer.
func managerTools() []*ToolMetadata {
	return []*ToolMetadata{
		{
			Name:        toolSubmit,
			Description: "Send one message to the business assistant and get its reply",
			Category:    CategoryChat,
			Keywords:    []string{"chat", "message", "assistant", "classify"},
		},
		{
			Name:        toolTasks,
			Description: "List tasks with optional filters plus dashboard statistics",
			Category:    CategoryTasks,
			Keywords:    []string{"dashboard", "deadline", "overdue", "priority", "assignee"},
		},
		{
			Name:        toolSetStatus,
			Description: "Change the status of a task",
			Category:    CategoryTasks,
			Keywords:    []string{"complete", "progress", "pending"},
		},
		{
			Name:         toolBulkUpdate,
			Description:  "Apply one field change to several tasks at once",
			Category:     CategoryTasks,
			DeferLoading: true,
			Keywords:     []string{"bulk", "batch", "assign", "priority"},
		},
		{
			Name:        toolLedger,
			Description: "Show ledger totals and transactions newest first",
			Category:    CategoryLedger,
			Keywords:    []string{"finance", "income", "expense", "balance"},
		},
		{
			Name:        toolAddTransaction,
			Description: "Record an income or expense entry",
			Category:    CategoryLedger,
			Keywords:    []string{"finance", "payment", "invoice", "spend"},
		},
		{
			Name:        toolSearch,
			Description: "Search the available tools by name, description, or keyword",
			Category:    CategorySearch,
		},
		{
			Name:        toolList,
			Description: "List the available tools",
			Category:    CategorySearch,
		},
	}
}
