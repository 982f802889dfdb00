package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/managerd/internal/services"
)

// Server is an MCP server backed by the services registry.
type Server struct {
	mcp          *mcp.Server
	reg          services.Registry
	toolRegistry *ToolRegistry
	metrics      *Metrics
	logger       *zap.Logger
	now          func() time.Time
}

// Config configures the MCP server.
type Config struct {
	// Name is the implementation name reported to clients (default: "managerd").
	Name string

	// Version is the implementation version (default: "dev").
	Version string

	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "managerd",
		Version: "dev",
		Logger:  zap.NewNop(),
	}
}

// NewServer creates an MCP server and registers the manager tools.
func NewServer(cfg *Config, reg services.Registry) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if reg == nil {
		return nil, fmt.Errorf("service registry is required")
	}
	if reg.Chat() == nil || reg.Entities() == nil || reg.Notifier() == nil {
		return nil, fmt.Errorf("chat, entity and notifier services are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		reg:          reg,
		toolRegistry: NewToolRegistry(),
		metrics:      NewMetrics(logger),
		logger:       logger,
		now:          time.Now,
	}
	s.toolRegistry.RegisterAll(managerTools())
	s.registerTools()
	return s, nil
}

// Tools returns the registry describing the served tools.
func (s *Server) Tools() *ToolRegistry {
	return s.toolRegistry
}

// Run serves MCP over stdio until ctx is cancelled or the client hangs up.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
