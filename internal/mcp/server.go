package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/symindex/internal/config"
	"github.com/dshills/symindex/internal/index"
	"github.com/dshills/symindex/internal/indexer"
	"github.com/dshills/symindex/internal/logging"
	"github.com/dshills/symindex/internal/scanner"
	"github.com/dshills/symindex/internal/storage"
	"github.com/dshills/symindex/internal/watcher"
)

const (
	// ServerName is the MCP server name
	ServerName = "symindex"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"

	logTopic = "mcp"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp         *server.MCPServer
	storage     storage.Storage
	coordinator *indexer.Coordinator
	watcher     *watcher.Watcher // nil when watching is disabled
	logger      *logging.Logger

	stop      context.CancelFunc
	done      chan error
	closeOnce sync.Once
	closeErr  error
}

// NewServer creates a new MCP server instance from cfg
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	table, err := cfg.StrategyTable(logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to build parser strategies: %w", err)
	}

	sc := scanner.New(table, logger, &scanner.Config{
		Workers:          cfg.Workers,
		RespectGitignore: cfg.RespectGitignore,
	})
	coord := indexer.New(sc, index.NewStore(), indexer.WithLogger(logger))

	s := newServer(store, coord, logger)

	if cfg.Watch.Enabled {
		w, err := watcher.New(cfg.Watch, logger, s.onChange)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to start watcher: %w", err)
		}
		s.watcher = w
	}

	return s, nil
}

// newServer assembles a server from ready components
func newServer(store storage.Storage, coord *indexer.Coordinator, logger *logging.Logger) *Server {
	s := &Server{
		mcp:         server.NewMCPServer(ServerName, ServerVersion),
		storage:     store,
		coordinator: coord,
		logger:      logger,
	}
	s.registerTools()
	return s
}

// Start runs the coordinator and reopens the projects remembered from
// earlier sessions
func (s *Server) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.stop = cancel
	s.done = make(chan error, 1)
	go func() { s.done <- s.coordinator.Run(runCtx) }()

	return s.restoreProjects(ctx)
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		_ = s.Close()
		return err
	}
	defer func() { _ = s.Close() }()
	return server.ServeStdio(s.mcp, server.WithErrorLogger(s.logger.ErrorLog(logTopic)))
}

// Close stops watching, stops the coordinator and closes storage.
// It is safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		if s.watcher != nil {
			_ = s.watcher.Close()
		}
		if s.stop != nil {
			s.stop()
			if err := <-s.done; err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warnf(logTopic, "Coordinator stopped: %v", err)
			}
		}
		s.closeErr = s.storage.Close()
	})
	return s.closeErr
}

// restoreProjects reopens every stored project marked auto-open whose root
// still exists
func (s *Server) restoreProjects(ctx context.Context) error {
	projects, err := s.storage.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stored projects: %w", err)
	}

	for _, stored := range projects {
		if !stored.AutoOpen {
			continue
		}
		if err := validatePath(stored.RootPath); err != nil {
			s.logger.Warnf(logTopic, "Not reopening %s: %v", stored.RootPath, err)
			continue
		}
		if err := s.openProject(ctx, stored.ToTypesProject()); err != nil {
			return err
		}
	}
	return nil
}

// onChange receives debounced notifications from the watcher
func (s *Server) onChange(root string) {
	if err := s.coordinator.Changed(context.Background(), root); err != nil {
		s.logger.Debugf(logTopic, "Dropping change in %s: %v", root, err)
	}
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(openProjectTool(), s.handleOpenProject)
	s.mcp.AddTool(closeProjectTool(), s.handleCloseProject)
	s.mcp.AddTool(notifyChangedTool(), s.handleNotifyChanged)
	s.mcp.AddTool(findDeclarationsTool(), s.handleFindDeclarations)
	s.mcp.AddTool(findDefinitionsTool(), s.handleFindDefinitions)
	s.mcp.AddTool(dumpIndexTool(), s.handleDumpIndex)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	s.mcp.AddTool(listProjectsTool(), s.handleListProjects)
}
