package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/symindex/internal/indexer"
	"github.com/dshills/symindex/internal/storage"
	"github.com/dshills/symindex/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound = -32001 // Specified path is not an accessible directory
	ErrorCodeNotOpen         = -32003 // Project not open
	ErrorCodeEmptyName       = -32004 // Name parameter is empty
)

// handleOpenProject handles the open_project tool invocation
func (s *Server) handleOpenProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, path, err := pathArgs(request)
	if err != nil {
		return nil, err
	}

	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeProjectNotFound, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	extra, err := getStringSlice(args, "extra_directories")
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid extra_directories", map[string]interface{}{
			"param":  "extra_directories",
			"reason": err.Error(),
		})
	}

	project := types.Project{Root: filepath.Clean(path), ExtraDirs: extra}

	if err := s.storage.SaveProject(ctx, storage.FromTypesProject(project)); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to save project", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if err := s.openProject(ctx, project); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to open project", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"opened":            true,
		"path":              project.Root,
		"extra_directories": project.ExtraDirs,
		"scan_directories":  project.ScanDirs(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// openProject opens p in the coordinator and starts watching it
func (s *Server) openProject(ctx context.Context, p types.Project) error {
	if err := s.coordinator.Opened(ctx, p); err != nil {
		return err
	}
	if s.watcher != nil {
		if err := s.watcher.Watch(p); err != nil {
			s.logger.Warnf(logTopic, "Failed to watch %s: %v", p.Root, err)
		}
	}
	return nil
}

// handleCloseProject handles the close_project tool invocation
func (s *Server) handleCloseProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, path, err := pathArgs(request)
	if err != nil {
		return nil, err
	}
	root := filepath.Clean(path)
	forget := getBoolDefault(args, "forget", false)

	_, open, err := s.coordinator.State(ctx, root)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to close project", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if s.watcher != nil {
		s.watcher.Unwatch(root)
	}
	if err := s.coordinator.Closing(ctx, root); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to close project", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if forget {
		err = s.storage.DeleteProject(ctx, root)
	} else {
		err = s.storage.SetAutoOpen(ctx, root, false)
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeInternalError, "failed to update stored project", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"closed":    open,
		"path":      root,
		"forgotten": forget,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleNotifyChanged handles the notify_changed tool invocation
func (s *Server) handleNotifyChanged(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, path, err := pathArgs(request)
	if err != nil {
		return nil, err
	}
	root := filepath.Clean(path)

	if err := s.coordinator.Changed(ctx, root); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to deliver change", map[string]interface{}{
			"error": err.Error(),
		})
	}

	state, open, err := s.coordinator.State(ctx, root)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read state", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if !open {
		return nil, newMCPError(ErrorCodeNotOpen, "project not open", map[string]interface{}{
			"path": root,
		})
	}

	response := map[string]interface{}{
		"path":  root,
		"state": state.String(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleFindDeclarations handles the find_declarations tool invocation
func (s *Server) handleFindDeclarations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.lookup(ctx, request, types.Declaration, s.coordinator.Declarations)
}

// handleFindDefinitions handles the find_definitions tool invocation
func (s *Server) handleFindDefinitions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.lookup(ctx, request, types.Definition, s.coordinator.Definitions)
}

type lookupFunc func(ctx context.Context, root, name string) ([]types.Occurrence, error)

func (s *Server) lookup(ctx context.Context, request mcp.CallToolRequest, kind types.ItemKind, find lookupFunc) (*mcp.CallToolResult, error) {
	args, path, err := pathArgs(request)
	if err != nil {
		return nil, err
	}

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return nil, newMCPError(ErrorCodeEmptyName, "name parameter is required and cannot be empty", map[string]interface{}{
			"param":  "name",
			"reason": "missing or empty",
		})
	}

	root := filepath.Clean(path)
	occs, err := find(ctx, root, name)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	_, open, err := s.coordinator.State(ctx, root)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	locations := make([]map[string]interface{}, len(occs))
	for i, occ := range occs {
		locations[i] = map[string]interface{}{
			"path":     occ.Path,
			"location": int(occ.Location),
		}
	}

	response := map[string]interface{}{
		"path":        root,
		"open":        open,
		"name":        name,
		"kind":        string(kind),
		"count":       len(occs),
		"occurrences": locations,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDumpIndex handles the dump_index tool invocation
func (s *Server) handleDumpIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, path, err := pathArgs(request)
	if err != nil {
		return nil, err
	}
	root := filepath.Clean(path)

	lines, err := s.coordinator.Dump(ctx, root)
	if errors.Is(err, indexer.ErrNotOpen) {
		return nil, newMCPError(ErrorCodeNotOpen, "project not open", map[string]interface{}{
			"path": root,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to dump index", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"path":  root,
		"lines": lines,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, path, err := pathArgs(request)
	if err != nil {
		return nil, err
	}
	root := filepath.Clean(path)

	status, err := s.coordinator.Status(ctx, root)
	if errors.Is(err, indexer.ErrNotOpen) {
		response := map[string]interface{}{
			"open":    false,
			"path":    root,
			"message": "Project not open. Use open_project tool to index this project.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get project status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"open":  true,
		"state": status.State.String(),
		"project": map[string]interface{}{
			"path":              status.Project.Root,
			"extra_directories": status.Project.ExtraDirs,
			"session":           status.Session,
		},
		"statistics": map[string]interface{}{
			"files_count":       status.Files,
			"items_count":       status.Items,
			"declared_names":    status.Declarations,
			"defined_names":     status.Definitions,
			"fingerprint":       fmt.Sprintf("%016x", status.Fingerprint),
			"scans":             status.Scans,
			"last_files_parsed": status.LastStats.FilesParsed,
			"last_files_reused": status.LastStats.FilesReused,
			"last_files_failed": status.LastStats.FilesFailed,
			"last_duration_ms":  status.LastStats.Duration.Milliseconds(),
		},
	}
	if !status.LastScan.IsZero() {
		response["last_scan_at"] = status.LastScan.Format(time.RFC3339)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListProjects handles the list_projects tool invocation
func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	open, err := s.coordinator.Projects(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list projects", map[string]interface{}{
			"error": err.Error(),
		})
	}
	stored, err := s.storage.ListProjects(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list stored projects", map[string]interface{}{
			"error": err.Error(),
		})
	}

	openRoots := make([]string, len(open))
	for i, p := range open {
		openRoots[i] = p.Root
	}

	remembered := make([]map[string]interface{}, len(stored))
	for i, p := range stored {
		remembered[i] = map[string]interface{}{
			"path":              p.RootPath,
			"extra_directories": p.ExtraDirs,
			"auto_open":         p.AutoOpen,
		}
	}

	watched := []string{}
	if s.watcher != nil {
		watched = s.watcher.Watching()
	}

	response := map[string]interface{}{
		"open":       openRoots,
		"watched":    watched,
		"remembered": remembered,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// pathArgs extracts the argument map and the required path parameter
func pathArgs(request mcp.CallToolRequest) (map[string]interface{}, string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if !filepath.IsAbs(path) {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": ErrPathNotAbsolute.Error(),
		})
	}
	return args, path, nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks if a path is an accessible directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() {
		return ErrNotDirectory
	}

	// Check if directory is readable
	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts an optional array of strings
func getStringSlice(args map[string]interface{}, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %d is not a string", i)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected an array of strings")
	}
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
