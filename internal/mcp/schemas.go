package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// pathProperty is the schema of the project root parameter shared by all tools
func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the project root",
	}
}

// openProjectTool returns the tool definition for open_project
func openProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "open_project",
		Description: "Open a project and index its declarations and definitions in the background",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
				"extra_directories": map[string]interface{}{
					"type":        "array",
					"description": "Additional directories or glob patterns to index with the project. Relative entries resolve against the project root.",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"path"},
		},
	}
}

// closeProjectTool returns the tool definition for close_project
func closeProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "close_project",
		Description: "Close a project and drop its index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
				"forget": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, also remove the project from the list reopened on start",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// notifyChangedTool returns the tool definition for notify_changed
func notifyChangedTool() mcp.Tool {
	return mcp.Tool{
		Name:        "notify_changed",
		Description: "Signal that files in an open project changed so it is rescanned",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
			},
			Required: []string{"path"},
		},
	}
}

// lookupTool returns the definition of a name lookup tool
func lookupTool(name, description string) mcp.Tool {
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Exact symbol name",
				},
			},
			Required: []string{"path", "name"},
		},
	}
}

// findDeclarationsTool returns the tool definition for find_declarations
func findDeclarationsTool() mcp.Tool {
	return lookupTool("find_declarations", "List every location where a symbol is declared")
}

// findDefinitionsTool returns the tool definition for find_definitions
func findDefinitionsTool() mcp.Tool {
	return lookupTool("find_definitions", "List every location where a symbol is defined")
}

// dumpIndexTool returns the tool definition for dump_index
func dumpIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "dump_index",
		Description: "Log and return the full declaration and definition index of an open project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query scan state and index statistics for a project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
			},
			Required: []string{"path"},
		},
	}
}

// listProjectsTool returns the tool definition for list_projects
func listProjectsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_projects",
		Description: "List open projects and projects remembered for reopening",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
