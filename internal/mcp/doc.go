// Package mcp implements the Model Context Protocol (MCP) server for symindex.
//
// The server exposes the index coordinator to MCP clients over stdio:
//   - open_project: open a project root and index it in the background
//   - close_project: close a project, optionally forgetting it
//   - notify_changed: report that files under a project changed
//   - find_declarations / find_definitions: look up a name
//   - dump_index: render both indexes of a project
//   - get_status: scan state and index statistics
//   - list_projects: open and remembered projects
//
// Opened projects are stored in SQLite and reopened when the server starts
// again, until they are closed. When watching is enabled, filesystem events
// under an open project are debounced and delivered as change notifications.
//
// # Lookups
//
// Lookups never block on a scan. They answer from the last published
// snapshot, so results may lag the disk by one scan:
//
//	Request:
//	{
//	  "name": "find_definitions",
//	  "arguments": {"path": "/path/to/project", "name": "foo"}
//	}
//
//	Response:
//	{
//	  "path": "/path/to/project",
//	  "open": true,
//	  "name": "foo",
//	  "kind": "definition",
//	  "count": 1,
//	  "occurrences": [{"path": "/path/to/project/b.src", "location": 4}]
//	}
//
// Location is the byte offset of the name within the file.
//
// # Error Handling
//
// Errors are returned as *MCPError with a JSON-RPC style code:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, coordinator shut down)
//   - -32001: Project path is not an accessible directory
//   - -32003: Project not open
//   - -32004: Empty name
//
// # Logging
//
// stdout is reserved for the protocol; logs go to stderr:
//
//	SYMINDEX_LOG_LEVEL=debug symindex serve
package mcp
