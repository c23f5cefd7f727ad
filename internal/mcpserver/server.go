// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes filedeck operations for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/filedeck/internal/fileops"
)

// actor is the identity MCP calls run as. The stdio transport is only
// reachable by whoever started the process.
var actor = fileops.Actor{Name: "mcp", Authenticated: true}

// Server wraps the MCP server with filedeck tools.
type Server struct {
	mcp *server.MCPServer
	svc *fileops.Service
}

// New creates a new MCP server with all filedeck tools registered.
func New(svc *fileops.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"filedeck",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	dir := mcp.WithString("dir", mcp.Description("Directory relative to the managed root (empty for the root)"))

	s.mcp.AddTool(mcp.NewTool("list_directory",
		mcp.WithDescription("List a directory: folders first, then files, in natural order, with subtree statistics."),
		dir,
	), s.listDirectory)

	s.mcp.AddTool(mcp.NewTool("directory_stats",
		mcp.WithDescription("Count files, folders and bytes below a directory."),
		dir,
	), s.directoryStats)

	s.mcp.AddTool(mcp.NewTool("read_file",
		mcp.WithDescription("Read a text file. Only editable text and code extensions are accepted. "+
			"Read the guide via the filedeck://guide resource for the list."),
		dir,
		mcp.WithString("name", mcp.Required(), mcp.Description("File name inside dir")),
	), s.readFile)

	s.mcp.AddTool(mcp.NewTool("write_file",
		mcp.WithDescription("Replace the content of an existing text file."),
		dir,
		mcp.WithString("name", mcp.Required(), mcp.Description("File name inside dir")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New file content")),
	), s.writeFile)

	s.mcp.AddTool(mcp.NewTool("create_folder",
		mcp.WithDescription("Create a folder. Existing names are left untouched."),
		dir,
		mcp.WithString("name", mcp.Required(), mcp.Description("Folder name")),
	), s.createFolder)

	s.mcp.AddTool(mcp.NewTool("create_file",
		mcp.WithDescription("Create an empty file. Existing names are left untouched."),
		dir,
		mcp.WithString("name", mcp.Required(), mcp.Description("File name")),
	), s.createFile)

	s.mcp.AddTool(mcp.NewTool("rename",
		mcp.WithDescription("Rename an entry inside dir. Never overwrites an existing entry."),
		dir,
		mcp.WithString("old", mcp.Required(), mcp.Description("Current name")),
		mcp.WithString("new", mcp.Required(), mcp.Description("New name")),
	), s.rename)

	s.mcp.AddTool(mcp.NewTool("delete",
		mcp.WithDescription("Move an entry to the trash. It can be restored with the restore tool."),
		dir,
		mcp.WithString("name", mcp.Required(), mcp.Description("Entry name")),
	), s.delete)

	s.mcp.AddTool(mcp.NewTool("list_trash",
		mcp.WithDescription("List trash entries with their original names and paths."),
	), s.listTrash)

	s.mcp.AddTool(mcp.NewTool("restore",
		mcp.WithDescription("Restore a trash entry to the managed root. A taken name gets a \" (n)\" suffix."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Trash entry name as returned by list_trash")),
	), s.restore)

	s.mcp.AddTool(mcp.NewTool("upload_file",
		mcp.WithDescription("Store a file fetched from an http(s) URL or a base64 data URI. "+
			"An existing file with the same name is replaced."),
		dir,
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:<mime>;base64,<data> URI")),
		mcp.WithString("filename", mcp.Description("Optional file name (derived from the URL if empty)")),
	), s.uploadFile)

	s.mcp.AddResource(
		mcp.NewResource(guideURI, "filedeck usage guide",
			mcp.WithResourceDescription("Path rules, trash naming and editable extensions."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// errorResult reports err by its stable code. Technical detail stays in the
// service log.
func errorResult(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fileops.CodeFor(err)), nil
}

func outcomeResult(out fileops.Outcome, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(out)
}

func (s *Server) listDirectory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	l, err := s.svc.Browse(ctx, actor, req.GetString("dir", ""))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(l)
}

func (s *Server) directoryStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.svc.Statistics(ctx, actor, req.GetString("dir", ""))
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(st)
}

func (s *Server) readFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.ReadForEdit(ctx, actor, req.GetString("dir", ""), name)
	if err != nil {
		return errorResult(err)
	}
	return mcp.NewToolResultText(doc.Content), nil
}

func (s *Server) writeFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return outcomeResult(s.svc.WriteFromEdit(ctx, actor, req.GetString("dir", ""), name, content))
}

func (s *Server) createFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return outcomeResult(s.svc.CreateFolder(ctx, actor, req.GetString("dir", ""), name))
}

func (s *Server) createFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return outcomeResult(s.svc.CreateFile(ctx, actor, req.GetString("dir", ""), name))
}

func (s *Server) rename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	oldName, err := req.RequireString("old")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newName, err := req.RequireString("new")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return outcomeResult(s.svc.Rename(ctx, actor, req.GetString("dir", ""), oldName, newName))
}

func (s *Server) delete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return outcomeResult(s.svc.Delete(ctx, actor, req.GetString("dir", ""), name))
}

func (s *Server) listTrash(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.Trash(ctx, actor)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(items)
}

func (s *Server) restore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return outcomeResult(s.svc.Restore(ctx, actor, name))
}

func (s *Server) readGuideResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      guideURI,
			MIMEType: "text/markdown",
			Text:     UsageGuide,
		},
	}, nil
}
