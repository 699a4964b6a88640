// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Skald workspace tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/halvorsen/skald/internal/session"
)

// Server wraps the MCP server with Skald tools.
type Server struct {
	mcp *server.MCPServer
	reg *session.Registry
}

// New creates a new MCP server with all Skald tools registered.
func New(reg *session.Registry) *Server {
	s := &Server{reg: reg}

	s.mcp = server.NewMCPServer(
		"Skald",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("create_workspace",
		mcp.WithDescription("Create a new empty editing workspace and return its id."),
	), s.createWorkspace)

	s.mcp.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List all files in a workspace with their kinds."),
		mcp.WithString("workspace", mcp.Required(), mcp.Description("Workspace id")),
	), s.listFiles)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full text of a Markdown document."),
		mcp.WithString("workspace", mcp.Required(), mcp.Description("Workspace id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Document file name (e.g. notes.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a new Markdown document. Content MUST follow the "+
			"canonical document format (optional YAML front matter with title, tags, "+
			"photos; Markdown body with ![alt](file) image references). Read the "+
			"contract first via the get_document_contract tool or the "+
			"skald://document-format resource. A name collision is resolved by "+
			"auto-suffixing; the tool reports the final name."),
		mcp.WithString("workspace", mcp.Required(), mcp.Description("Workspace id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name for the new document (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content following the Skald document format contract")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("edit_document",
		mcp.WithDescription("Replace a document's text. The change is recorded in the "+
			"workspace's undo history when the document is the active tab."),
		mcp.WithString("workspace", mcp.Required(), mcp.Description("Workspace id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Document file name")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New full document text")),
	), s.editDocument)

	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Step the active document's history back one snapshot."),
		mcp.WithString("workspace", mcp.Required(), mcp.Description("Workspace id")),
	), s.undo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Reapply the most recently undone change of the active document."),
		mcp.WithString("workspace", mcp.Required(), mcp.Description("Workspace id")),
	), s.redo)

	s.mcp.AddTool(mcp.NewTool("missing_resources",
		mcp.WithDescription("List resources referenced by the active document that are "+
			"not present in the workspace file set."),
		mcp.WithString("workspace", mcp.Required(), mcp.Description("Workspace id")),
	), s.missingResources)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through a workspace's documents."),
		mcp.WithString("workspace", mcp.Required(), mcp.Description("Workspace id")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("get_document_contract",
		mcp.WithDescription("Returns the canonical Skald document format contract. "+
			"Call this before creating or editing documents to ensure correct structure."),
	), s.getDocumentContract)

	s.mcp.AddTool(mcp.NewTool("import_asset",
		mcp.WithDescription("Import an image into the workspace from an http(s) URL or "+
			"a base64 data URI. Non-JPEG images are re-encoded to JPEG. Returns a "+
			"markdownImage field ready to paste into a document body."),
		mcp.WithString("workspace", mcp.Required(), mcp.Description("Workspace id")),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI of the image")),
		mcp.WithString("filename", mcp.Description("Optional file name override")),
	), s.importAsset)

	// Resource: document format contract.
	s.mcp.AddResource(
		mcp.NewResource("skald://document-format", "Document Format Contract",
			mcp.WithResourceDescription("Canonical Markdown document format that all documents must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormatResource,
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

// workspaceArg resolves the session named by the request's workspace arg.
func (s *Server) workspaceArg(req mcp.CallToolRequest) (*session.Session, *mcp.CallToolResult) {
	id, err := req.RequireString("workspace")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	sess, err := s.reg.Get(id)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("workspace not found: %s", id))
	}
	return sess, nil
}

func (s *Server) createWorkspace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess := s.reg.Create(ctx)
	return mcp.NewToolResultText(sess.ID()), nil
}

func (s *Server) listFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errRes := s.workspaceArg(req)
	if errRes != nil {
		return errRes, nil
	}
	files := sess.Files(ctx)
	var lines []string
	for _, f := range files {
		lines = append(lines, fmt.Sprintf("%s\t%s", f.Name, f.Kind))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("workspace is empty"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errRes := s.workspaceArg(req)
	if errRes != nil {
		return errRes, nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := sess.Document(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errRes := s.workspaceArg(req)
	if errRes != nil {
		return errRes, nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	st, err := sess.NewDocument(ctx, name, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", st.ActiveTab)), nil
}

func (s *Server) editDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errRes := s.workspaceArg(req)
	if errRes != nil {
		return errRes, nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := sess.UpdateDocument(ctx, name, content, ""); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", name)), nil
}

func (s *Server) undo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errRes := s.workspaceArg(req)
	if errRes != nil {
		return errRes, nil
	}
	st, err := sess.Undo(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(st.Content), nil
}

func (s *Server) redo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errRes := s.workspaceArg(req)
	if errRes != nil {
		return errRes, nil
	}
	st, err := sess.Redo(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(st.Content), nil
}

func (s *Server) missingResources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errRes := s.workspaceArg(req)
	if errRes != nil {
		return errRes, nil
	}
	missing := sess.MissingResources(ctx)
	if len(missing) == 0 {
		return mcp.NewToolResultText("no missing resources"), nil
	}
	out, _ := json.MarshalIndent(missing, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errRes := s.workspaceArg(req)
	if errRes != nil {
		return errRes, nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := sess.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getDocumentContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readDocumentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "skald://document-format",
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}
