package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/fmtplay/internal/permalink"
	"github.com/joescharf/fmtplay/internal/playground"
)

// Server exposes the playground as MCP tools.
type Server struct {
	pg      *playground.Playground
	version string
}

// NewServer creates the MCP server wrapper.
func NewServer(pg *playground.Playground, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{pg: pg, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("fmtplay", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.formatTool())
	srv.AddTool(s.lintTool())
	srv.AddTool(s.permalinkTool())
	srv.AddTool(s.decodeTool())
	srv.AddTool(s.reportTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// sessionOptions are the arguments shared by every tool taking a template.
func (s *Server) sessionOptions(withLayout bool) []mcp.ToolOption {
	d := s.pg.Defaults()
	opts := []mcp.ToolOption{
		mcp.WithString("source", mcp.Required(), mcp.Description("Template source text")),
		mcp.WithString("mode", mcp.Description(fmt.Sprintf("Formatter profile, django or jinja (default %s)", d.Mode))),
	}
	if withLayout {
		opts = append(opts,
			mcp.WithNumber("width", mcp.Description(fmt.Sprintf("Line length (default %d)", d.Width))),
			mcp.WithNumber("indent", mcp.Description(fmt.Sprintf("Indent width (default %d)", d.Indent))),
		)
	}
	return opts
}

// session reads source/mode/width/indent from request, falling back to the
// playground defaults for anything omitted.
func (s *Server) session(request mcp.CallToolRequest) (permalink.Session, error) {
	source, err := request.RequireString("source")
	if err != nil {
		return permalink.Session{}, err
	}
	d := s.pg.Defaults()
	return permalink.Session{
		Source: source,
		Mode:   request.GetString("mode", d.Mode),
		Width:  request.GetInt("width", d.Width),
		Indent: request.GetInt("indent", d.Indent),
	}, nil
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// fmtplay_format
func (s *Server) formatTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Format a Django/Jinja template with djangofmt. Returns JSON with kind (ok or degraded), text and duration_ms. A degraded result carries the engine error as text."),
	}, s.sessionOptions(true)...)
	return mcp.NewTool("fmtplay_format", opts...), s.handleFormat
}

func (s *Server) handleFormat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.pg.Format(ctx, playground.OriginMCP, sess)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"kind":        res.Kind,
		"text":        res.Text,
		"duration_ms": res.DurationMs(),
	}), nil
}

// fmtplay_lint
func (s *Server) lintTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Lint a Django/Jinja template with djangofmt check. Returns JSON with kind, output (plain text diagnostics) and error_count."),
	}, s.sessionOptions(false)...)
	return mcp.NewTool("fmtplay_lint", opts...), s.handleLint
}

func (s *Server) handleLint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := s.pg.Lint(ctx, playground.OriginMCP, sess)
	return jsonResult(map[string]any{
		"kind":        res.Kind,
		"output":      res.Plain(),
		"error_count": res.ErrorCount,
	}), nil
}

// fmtplay_permalink
func (s *Server) permalinkTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Create a shareable playground link reproducing a template and its formatting options."),
	}, s.sessionOptions(true)...)
	return mcp.NewTool("fmtplay_permalink", opts...), s.handlePermalink
}

func (s *Server) handlePermalink(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	link, _, err := s.pg.Share(sess, false)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build permalink: %v", err)), nil
	}
	return mcp.NewToolResultText(link), nil
}

// fmtplay_decode
func (s *Server) decodeTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("fmtplay_decode",
		mcp.WithDescription("Decode a playground link back into its template source and options. Returns JSON with source, mode, width and indent."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Playground permalink")),
	)
	return tool, s.handleDecode
}

func (s *Server) handleDecode(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	link, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, ok := permalink.DecodeURL(link, s.pg.Defaults())
	if !ok {
		return mcp.NewToolResultError("link does not contain a valid playground session"), nil
	}
	return jsonResult(map[string]any{
		"source": sess.Source,
		"mode":   sess.Mode,
		"width":  sess.Width,
		"indent": sess.Indent,
	}), nil
}

// fmtplay_report
func (s *Server) reportTool() (mcp.Tool, server.ToolHandlerFunc) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Build a djangofmt bug report for a template: formats it, diffs the result and returns JSON with title, diff, permalink, body and issue_url."),
		mcp.WithString("title", mcp.Description("Issue title")),
	}, s.sessionOptions(true)...)
	return mcp.NewTool("fmtplay_report", opts...), s.handleReport
}

func (s *Server) handleReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rep, err := s.pg.Report(ctx, playground.ReportRequest{
		Session: sess,
		Title:   request.GetString("title", ""),
		Origin:  playground.OriginMCP,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to build report: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"title":        rep.Title,
		"diff":         rep.Diff,
		"permalink":    rep.Permalink,
		"body":         rep.Body,
		"issue_url":    rep.IssueURL,
		"engine_error": rep.EngineError,
	}), nil
}
