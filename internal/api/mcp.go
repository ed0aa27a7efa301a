package api

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/clip2tsx/internal/acquire"
	"github.com/kalambet/clip2tsx/internal/iterate"
	"github.com/kalambet/clip2tsx/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store    *storage.Store
	Sessions *SessionManager
}

// NewMCPServer creates an MCP server exposing the conversion workflow
// as tools, so an agent can drive a session end to end: start, read
// the analysis, submit feedback rounds, export or abort.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"clip2tsx",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("clip2tsx — turn a recorded UI animation (video or GIF) into a React component through an iterative feedback loop."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("start_session",
			mcp.WithDescription("Start a conversion session from a video source. Acquires the clip, samples frames, analyzes the motion, and produces the first component draft."),
			mcp.WithString("source", mcp.Description("Direct media URL, page URL, or local file path"), mcp.Required()),
		),
		mcpStartSession(deps, s),
	)

	s.AddTool(
		mcp.NewTool("get_analysis",
			mcp.WithDescription("Return the motion analysis document for a session."),
			mcp.WithString("session_id", mcp.Description("Session ID from start_session"), mcp.Required()),
		),
		mcpGetAnalysis(deps),
	)

	s.AddTool(
		mcp.NewTool("get_component",
			mcp.WithDescription("Return the current component draft source for a session."),
			mcp.WithString("session_id", mcp.Description("Session ID from start_session"), mcp.Required()),
		),
		mcpGetComponent(deps),
	)

	s.AddTool(
		mcp.NewTool("submit_feedback",
			mcp.WithDescription("Submit one round of feedback. In the rated phase pass rating (perfect, minor-tweaks, several-issues, major-rework). For non-perfect ratings also pass tags and detail, either in the same call or a follow-up."),
			mcp.WithString("session_id", mcp.Description("Session ID"), mcp.Required()),
			mcp.WithString("rating", mcp.Description("Match quality rating, or a cancellation word (cancel/abort/stop/quit)")),
			mcp.WithArray("tags", mcp.Description("Adjustment areas: timing, colors, motion, layout, easing, content")),
			mcp.WithString("detail", mcp.Description("Free-text description of what to change")),
		),
		mcpSubmitFeedback(deps),
	)

	s.AddTool(
		mcp.NewTool("abort_session",
			mcp.WithDescription("Abort a session and delete every scratch file it produced."),
			mcp.WithString("session_id", mcp.Description("Session ID"), mcp.Required()),
		),
		mcpAbortSession(deps),
	)

	s.AddTool(
		mcp.NewTool("export_component",
			mcp.WithDescription("Copy an approved component into a project directory."),
			mcp.WithString("session_id", mcp.Description("Session ID"), mcp.Required()),
			mcp.WithString("dest", mcp.Description("Destination directory"), mcp.Required()),
			mcp.WithString("name", mcp.Description("Optional PascalCase rename for the component")),
			mcp.WithBoolean("force", mcp.Description("Overwrite an existing file at the destination")),
		),
		mcpExportComponent(deps),
	)

	s.AddTool(
		mcp.NewTool("list_sessions",
			mcp.WithDescription("List recent sessions and their outcomes."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of sessions (default 10)")),
		),
		mcpListSessions(deps),
	)

	return s
}

// sessionReply is the JSON shape every session-mutating tool returns.
type sessionReply struct {
	SessionID string `json:"session_id"`
	Phase     string `json:"phase"`
	Iteration int    `json:"iteration"`
	Draft     string `json:"draft,omitempty"`
	Note      string `json:"note,omitempty"`
}

func replyJSON(sess *ActiveSession, note string, includeDraft bool) *mcp.CallToolResult {
	r := sessionReply{
		SessionID: sess.ID,
		Phase:     sess.State.Phase.String(),
		Iteration: sess.State.Iteration,
		Note:      note,
	}
	if includeDraft {
		r.Draft = sess.State.Source
	}
	b, err := json.Marshal(r)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal reply: %v", err))
	}
	return mcpText(string(b))
}

func mcpStartSession(deps MCPDeps, srv *server.MCPServer) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		source, err := req.RequireString("source")
		if err != nil {
			return mcpError("source is required"), nil
		}

		sess, err := deps.Sessions.Start(ctx, acquire.InferRequest(source))
		if err != nil {
			return mcpError(fmt.Sprintf("session failed: %v", err)), nil
		}

		registerSessionResources(srv, sess)

		return replyJSON(sess, "rate the draft with submit_feedback", true), nil
	}
}

// registerSessionResources exposes a session's analysis and draft as
// MCP resources alongside the tool-based access.
func registerSessionResources(srv *server.MCPServer, sess *ActiveSession) {
	srv.AddResource(
		mcp.NewResource(
			fmt.Sprintf("session://%s/analysis", sess.ID),
			fmt.Sprintf("Motion analysis (%s)", sess.ID),
			mcp.WithResourceDescription("Structured motion analysis for the session's clip"),
			mcp.WithMIMEType("text/markdown"),
		),
		fileResource(sess.WS.AnalysisPath(), "text/markdown"),
	)

	srv.AddResource(
		mcp.NewResource(
			fmt.Sprintf("session://%s/component", sess.ID),
			fmt.Sprintf("Component draft (%s)", sess.ID),
			mcp.WithResourceDescription("Current React component draft"),
			mcp.WithMIMEType("text/plain"),
		),
		fileResource(sess.WS.ComponentPath(), "text/plain"),
	)
}

func fileResource(path, mimeType string) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: mimeType,
				Text:     string(b),
			},
		}, nil
	}
}

func mcpGetAnalysis(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		sess, err := deps.Sessions.Get(id)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		if sess.Spec == nil {
			return mcpError("no analysis available for this session"), nil
		}
		return mcpText(sess.Spec.Raw), nil
	}
}

func mcpGetComponent(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		sess, err := deps.Sessions.Get(id)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(sess.State.Source), nil
	}
}

func mcpSubmitFeedback(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		rating := req.GetString("rating", "")
		tags := req.GetStringSlice("tags", nil)
		detail := req.GetString("detail", "")

		sess, err := deps.Sessions.Feedback(ctx, id, rating, tags, detail)
		if err != nil {
			return mcpError(fmt.Sprintf("feedback failed: %v", err)), nil
		}

		switch sess.State.Phase {
		case iterate.PhaseApproved:
			return replyJSON(sess, "approved; use export_component to copy it out", false), nil
		case iterate.PhaseAborted:
			return replyJSON(sess, "session aborted, scratch files removed", false), nil
		case iterate.PhaseAwaitingDetail:
			return replyJSON(sess, "call submit_feedback again with tags and detail", false), nil
		default:
			return replyJSON(sess, "revised draft ready; rate it with submit_feedback", true), nil
		}
	}
}

func mcpAbortSession(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		if err := deps.Sessions.Abort(id); err != nil {
			return mcpError(fmt.Sprintf("abort failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("session %s aborted, scratch files removed", id)), nil
	}
}

func mcpExportComponent(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		dest, err := req.RequireString("dest")
		if err != nil {
			return mcpError("dest is required"), nil
		}
		name := req.GetString("name", "")
		force := req.GetBool("force", false)

		path, err := deps.Sessions.Export(id, dest, name, force)
		if err != nil {
			return mcpError(fmt.Sprintf("export failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("exported to %s", path)), nil
	}
}

func mcpListSessions(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}

		sessions, err := deps.Store.ListRecentSessions(limit)
		if err != nil {
			return mcpError(fmt.Sprintf("listing sessions: %v", err)), nil
		}

		type sessionSummary struct {
			ID         string `json:"id"`
			CreatedAt  string `json:"created_at"`
			Source     string `json:"source"`
			Status     string `json:"status"`
			Iterations int    `json:"iterations"`
		}
		summaries := make([]sessionSummary, len(sessions))
		for i, s := range sessions {
			summaries[i] = sessionSummary{
				ID:         s.ID,
				CreatedAt:  s.CreatedAt.Format(time.RFC3339),
				Source:     s.SourceRef,
				Status:     s.Status,
				Iterations: s.Iterations,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal sessions: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
