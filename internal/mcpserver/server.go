// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes contact and schedule tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/david8015838-create/nexus-mind/internal/codec"
	"github.com/david8015838-create/nexus-mind/internal/contactservice"
	"github.com/david8015838-create/nexus-mind/internal/models"
)

// Server wraps the MCP server with contact tools.
type Server struct {
	mcp *server.MCPServer
	svc *contactservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *contactservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"NexusMind",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_contacts",
		mcp.WithDescription("Full-text search through contact names, companies, bios, and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchContacts)

	s.mcp.AddTool(mcp.NewTool("get_contact",
		mcp.WithDescription("Read the full record of a contact, including memories and events."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Contact id")),
	), s.getContact)

	s.mcp.AddTool(mcp.NewTool("create_contact",
		mcp.WithDescription("Create a contact from a JSON card. The card MUST follow the "+
			"canonical card format (dates as ISO-8601 strings with millisecond precision). "+
			"Read the contract first via the get_card_contract tool or the "+
			"nexusmind://card-format resource."),
		mcp.WithString("card", mcp.Required(), mcp.Description("JSON card following the card format contract")),
	), s.createContact)

	s.mcp.AddTool(mcp.NewTool("add_memory",
		mcp.WithDescription("Append a dated memory to an existing contact."),
		mcp.WithString("contact_id", mcp.Required(), mcp.Description("Contact id")),
		mcp.WithString("content", mcp.Required(), mcp.Description("What to remember")),
		mcp.WithString("location", mcp.Description("Optional location")),
	), s.addMemory)

	s.mcp.AddTool(mcp.NewTool("upcoming_schedules",
		mcp.WithDescription("List the next schedules from now, with participant names resolved."),
		mcp.WithNumber("limit", mcp.Description("Max results (default 10)")),
	), s.upcomingSchedules)

	s.mcp.AddTool(mcp.NewTool("get_card_contract",
		mcp.WithDescription("Returns the canonical JSON card format contract. "+
			"Call this before creating contacts to ensure correct structure."),
	), s.getCardContract)

	// Resource: card format contract.
	s.mcp.AddResource(
		mcp.NewResource("nexusmind://card-format", "Card Format Contract",
			mcp.WithResourceDescription("Canonical JSON card format that contact records must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCardFormatResource,
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

func (s *Server) searchContacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.SearchContacts(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getContact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.GetContact(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(c, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createContact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	card, err := req.RequireString("card")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(card), &doc); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("card is not valid JSON: %v", err)), nil
	}
	var c models.Contact
	if err := codec.DecodeInto(doc, &c); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	created, err := s.svc.CreateContact(ctx, c)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", created.Name, created.ID)), nil
}

func (s *Server) addMemory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contactID, err := req.RequireString("contact_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m := models.Memory{Content: content}
	if loc, err := req.RequireString("location"); err == nil {
		m.Location = loc
	}

	c, err := s.svc.AddMemory(ctx, contactID, m)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("memory added to %s (%d total)", c.Name, len(c.Memories))), nil
}

func (s *Server) upcomingSchedules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 10)

	schedules, err := s.svc.UpcomingSchedules(ctx, time.Now(), limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	type entry struct {
		models.Schedule
		Participants []string `json:"participants"`
	}
	entries := make([]entry, 0, len(schedules))
	for _, sc := range schedules {
		names, nameErr := s.svc.ParticipantNames(ctx, sc)
		if nameErr != nil {
			names = nil
		}
		entries = append(entries, entry{Schedule: sc, Participants: names})
	}
	out, _ := json.MarshalIndent(entries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getCardContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CardFormatContract), nil
}

func (s *Server) readCardFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "nexusmind://card-format",
			MIMEType: "text/markdown",
			Text:     CardFormatContract,
		},
	}, nil
}
