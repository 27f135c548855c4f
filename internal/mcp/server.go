package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server exposes the board tools over MCP
type Server struct {
	server  *sdk.Server
	handler *Handler
}

// NewServer creates an MCP server backed by the board API at baseURL
func NewServer(baseURL, version string) *Server {
	s := &Server{
		server: sdk.NewServer(&sdk.Implementation{
			Name:    "whats-live-board",
			Version: version,
		}, nil),
		handler: NewHandler(NewClient(baseURL)),
	}
	s.registerTools()
	return s
}

// ListMessagesInput is the input for board_list_messages
type ListMessagesInput struct {
	Platform string `json:"platform,omitempty" jsonschema:"platform to filter by, omit for all"`
	Query    string `json:"query,omitempty" jsonschema:"text matched against sender and content"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of messages (default 20)"`
}

// MessageIDInput names a stored message
type MessageIDInput struct {
	MessageID string `json:"message_id" jsonschema:"the message id"`
}

// PhoneMessageInput is the input for board_add_phone_message
type PhoneMessageInput struct {
	Sender      string `json:"sender" jsonschema:"caller name"`
	Content     string `json:"content" jsonschema:"what the caller said"`
	PhoneNumber string `json:"phone_number,omitempty" jsonschema:"caller phone number"`
	City        string `json:"city,omitempty" jsonschema:"caller city"`
	State       string `json:"state,omitempty" jsonschema:"caller state or region"`
	MessageType string `json:"message_type,omitempty" jsonschema:"normal or prayer or testimony"`
	Promote     bool   `json:"promote,omitempty" jsonschema:"put the message on screen"`
}

// NoInput is used by tools without arguments
type NoInput struct{}

func (s *Server) registerTools() {
	defs := make(map[string]ToolDefinition)
	for _, def := range GetToolDefinitions() {
		defs[def.Name] = def
	}

	addTool[ListMessagesInput](s, defs["board_list_messages"])
	addTool[NoInput](s, defs["board_get_stats"])
	addTool[NoInput](s, defs["board_get_display"])
	addTool[MessageIDInput](s, defs["board_promote_message"])
	addTool[MessageIDInput](s, defs["board_demote_message"])
	addTool[NoInput](s, defs["board_next"])
	addTool[NoInput](s, defs["board_previous"])
	addTool[PhoneMessageInput](s, defs["board_add_phone_message"])
}

// addTool registers def with a typed input; the call is routed through Handler
func addTool[In any](s *Server, def ToolDefinition) {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        def.Name,
		Description: def.Description,
	}, func(ctx context.Context, req *sdk.CallToolRequest, input In) (*sdk.CallToolResult, any, error) {
		args, err := toArgs(input)
		if err != nil {
			return nil, nil, err
		}
		result, err := s.handler.HandleToolCall(def.Name, args)
		if err != nil {
			return textResult(err.Error(), true), nil, nil
		}
		data, err := json.Marshal(result)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return textResult(string(data), false), nil, nil
	})
}

func toArgs(input interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal arguments: %w", err)
	}
	args := make(map[string]interface{})
	if err := json.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}
	return args, nil
}

func textResult(text string, isError bool) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: text}},
		IsError: isError,
	}
}

// Run starts the MCP server with stdio transport
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &sdk.StdioTransport{})
}

// GetServer returns the underlying MCP server
func (s *Server) GetServer() *sdk.Server {
	return s.server
}
