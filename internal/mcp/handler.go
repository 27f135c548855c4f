package mcp

import (
	"encoding/json"
	"fmt"
)

const defaultListLimit = 20

// Handler handles MCP tool calls using the HTTP client
type Handler struct {
	client *Client
}

// NewHandler creates a new MCP handler
func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// HandleToolCall handles a tool call and returns the result
func (h *Handler) HandleToolCall(name string, args map[string]interface{}) (interface{}, error) {
	switch name {
	case "board_list_messages":
		return h.handleListMessages(args)
	case "board_get_stats":
		return h.handleGetStats(args)
	case "board_get_display":
		return h.handleGetDisplay(args)
	case "board_promote_message":
		return h.handlePromote(args)
	case "board_demote_message":
		return h.handleDemote(args)
	case "board_next":
		return h.handleNext(args)
	case "board_previous":
		return h.handlePrevious(args)
	case "board_add_phone_message":
		return h.handleAddPhoneMessage(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// ============ Message Handlers ============

func (h *Handler) handleListMessages(args map[string]interface{}) (interface{}, error) {
	platform := getStringArg(args, "platform", "")
	query := getStringArg(args, "query", "")
	limit := getIntArg(args, "limit", defaultListLimit)

	messages, err := h.client.ListMessages(platform, query)
	if err != nil {
		return nil, err
	}
	total := len(messages)
	if limit > 0 && len(messages) > limit {
		messages = messages[:limit]
	}

	return map[string]interface{}{
		"messages": messages,
		"total":    total,
	}, nil
}

func (h *Handler) handleGetStats(args map[string]interface{}) (interface{}, error) {
	counts, err := h.client.Stats()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"counts": counts}, nil
}

func (h *Handler) handleAddPhoneMessage(args map[string]interface{}) (interface{}, error) {
	sender := getStringArg(args, "sender", "")
	content := getStringArg(args, "content", "")
	if sender == "" || content == "" {
		return nil, fmt.Errorf("sender and content are required")
	}

	promote, _ := args["promote"].(bool)
	msg, err := h.client.AddPhoneMessage(PhoneMessage{
		Sender:      sender,
		Content:     content,
		PhoneNumber: getStringArg(args, "phone_number", ""),
		City:        getStringArg(args, "city", ""),
		State:       getStringArg(args, "state", ""),
		MessageType: getStringArg(args, "message_type", ""),
		Promote:     promote,
	})
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"success":  true,
		"message":  msg,
		"promoted": promote,
	}, nil
}

// ============ Display Handlers ============

func (h *Handler) handleGetDisplay(args map[string]interface{}) (interface{}, error) {
	return h.client.GetDisplay()
}

func (h *Handler) handlePromote(args map[string]interface{}) (interface{}, error) {
	id := getStringArg(args, "message_id", "")
	if id == "" {
		return nil, fmt.Errorf("message_id is required")
	}
	if err := h.client.Promote(id); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Message %s is on screen", id),
	}, nil
}

func (h *Handler) handleDemote(args map[string]interface{}) (interface{}, error) {
	id := getStringArg(args, "message_id", "")
	if id == "" {
		return nil, fmt.Errorf("message_id is required")
	}
	if err := h.client.Demote(id); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Removed %s from the display queue", id),
	}, nil
}

func (h *Handler) handleNext(args map[string]interface{}) (interface{}, error) {
	return h.client.Next()
}

func (h *Handler) handlePrevious(args map[string]interface{}) (interface{}, error) {
	return h.client.Previous()
}

// ============ Helpers ============

func getStringArg(args map[string]interface{}, key, defaultValue string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return defaultValue
}

func getIntArg(args map[string]interface{}, key string, defaultValue int) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	if v, ok := args[key].(int); ok {
		return v
	}
	return defaultValue
}

// FormatToolResult formats a tool result for MCP response
func FormatToolResult(result interface{}, isError bool) map[string]interface{} {
	content := ""
	if result != nil {
		if jsonBytes, err := json.Marshal(result); err == nil {
			content = string(jsonBytes)
		} else {
			content = fmt.Sprintf("%v", result)
		}
	}

	return map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": content,
			},
		},
		"isError": isError,
	}
}
