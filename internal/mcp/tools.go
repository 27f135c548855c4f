package mcp

// ToolDefinition represents an MCP tool definition
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetToolDefinitions returns all available MCP tool definitions
func GetToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "board_list_messages",
			Description: "List incoming live-event messages, newest first. Optionally filter by platform or search text.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"platform": map[string]interface{}{
						"type":        "string",
						"description": "facebook, instagram, youtube, whatsapp, phone or feishu. Omit for all platforms.",
					},
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Case-insensitive text matched against sender and content",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of messages to return (default 20)",
					},
				},
			},
		},
		{
			Name:        "board_get_stats",
			Description: "Get the number of stored messages per platform.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "board_get_display",
			Description: "Get the display queue and the message currently on screen.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "board_promote_message",
			Description: "Put a message on the display queue and record it in the history. It becomes the message on screen.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"message_id": map[string]interface{}{
						"type":        "string",
						"description": "The id of the message to promote",
					},
				},
				"required": []string{"message_id"},
			},
		},
		{
			Name:        "board_demote_message",
			Description: "Take a message off the display queue. History is kept.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"message_id": map[string]interface{}{
						"type":        "string",
						"description": "The id of the message to remove from the queue",
					},
				},
				"required": []string{"message_id"},
			},
		},
		{
			Name:        "board_next",
			Description: "Show the next message in the display queue, wrapping to the first.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "board_previous",
			Description: "Show the previous message in the display queue, wrapping to the last.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "board_add_phone_message",
			Description: "Record a message phoned in by a viewer. Set promote to put it on screen straight away.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"sender": map[string]interface{}{
						"type":        "string",
						"description": "Caller name",
					},
					"content": map[string]interface{}{
						"type":        "string",
						"description": "What the caller said",
					},
					"phone_number": map[string]interface{}{
						"type":        "string",
						"description": "Caller phone number",
					},
					"city": map[string]interface{}{
						"type":        "string",
						"description": "Caller city",
					},
					"state": map[string]interface{}{
						"type":        "string",
						"description": "Caller state or region",
					},
					"message_type": map[string]interface{}{
						"type":        "string",
						"description": "normal, prayer or testimony",
					},
					"promote": map[string]interface{}{
						"type":        "boolean",
						"description": "Promote the message to the display queue",
					},
				},
				"required": []string{"sender", "content"},
			},
		},
	}
}
