package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
)

func TestHandleToolCall_ListMessages(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/messages" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]interface{}{
			"messages": []domain.Message{
				{ID: "m1", Sender: "Ana", Content: "Hello", Platform: domain.PlatformYouTube},
				{ID: "m2", Sender: "Ben", Content: "Amen", Platform: domain.PlatformYouTube},
				{ID: "m3", Sender: "Cal", Content: "Hi", Platform: domain.PlatformYouTube},
			},
		})
	}))
	defer server.Close()

	handler := NewHandler(NewClient(server.URL))

	result, err := handler.HandleToolCall("board_list_messages", map[string]interface{}{
		"platform": "youtube",
		"query":    "a",
		"limit":    float64(2),
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !strings.Contains(gotQuery, "platform=youtube") || !strings.Contains(gotQuery, "q=a") {
		t.Errorf("Expected platform and q in query, got %q", gotQuery)
	}

	resultMap := result.(map[string]interface{})
	messages := resultMap["messages"].([]domain.Message)
	if len(messages) != 2 {
		t.Errorf("Expected 2 messages, got %d", len(messages))
	}
	if resultMap["total"] != 3 {
		t.Errorf("Expected total 3, got %v", resultMap["total"])
	}
}

func TestHandleToolCall_PromoteMessage(t *testing.T) {
	var gotPath, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	}))
	defer server.Close()

	handler := NewHandler(NewClient(server.URL))

	result, err := handler.HandleToolCall("board_promote_message", map[string]interface{}{
		"message_id": "yt-42",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/messages/yt-42/promote" {
		t.Errorf("Expected POST /api/messages/yt-42/promote, got %s %s", gotMethod, gotPath)
	}
	if result.(map[string]interface{})["success"] != true {
		t.Error("Expected success to be true")
	}
}

func TestHandleToolCall_PromoteMessage_MissingID(t *testing.T) {
	handler := NewHandler(NewClient("http://localhost:0"))

	_, err := handler.HandleToolCall("board_promote_message", map[string]interface{}{})
	if err == nil {
		t.Error("Expected error for missing message_id")
	}
}

func TestHandleToolCall_PromoteMessage_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"message not found"}`))
	}))
	defer server.Close()

	handler := NewHandler(NewClient(server.URL))

	_, err := handler.HandleToolCall("board_promote_message", map[string]interface{}{"message_id": "nope"})
	if err == nil {
		t.Fatal("Expected error for unknown message")
	}
	if !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("Expected HTTP 404 in error, got %v", err)
	}
}

func TestHandleToolCall_DemoteMessage(t *testing.T) {
	var gotPath, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	}))
	defer server.Close()

	handler := NewHandler(NewClient(server.URL))

	if _, err := handler.HandleToolCall("board_demote_message", map[string]interface{}{"message_id": "wa-1"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/display/wa-1" {
		t.Errorf("Expected DELETE /api/display/wa-1, got %s %s", gotMethod, gotPath)
	}
}

func TestHandleToolCall_Rotation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursor := 0
		switch r.URL.Path {
		case "/api/display/next":
			cursor = 1
		case "/api/display/previous":
			cursor = 0
		case "/api/display":
			cursor = 0
		default:
			http.NotFound(w, r)
			return
		}
		msgs := []domain.Message{{ID: "a"}, {ID: "b"}}
		json.NewEncoder(w).Encode(domain.DisplayQueue{Messages: msgs, Cursor: cursor, Current: &msgs[cursor]})
	}))
	defer server.Close()

	handler := NewHandler(NewClient(server.URL))

	result, err := handler.HandleToolCall("board_next", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	queue := result.(*domain.DisplayQueue)
	if queue.Cursor != 1 || queue.Current == nil || queue.Current.ID != "b" {
		t.Errorf("Expected cursor 1 on b, got %d", queue.Cursor)
	}

	result, err = handler.HandleToolCall("board_previous", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if q := result.(*domain.DisplayQueue); q.Cursor != 0 {
		t.Errorf("Expected cursor 0, got %d", q.Cursor)
	}

	result, err = handler.HandleToolCall("board_get_display", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if q := result.(*domain.DisplayQueue); len(q.Messages) != 2 {
		t.Errorf("Expected 2 queued messages, got %d", len(q.Messages))
	}
}

func TestHandleToolCall_AddPhoneMessage(t *testing.T) {
	var body PhoneMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/phone-messages" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"message": domain.Message{ID: "phone-1", Sender: body.Sender, Content: body.Content, Platform: domain.PlatformPhone},
		})
	}))
	defer server.Close()

	handler := NewHandler(NewClient(server.URL))

	result, err := handler.HandleToolCall("board_add_phone_message", map[string]interface{}{
		"sender":  "Dana",
		"content": "Greetings from Lagos",
		"city":    "Lagos",
		"promote": true,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if body.City != "Lagos" || !body.Promote {
		t.Errorf("Expected city and promote forwarded, got %+v", body)
	}
	msg := result.(map[string]interface{})["message"].(*domain.Message)
	if msg.ID != "phone-1" {
		t.Errorf("Expected id phone-1, got %s", msg.ID)
	}
}

func TestHandleToolCall_AddPhoneMessage_MissingContent(t *testing.T) {
	handler := NewHandler(NewClient("http://localhost:0"))

	_, err := handler.HandleToolCall("board_add_phone_message", map[string]interface{}{"sender": "Dana"})
	if err == nil {
		t.Error("Expected error for missing content")
	}
}

func TestHandleToolCall_UnknownTool(t *testing.T) {
	handler := NewHandler(NewClient("http://localhost:0"))

	_, err := handler.HandleToolCall("unknown_tool", nil)
	if err == nil {
		t.Error("Expected error for unknown tool")
	}
}

func TestGetStringArg(t *testing.T) {
	args := map[string]interface{}{
		"key1": "value1",
		"key2": "",
	}

	if v := getStringArg(args, "key1", "default"); v != "value1" {
		t.Errorf("Expected 'value1', got '%s'", v)
	}
	if v := getStringArg(args, "key2", "default"); v != "default" {
		t.Errorf("Expected 'default' for empty string, got '%s'", v)
	}
	if v := getStringArg(args, "missing", "default"); v != "default" {
		t.Errorf("Expected 'default' for missing key, got '%s'", v)
	}
}

func TestGetIntArg(t *testing.T) {
	args := map[string]interface{}{
		"float": float64(42),
		"int":   10,
	}

	if v := getIntArg(args, "float", 0); v != 42 {
		t.Errorf("Expected 42, got %d", v)
	}
	if v := getIntArg(args, "int", 0); v != 10 {
		t.Errorf("Expected 10, got %d", v)
	}
	if v := getIntArg(args, "missing", 99); v != 99 {
		t.Errorf("Expected 99 for missing key, got %d", v)
	}
}

func TestFormatToolResult(t *testing.T) {
	result := FormatToolResult(map[string]string{"key": "value"}, false)

	if result["isError"] != false {
		t.Error("Expected isError to be false")
	}
	content := result["content"].([]map[string]interface{})
	if len(content) != 1 {
		t.Errorf("Expected 1 content item, got %d", len(content))
	}
	if content[0]["type"] != "text" {
		t.Errorf("Expected type 'text', got '%s'", content[0]["type"])
	}

	if errResult := FormatToolResult("error", true); errResult["isError"] != true {
		t.Error("Expected isError to be true")
	}
}

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()
	if len(tools) == 0 {
		t.Fatal("Expected non-empty tool definitions")
	}

	names := make(map[string]bool)
	for _, tool := range tools {
		if tool.Name == "" {
			t.Error("Tool missing name")
		}
		if tool.Description == "" {
			t.Errorf("Tool %s missing description", tool.Name)
		}
		if tool.InputSchema == nil {
			t.Errorf("Tool %s missing inputSchema", tool.Name)
		}
		names[tool.Name] = true
	}

	for _, name := range []string{
		"board_list_messages",
		"board_get_stats",
		"board_get_display",
		"board_promote_message",
		"board_demote_message",
		"board_next",
		"board_previous",
		"board_add_phone_message",
	} {
		if !names[name] {
			t.Errorf("Missing expected tool: %s", name)
		}
	}
}

func TestServer_CallTool(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stats" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"counts": []domain.PlatformStats{{Platform: domain.PlatformWhatsApp, Count: 4}},
		})
	}))
	defer api.Close()

	ctx := context.Background()
	srv := NewServer(api.URL, "test")
	clientTransport, serverTransport := sdk.NewInMemoryTransports()

	ss, err := srv.GetServer().Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer ss.Close()

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer cs.Close()

	res, err := cs.CallTool(ctx, &sdk.CallToolParams{Name: "board_get_stats", Arguments: map[string]interface{}{}})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("Expected success, got error result")
	}
	text, ok := res.Content[0].(*sdk.TextContent)
	if !ok {
		t.Fatalf("Expected text content, got %T", res.Content[0])
	}
	if !strings.Contains(text.Text, `"count":4`) {
		t.Errorf("Expected count in result, got %s", text.Text)
	}

	res, err = cs.CallTool(ctx, &sdk.CallToolParams{Name: "board_promote_message", Arguments: map[string]interface{}{"message_id": ""}})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !res.IsError {
		t.Error("Expected error result for empty message_id")
	}
}
