package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
)

// Client is the HTTP client for the board API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new MCP client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// PhoneMessage is a phone-in message as typed by an operator
type PhoneMessage struct {
	Sender      string `json:"sender"`
	Content     string `json:"content"`
	PhoneNumber string `json:"phone_number,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	MessageType string `json:"message_type,omitempty"`
	Promote     bool   `json:"promote,omitempty"`
}

// ============ Messages ============

// ListMessages lists stored messages, optionally filtered by platform and search text
func (c *Client) ListMessages(platform, search string) ([]domain.Message, error) {
	q := url.Values{}
	if platform != "" {
		q.Set("platform", platform)
	}
	if search != "" {
		q.Set("q", search)
	}
	path := "/api/messages"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var result struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := c.get(path, &result); err != nil {
		return nil, err
	}
	return result.Messages, nil
}

// AddPhoneMessage records a phone-in message
func (c *Client) AddPhoneMessage(msg PhoneMessage) (*domain.Message, error) {
	var result struct {
		Message domain.Message `json:"message"`
	}
	if err := c.post("/api/phone-messages", msg, &result); err != nil {
		return nil, err
	}
	return &result.Message, nil
}

// ============ Display Queue ============

// GetDisplay returns the display queue
func (c *Client) GetDisplay() (*domain.DisplayQueue, error) {
	var queue domain.DisplayQueue
	if err := c.get("/api/display", &queue); err != nil {
		return nil, err
	}
	return &queue, nil
}

// Promote puts a stored message on the display queue
func (c *Client) Promote(messageID string) error {
	return c.post(fmt.Sprintf("/api/messages/%s/promote", url.PathEscape(messageID)), struct{}{}, nil)
}

// Demote removes a message from the display queue
func (c *Client) Demote(messageID string) error {
	return c.delete(fmt.Sprintf("/api/display/%s", url.PathEscape(messageID)))
}

// Next advances the rotation cursor
func (c *Client) Next() (*domain.DisplayQueue, error) {
	var queue domain.DisplayQueue
	if err := c.post("/api/display/next", struct{}{}, &queue); err != nil {
		return nil, err
	}
	return &queue, nil
}

// Previous moves the rotation cursor back
func (c *Client) Previous() (*domain.DisplayQueue, error) {
	var queue domain.DisplayQueue
	if err := c.post("/api/display/previous", struct{}{}, &queue); err != nil {
		return nil, err
	}
	return &queue, nil
}

// Stats returns message counts per platform
func (c *Client) Stats() ([]domain.PlatformStats, error) {
	var result struct {
		Counts []domain.PlatformStats `json:"counts"`
	}
	if err := c.get("/api/stats", &result); err != nil {
		return nil, err
	}
	return result.Counts, nil
}

// ============ HTTP Helpers ============

func (c *Client) get(path string, result interface{}) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("HTTP GET failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) post(path string, body interface{}, result interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("HTTP POST failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) delete(path string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP DELETE failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
