// Package whatsapp talks to the WhatsApp Business Cloud (Graph) API and
// parses its webhook payloads.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GraphClient is a minimal Graph API client for one business phone number
type GraphClient struct {
	baseURL       string
	phoneNumberID string
	accessToken   string
	httpClient    *http.Client
}

// NewGraphClient creates a Graph API client
func NewGraphClient(baseURL, phoneNumberID, accessToken string) *GraphClient {
	return &GraphClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

// PhoneNumber is the business phone number profile
type PhoneNumber struct {
	ID                 string `json:"id"`
	DisplayPhoneNumber string `json:"display_phone_number"`
	VerifiedName       string `json:"verified_name"`
}

// SendResult is the reply to a send request
type SendResult struct {
	MessagingProduct string `json:"messaging_product"`
	Messages         []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// VerifyPhoneNumber fetches the configured phone number; it fails when the
// token or the id is wrong.
func (c *GraphClient) VerifyPhoneNumber(ctx context.Context) (*PhoneNumber, error) {
	var result PhoneNumber
	if err := c.do(ctx, http.MethodGet, "/"+c.phoneNumberID, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SendText sends a plain text message
func (c *GraphClient) SendText(ctx context.Context, to, text string) (*SendResult, error) {
	body := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	var result SendResult
	if err := c.do(ctx, http.MethodPost, "/"+c.phoneNumberID+"/messages", body, &result); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return &result, nil
}

// ProfilePicture returns the contact's picture URL, or "" when unavailable
func (c *GraphClient) ProfilePicture(ctx context.Context, phone string) string {
	var result struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodGet, "/"+phone+"/profile_pic", nil, &result); err != nil {
		return ""
	}
	return result.URL
}

func (c *GraphClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, graphErrorMessage(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func graphErrorMessage(body []byte) string {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return string(body)
}
