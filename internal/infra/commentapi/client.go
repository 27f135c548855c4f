// Package commentapi is the client for the external YouTube comment-fetch service.
package commentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/ratelimit"
)

// Comment is one top-level comment thread
type Comment struct {
	ID              string          `json:"id"`
	TopLevelComment TopLevelComment `json:"topLevelComment"`
	Replies         []Comment       `json:"replies,omitempty"`
}

// TopLevelComment is the comment body
type TopLevelComment struct {
	Text        string    `json:"text"`
	Author      Author    `json:"author"`
	PublishedAt time.Time `json:"publishedAt"`
	LikeCount   int       `json:"likeCount"`
}

// Author is the comment author
type Author struct {
	Name            string `json:"name"`
	ProfileImageURL string `json:"profileImageUrl"`
	ChannelURL      string `json:"channelUrl"`
	ChannelID       string `json:"channelId"`
}

// Pagination carries the cursor for the next page
type Pagination struct {
	NextPageToken string `json:"nextPageToken,omitempty"`
	HasNextPage   bool   `json:"hasNextPage"`
}

// Response is the service reply
type Response struct {
	Success       bool       `json:"success"`
	VideoID       string     `json:"videoId"`
	TotalComments int        `json:"totalComments"`
	Comments      []Comment  `json:"comments"`
	Pagination    Pagination `json:"pagination"`
	Error         string     `json:"error,omitempty"`
}

type request struct {
	VideoID    string  `json:"videoId"`
	PageToken  *string `json:"pageToken"`
	MaxResults int     `json:"maxResults"`
}

// Client calls the comment-fetch service. Requests are paced, never retried.
type Client struct {
	apiURL     string
	httpClient *http.Client
	limiter    ratelimit.Limiter
}

// NewClient creates a client. ratePerSecond <= 0 disables pacing.
func NewClient(apiURL string, timeout time.Duration, ratePerSecond int) *Client {
	limiter := ratelimit.NewUnlimited()
	if ratePerSecond > 0 {
		limiter = ratelimit.New(ratePerSecond)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// GetComments fetches one page of comments. An empty pageToken requests the first page.
func (c *Client) GetComments(ctx context.Context, videoID string, maxResults int, pageToken string) (*Response, error) {
	body := request{VideoID: videoID, MaxResults: maxResults}
	if pageToken != "" {
		body.PageToken = &pageToken
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}

	c.limiter.Take()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP POST failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP error! status: %d", resp.StatusCode)
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !result.Success {
		if result.Error == "" {
			return nil, errors.New("unknown API error")
		}
		return nil, errors.New(result.Error)
	}
	return &result, nil
}

// Ping checks that the service is reachable. Any answer below 500 counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("comment service unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("comment service unavailable: HTTP %d", resp.StatusCode)
	}
	return nil
}

var bareVideoID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ErrInvalidVideoURL is returned when no video id can be extracted
var ErrInvalidVideoURL = errors.New("invalid video URL")

// ExtractVideoID accepts youtube.com/watch?v=, youtu.be/<id>, /live/<id> or a bare id
func ExtractVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if bareVideoID.MatchString(raw) {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", ErrInvalidVideoURL
	}

	var id string
	host := strings.ToLower(u.Hostname())
	switch {
	case strings.Contains(host, "youtube.com"):
		id = u.Query().Get("v")
		if id == "" {
			parts := strings.Split(strings.Trim(u.Path, "/"), "/")
			if len(parts) == 2 && (parts[0] == "live" || parts[0] == "shorts") {
				id = parts[1]
			}
		}
	case strings.Contains(host, "youtu.be"):
		id = strings.Trim(u.Path, "/")
	}

	if id == "" {
		return "", ErrInvalidVideoURL
	}
	return id, nil
}
