package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/biz/repo"
	"github.com/DevRickLin/whats-live/internal/infra/commentapi"
)

const (
	youtubeConnectPage = 20
	youtubeRefreshPage = 10
	youtubeMorePage    = 20
)

// CommentFetcher is the comment-fetch service used by the YouTube adapter
type CommentFetcher interface {
	GetComments(ctx context.Context, videoID string, maxResults int, pageToken string) (*commentapi.Response, error)
	Ping(ctx context.Context) error
}

// YouTubeAdapter reads live video comments through the comment-fetch service
type YouTubeAdapter struct {
	api CommentFetcher

	mu    sync.Mutex
	pages map[string]string // connection id -> next page token
}

// NewYouTubeAdapter creates a YouTube adapter
func NewYouTubeAdapter(api CommentFetcher) *YouTubeAdapter {
	return &YouTubeAdapter{
		api:   api,
		pages: make(map[string]string),
	}
}

func (a *YouTubeAdapter) Platform() domain.Platform { return domain.PlatformYouTube }

// Connect accepts a video URL or id and loads the first page of comments
func (a *YouTubeAdapter) Connect(ctx context.Context, req repo.ConnectRequest) (*domain.Connection, []domain.Message, error) {
	videoID, err := commentapi.ExtractVideoID(req.Identifier)
	if err != nil {
		if errors.Is(err, commentapi.ErrInvalidVideoURL) {
			return nil, nil, domain.NewValidationError("identifier", "invalid YouTube URL")
		}
		return nil, nil, err
	}

	if err := a.api.Ping(ctx); err != nil {
		return nil, nil, err
	}

	resp, err := a.api.GetComments(ctx, videoID, youtubeConnectPage, "")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch comments: %w", err)
	}

	conn := &domain.Connection{
		Platform:    domain.PlatformYouTube,
		IsConnected: true,
		AccountName: accountName(req.AccountName, "YouTube "+videoID),
		StreamID:    videoID,
	}
	conn.ConnectionID = domain.NewConnectionID(conn)

	a.setPage(conn.ConnectionID, resp.Pagination)
	return conn, commentsToMessages(*conn, resp.Comments), nil
}

// Refresh re-reads the newest page; duplicates are dropped by the board
func (a *YouTubeAdapter) Refresh(ctx context.Context, conn domain.Connection) ([]domain.Message, error) {
	resp, err := a.api.GetComments(ctx, conn.StreamID, youtubeRefreshPage, "")
	if err != nil {
		return nil, err
	}
	return commentsToMessages(conn, resp.Comments), nil
}

// LoadMore fetches the next older page
func (a *YouTubeAdapter) LoadMore(ctx context.Context, conn domain.Connection) ([]domain.Message, error) {
	a.mu.Lock()
	token, ok := a.pages[conn.ConnectionID]
	a.mu.Unlock()
	if !ok || token == "" {
		return nil, domain.ErrNoMorePages
	}

	resp, err := a.api.GetComments(ctx, conn.StreamID, youtubeMorePage, token)
	if err != nil {
		return nil, err
	}
	a.setPage(conn.ConnectionID, resp.Pagination)
	return commentsToMessages(conn, resp.Comments), nil
}

func (a *YouTubeAdapter) Disconnect(ctx context.Context, conn domain.Connection) error {
	a.mu.Lock()
	delete(a.pages, conn.ConnectionID)
	a.mu.Unlock()
	return nil
}

// HasMore reports whether LoadMore can return another page
func (a *YouTubeAdapter) HasMore(connectionID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pages[connectionID] != ""
}

func (a *YouTubeAdapter) setPage(connectionID string, p commentapi.Pagination) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p.HasNextPage && p.NextPageToken != "" {
		a.pages[connectionID] = p.NextPageToken
	} else {
		delete(a.pages, connectionID)
	}
}

func commentsToMessages(conn domain.Connection, comments []commentapi.Comment) []domain.Message {
	msgs := make([]domain.Message, 0, len(comments))
	for _, c := range comments {
		top := c.TopLevelComment
		msgs = append(msgs, domain.Message{
			ID:           fmt.Sprintf("yt-%s-%s", conn.ConnectionID, c.ID),
			Sender:       top.Author.Name,
			SenderAvatar: top.Author.ProfileImageURL,
			Content:      top.Text,
			Timestamp:    top.PublishedAt,
			Platform:     domain.PlatformYouTube,
			ConnectionID: conn.ConnectionID,
			PlatformData: &domain.PlatformData{
				ProfileURL:  top.Author.ChannelURL,
				ChannelName: top.Author.Name,
				ChannelID:   top.Author.ChannelID,
				Likes:       top.LikeCount,
				ExternalID:  c.ID,
			},
		})
	}
	return msgs
}
