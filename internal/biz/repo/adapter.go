package repo

import (
	"context"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
)

// ConnectRequest is the operator's input when connecting a platform
type ConnectRequest struct {
	Identifier  string // video URL/id, page id, chat id or phone number
	AccountName string
}

// Adapter produces messages for one platform
type Adapter interface {
	Platform() domain.Platform

	// Connect establishes a connection and returns the initial messages.
	// The returned connection may omit ConnectionID; messages are re-tagged by the caller.
	Connect(ctx context.Context, req ConnectRequest) (*domain.Connection, []domain.Message, error)

	// Refresh fetches newer messages for an established connection
	Refresh(ctx context.Context, conn domain.Connection) ([]domain.Message, error)

	// Disconnect tears down adapter-side state for the connection
	Disconnect(ctx context.Context, conn domain.Connection) error
}

// Pager is implemented by adapters that can page older messages
type Pager interface {
	LoadMore(ctx context.Context, conn domain.Connection) ([]domain.Message, error)
}

// Classifier assigns a message type from content
type Classifier interface {
	Classify(ctx context.Context, content string) (domain.MessageType, error)
}
