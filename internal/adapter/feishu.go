package adapter

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/biz/repo"
	"github.com/DevRickLin/whats-live/internal/infra/feishu"
	"github.com/DevRickLin/whats-live/internal/log"
)

const feishuHistoryPage = 20

// ChatSource is the Feishu API surface used by the adapter
type ChatSource interface {
	GetChatHistory(ctx context.Context, chatID string, pageSize int) ([]*feishu.Message, error)
	GetChatInfo(ctx context.Context, chatID string) (*feishu.ChatInfo, error)
	GetMemberNames(ctx context.Context, chatID string) (map[string]string, error)
}

// FeishuAdapter mirrors a Feishu group chat onto the board
type FeishuAdapter struct {
	client ChatSource
	logger zerolog.Logger

	mu    sync.Mutex
	names map[string]map[string]string // connection id -> open_id -> name
}

// NewFeishuAdapter creates a Feishu adapter
func NewFeishuAdapter(client ChatSource) *FeishuAdapter {
	return &FeishuAdapter{
		client: client,
		logger: log.WithComponent("feishu"),
		names:  make(map[string]map[string]string),
	}
}

func (a *FeishuAdapter) Platform() domain.Platform { return domain.PlatformFeishu }

// Connect takes a chat id and loads the latest messages
func (a *FeishuAdapter) Connect(ctx context.Context, req repo.ConnectRequest) (*domain.Connection, []domain.Message, error) {
	chatID := strings.TrimSpace(req.Identifier)
	if chatID == "" {
		return nil, nil, domain.NewValidationError("identifier", "chat id is required")
	}

	info, err := a.client.GetChatInfo(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}

	conn := &domain.Connection{
		Platform:    domain.PlatformFeishu,
		IsConnected: true,
		AccountName: accountName(req.AccountName, info.Name),
		AccountID:   chatID,
	}
	conn.ConnectionID = domain.NewConnectionID(conn)

	// senders fall back to a generic name without the member list
	names, err := a.client.GetMemberNames(ctx, chatID)
	if err != nil {
		a.logger.Warn().Err(err).Str("chat_id", chatID).Msg("failed to load member names")
	}
	a.mu.Lock()
	a.names[conn.ConnectionID] = names
	a.mu.Unlock()

	msgs, err := a.Refresh(ctx, *conn)
	if err != nil {
		return nil, nil, err
	}
	return conn, msgs, nil
}

// Refresh re-reads the latest page of history
func (a *FeishuAdapter) Refresh(ctx context.Context, conn domain.Connection) ([]domain.Message, error) {
	history, err := a.client.GetChatHistory(ctx, conn.AccountID, feishuHistoryPage)
	if err != nil {
		return nil, err
	}

	msgs := make([]domain.Message, 0, len(history))
	for _, m := range history {
		if msg, ok := a.Convert(conn, m); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs, nil
}

func (a *FeishuAdapter) Disconnect(ctx context.Context, conn domain.Connection) error {
	a.mu.Lock()
	delete(a.names, conn.ConnectionID)
	a.mu.Unlock()
	return nil
}

// Convert maps a Feishu message for conn. ok is false for app messages and
// messages from other chats.
func (a *FeishuAdapter) Convert(conn domain.Connection, m *feishu.Message) (domain.Message, bool) {
	if m == nil || m.FromApp() || m.ChatID != conn.AccountID {
		return domain.Message{}, false
	}

	a.mu.Lock()
	sender := a.names[conn.ConnectionID][m.SenderID]
	a.mu.Unlock()
	if sender == "" {
		sender = "Feishu user"
	}

	return domain.Message{
		ID:           fmt.Sprintf("feishu-%s", m.MsgID),
		Sender:       sender,
		Content:      m.Content,
		Timestamp:    m.CreateTime,
		Platform:     domain.PlatformFeishu,
		ConnectionID: conn.ConnectionID,
		PlatformData: &domain.PlatformData{
			ChannelID:  m.ChatID,
			ExternalID: m.MsgID,
		},
	}, true
}
