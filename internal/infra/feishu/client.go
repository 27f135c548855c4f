package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"github.com/rs/zerolog"

	"github.com/DevRickLin/whats-live/internal/log"
)

// Message is a chat message read from history or pushed over the event socket
type Message struct {
	ChatID     string
	MsgID      string
	MsgType    string // text, image, post
	Content    string // plain text with mention placeholders resolved
	SenderID   string
	SenderType string    // user, app
	CreateTime time.Time // zero when Feishu omitted it
}

// FromApp reports whether the message was sent by a bot or app
func (m *Message) FromApp() bool {
	return m.SenderType == "app" || m.SenderType == "bot"
}

// ChatInfo represents information about a chat
type ChatInfo struct {
	ChatID      string `json:"chat_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ChatType    string `json:"chat_type"` // p2p, group
	MemberCount int    `json:"user_count"`
}

// MessageHandler is the callback for pushed messages
type MessageHandler func(msg *Message)

// Client is the Feishu API client
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	wsCli     *larkws.Client
	onMessage MessageHandler
	cancel    context.CancelFunc
	logger    zerolog.Logger
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		larkCli:   lark.NewClient(appID, appSecret),
		logger:    log.WithComponent("feishu"),
	}
}

// OnMessage sets the handler for pushed messages
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// Start connects the event WebSocket and blocks until ctx is cancelled
func (c *Client) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	// Handlers must return quickly so the SDK can ACK
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			go c.handleEvent(event)
			return nil
		})

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	c.logger.Info().Msg("starting event socket")
	return c.wsCli.Start(ctx)
}

// Stop disconnects the event socket
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Client) handleEvent(event *larkim.P2MessageReceiveV1) {
	if event == nil || event.Event == nil || event.Event.Message == nil {
		return
	}
	raw := event.Event.Message

	msg := &Message{
		ChatID:  deref(raw.ChatId),
		MsgID:   deref(raw.MessageId),
		MsgType: deref(raw.MessageType),
	}
	msg.CreateTime = parseMillis(deref(raw.CreateTime))

	if s := event.Event.Sender; s != nil {
		msg.SenderType = deref(s.SenderType)
		if s.SenderId != nil {
			msg.SenderID = deref(s.SenderId.OpenId)
		}
	}
	if msg.FromApp() {
		return
	}

	mentionMap := make(map[string]string)
	for _, mention := range raw.Mentions {
		if mention.Key != nil && mention.Name != nil {
			mentionMap[*mention.Key] = *mention.Name
		}
	}

	content, ok := parseContent(msg.MsgType, deref(raw.Content), mentionMap)
	if !ok {
		c.logger.Debug().Str("msg_type", msg.MsgType).Msg("unsupported message type")
		return
	}
	msg.Content = content

	c.logger.Debug().
		Str("chat_id", msg.ChatID).
		Str("msg_type", msg.MsgType).
		Msg("received message")

	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

// GetChatHistory retrieves the latest messages from a chat, newest first.
// pageSize is capped at 50.
func (c *Client) GetChatHistory(ctx context.Context, chatID string, pageSize int) ([]*Message, error) {
	if pageSize > 50 {
		pageSize = 50
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	// Feishu defaults to ascending order, which starts at the group's creation
	req := larkim.NewListMessageReqBuilder().
		ContainerIdType("chat").
		ContainerId(chatID).
		SortType("ByCreateTimeDesc").
		PageSize(pageSize).
		Build()

	resp, err := c.larkCli.Im.Message.List(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get chat history failed: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("get chat history error: %s", resp.Msg)
	}

	var messages []*Message
	for _, item := range resp.Data.Items {
		msg := &Message{
			ChatID:     chatID,
			MsgID:      deref(item.MessageId),
			MsgType:    deref(item.MsgType),
			CreateTime: parseMillis(deref(item.CreateTime)),
		}
		if item.Sender != nil {
			msg.SenderID = deref(item.Sender.Id)
			msg.SenderType = deref(item.Sender.SenderType)
		}

		mentionMap := make(map[string]string)
		for _, mention := range item.Mentions {
			if mention.Key != nil && mention.Name != nil {
				mentionMap[*mention.Key] = *mention.Name
			}
		}

		if item.Body != nil && item.Body.Content != nil {
			content, ok := parseContent(msg.MsgType, *item.Body.Content, mentionMap)
			if !ok {
				continue
			}
			msg.Content = content
		}
		messages = append(messages, msg)
	}

	c.logger.Debug().Int("count", len(messages)).Str("chat_id", chatID).Msg("retrieved chat history")
	return messages, nil
}

// GetChatInfo retrieves information about a chat
func (c *Client) GetChatInfo(ctx context.Context, chatID string) (*ChatInfo, error) {
	req := larkim.NewGetChatReqBuilder().
		ChatId(chatID).
		Build()

	resp, err := c.larkCli.Im.Chat.Get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get chat info failed: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("get chat info error: %s", resp.Msg)
	}

	info := &ChatInfo{
		ChatID:      chatID,
		Name:        deref(resp.Data.Name),
		Description: deref(resp.Data.Description),
		ChatType:    deref(resp.Data.ChatMode),
	}
	if resp.Data.UserCount != nil {
		info.MemberCount, _ = strconv.Atoi(*resp.Data.UserCount)
	}
	return info, nil
}

// GetMemberNames maps member open_id to display name, following pagination
func (c *Client) GetMemberNames(ctx context.Context, chatID string) (map[string]string, error) {
	names := make(map[string]string)
	var pageToken string

	for {
		reqBuilder := larkim.NewGetChatMembersReqBuilder().
			MemberIdType("open_id").
			ChatId(chatID).
			PageSize(100)
		if pageToken != "" {
			reqBuilder = reqBuilder.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.ChatMembers.Get(ctx, reqBuilder.Build())
		if err != nil {
			return nil, fmt.Errorf("get chat members failed: %w", err)
		}
		if !resp.Success() {
			return nil, fmt.Errorf("get chat members error: %s", resp.Msg)
		}

		for _, item := range resp.Data.Items {
			if item.MemberId != nil && item.Name != nil {
				names[*item.MemberId] = *item.Name
			}
		}

		if resp.Data.PageToken == nil || *resp.Data.PageToken == "" {
			break
		}
		pageToken = *resp.Data.PageToken
	}
	return names, nil
}

// parseContent extracts display text from a message body.
// ok is false for types the board cannot show.
func parseContent(msgType, content string, mentionMap map[string]string) (string, bool) {
	switch msgType {
	case "text":
		return parseTextContent(content, mentionMap), true
	case "post":
		return parsePostContent(content, mentionMap), true
	case "image":
		return "[Image]", true
	}
	return "", false
}

func parseTextContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return replaceMentions(parsed.Text, mentionMap)
}

func parsePostContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Title   string `json:"title"`
		Content [][]struct {
			Tag    string `json:"tag"`
			Text   string `json:"text,omitempty"`
			UserID string `json:"user_id,omitempty"`
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}

	var lines []string
	if parsed.Title != "" {
		lines = append(lines, parsed.Title)
	}
	for _, line := range parsed.Content {
		var parts []string
		for _, elem := range line {
			switch elem.Tag {
			case "text":
				if elem.Text != "" {
					parts = append(parts, elem.Text)
				}
			case "at":
				if name, ok := mentionMap[elem.UserID]; ok {
					parts = append(parts, "@"+name)
				} else if elem.UserID != "" {
					parts = append(parts, "@"+elem.UserID)
				}
			}
		}
		if len(parts) > 0 {
			lines = append(lines, strings.Join(parts, ""))
		}
	}
	return replaceMentions(strings.Join(lines, "\n"), mentionMap)
}

// replaceMentions swaps @_user_N placeholders for real names
func replaceMentions(text string, mentionMap map[string]string) string {
	for key, name := range mentionMap {
		text = strings.ReplaceAll(text, key, "@"+name)
	}
	return text
}

func parseMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
