package adapter

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/biz/repo"
	"github.com/DevRickLin/whats-live/internal/conf"
	"github.com/DevRickLin/whats-live/internal/infra/commentapi"
	"github.com/DevRickLin/whats-live/internal/infra/feishu"
	"github.com/DevRickLin/whats-live/internal/infra/whatsapp"
	"github.com/DevRickLin/whats-live/internal/log"
)

// ===== Simulated =====

func newSimulated(p domain.Platform, seed int64) *SimulatedAdapter {
	cfg := conf.DefaultContentConfig().Simulation
	a := NewSimulatedAdapter(p, cfg, seed)
	fixed := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }
	return a
}

func TestSimulatedAdapter_Connect(t *testing.T) {
	a := newSimulated(domain.PlatformFacebook, 7)
	conn, msgs, err := a.Connect(context.Background(), repo.ConnectRequest{Identifier: "page-1"})
	require.NoError(t, err)

	assert.Equal(t, domain.PlatformFacebook, conn.Platform)
	assert.Equal(t, "page-1", conn.PageID)
	assert.Equal(t, "facebook demo", conn.AccountName)
	assert.True(t, strings.HasPrefix(conn.ConnectionID, "facebook-page-1-"))
	require.Len(t, msgs, 5)

	fixed := a.now()
	for i, m := range msgs {
		assert.Equal(t, conn.ConnectionID, m.ConnectionID)
		assert.Equal(t, domain.PlatformFacebook, m.Platform)
		assert.True(t, strings.HasPrefix(m.SenderAvatar, "https://i.pravatar.cc/150?img="))
		assert.False(t, m.Timestamp.After(fixed))
		assert.True(t, fixed.Sub(m.Timestamp) < 5*time.Minute)
		require.NotNil(t, m.PlatformData)
		assert.True(t, strings.HasPrefix(m.PlatformData.ProfileURL, "https://facebook.com/user/"))
		if i > 0 {
			assert.False(t, m.Timestamp.After(msgs[i-1].Timestamp), "newest first")
		}
	}
}

func TestSimulatedAdapter_Deterministic(t *testing.T) {
	a := newSimulated(domain.PlatformInstagram, 42)
	b := newSimulated(domain.PlatformInstagram, 42)
	conn := domain.Connection{ConnectionID: "c1", Platform: domain.PlatformInstagram}

	ma, err := a.Refresh(context.Background(), conn)
	require.NoError(t, err)
	mb, err := b.Refresh(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, ma, mb)

	for _, m := range ma {
		assert.Equal(t, "https://instagram.com/"+m.Sender, m.PlatformData.ProfileURL)
	}
}

func TestSimulatedAdapter_RefreshCount(t *testing.T) {
	a := newSimulated(domain.PlatformWhatsApp, 3)
	conn := domain.Connection{ConnectionID: "c1", Platform: domain.PlatformWhatsApp}

	ids := make(map[string]bool)
	for i := 0; i < 20; i++ {
		msgs, err := a.Refresh(context.Background(), conn)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(msgs), 3)
		assert.LessOrEqual(t, len(msgs), 7)
		for _, m := range msgs {
			assert.False(t, ids[m.ID], "ids must be unique")
			ids[m.ID] = true
			assert.Nil(t, m.PlatformData)
		}
	}
}

// ===== Phone =====

func TestPhoneAdapter(t *testing.T) {
	a := NewPhoneAdapter()
	conn, msgs, err := a.Connect(context.Background(), repo.ConnectRequest{})
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, "Phone line", conn.AccountName)

	more, err := a.Refresh(context.Background(), *conn)
	require.NoError(t, err)
	assert.Empty(t, more)
}

// ===== YouTube =====

type MockCommentFetcher struct {
	pages   map[string]*commentapi.Response // keyed by page token
	pingErr error
	err     error
	calls   []fetchCall
}

type fetchCall struct {
	videoID string
	max     int
	token   string
}

func (m *MockCommentFetcher) GetComments(ctx context.Context, videoID string, maxResults int, pageToken string) (*commentapi.Response, error) {
	m.calls = append(m.calls, fetchCall{videoID, maxResults, pageToken})
	if m.err != nil {
		return nil, m.err
	}
	resp, ok := m.pages[pageToken]
	if !ok {
		return &commentapi.Response{Success: true}, nil
	}
	return resp, nil
}

func (m *MockCommentFetcher) Ping(ctx context.Context) error {
	return m.pingErr
}

func comment(id, author, text string) commentapi.Comment {
	return commentapi.Comment{
		ID: id,
		TopLevelComment: commentapi.TopLevelComment{
			Text:        text,
			Author:      commentapi.Author{Name: author, ChannelURL: "https://youtube.com/c/" + author, ChannelID: "UC" + author},
			PublishedAt: time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC),
			LikeCount:   3,
		},
	}
}

func TestYouTubeAdapter_ConnectAndPaging(t *testing.T) {
	api := &MockCommentFetcher{pages: map[string]*commentapi.Response{
		"": {
			Success:    true,
			Comments:   []commentapi.Comment{comment("c2", "bob", "second"), comment("c1", "ann", "first")},
			Pagination: commentapi.Pagination{NextPageToken: "p2", HasNextPage: true},
		},
		"p2": {
			Success:  true,
			Comments: []commentapi.Comment{comment("c0", "cat", "older")},
		},
	}}
	a := NewYouTubeAdapter(api)

	conn, msgs, err := a.Connect(context.Background(), repo.ConnectRequest{Identifier: "https://youtu.be/dQw4w9WgXcQ"})
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", conn.StreamID)
	assert.Equal(t, fetchCall{"dQw4w9WgXcQ", 20, ""}, api.calls[0])

	require.Len(t, msgs, 2)
	m := msgs[0]
	assert.Equal(t, "yt-"+conn.ConnectionID+"-c2", m.ID)
	assert.Equal(t, "bob", m.Sender)
	assert.Equal(t, "second", m.Content)
	assert.Equal(t, "c2", m.ExternalID())
	assert.Equal(t, "https://youtube.com/c/bob", m.PlatformData.ProfileURL)
	assert.Equal(t, "UCbob", m.PlatformData.ChannelID)
	assert.Equal(t, 3, m.PlatformData.Likes)
	assert.True(t, a.HasMore(conn.ConnectionID))

	older, err := a.LoadMore(context.Background(), *conn)
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, fetchCall{"dQw4w9WgXcQ", 20, "p2"}, api.calls[1])
	assert.False(t, a.HasMore(conn.ConnectionID))

	_, err = a.LoadMore(context.Background(), *conn)
	assert.ErrorIs(t, err, domain.ErrNoMorePages)

	_, err = a.Refresh(context.Background(), *conn)
	require.NoError(t, err)
	assert.Equal(t, fetchCall{"dQw4w9WgXcQ", 10, ""}, api.calls[2])
}

func TestYouTubeAdapter_ConnectErrors(t *testing.T) {
	a := NewYouTubeAdapter(&MockCommentFetcher{})
	_, _, err := a.Connect(context.Background(), repo.ConnectRequest{Identifier: "https://vimeo.com/1"})
	assert.True(t, domain.IsValidation(err))

	a = NewYouTubeAdapter(&MockCommentFetcher{pingErr: errors.New("down")})
	_, _, err = a.Connect(context.Background(), repo.ConnectRequest{Identifier: "dQw4w9WgXcQ"})
	assert.EqualError(t, err, "down")

	api := &MockCommentFetcher{err: errors.New("Video not found")}
	a = NewYouTubeAdapter(api)
	_, _, err = a.Connect(context.Background(), repo.ConnectRequest{Identifier: "dQw4w9WgXcQ"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Video not found")
}

func TestYouTubeAdapter_DisconnectDropsPaging(t *testing.T) {
	api := &MockCommentFetcher{pages: map[string]*commentapi.Response{
		"": {Success: true, Pagination: commentapi.Pagination{NextPageToken: "p2", HasNextPage: true}},
	}}
	a := NewYouTubeAdapter(api)
	conn, _, err := a.Connect(context.Background(), repo.ConnectRequest{Identifier: "dQw4w9WgXcQ"})
	require.NoError(t, err)

	require.NoError(t, a.Disconnect(context.Background(), *conn))
	assert.False(t, a.HasMore(conn.ConnectionID))
}

// ===== Feishu =====

type MockChatSource struct {
	info     *feishu.ChatInfo
	history  []*feishu.Message
	names    map[string]string
	namesErr error
	err      error
}

func (m *MockChatSource) GetChatHistory(ctx context.Context, chatID string, pageSize int) ([]*feishu.Message, error) {
	return m.history, m.err
}

func (m *MockChatSource) GetChatInfo(ctx context.Context, chatID string) (*feishu.ChatInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.info, nil
}

func (m *MockChatSource) GetMemberNames(ctx context.Context, chatID string) (map[string]string, error) {
	return m.names, m.namesErr
}

func TestFeishuAdapter_Connect(t *testing.T) {
	src := &MockChatSource{
		info:  &feishu.ChatInfo{ChatID: "oc_1", Name: "Live Room"},
		names: map[string]string{"ou_a": "Alice"},
		history: []*feishu.Message{
			{ChatID: "oc_1", MsgID: "om_2", Content: "hello", SenderID: "ou_a", SenderType: "user"},
			{ChatID: "oc_1", MsgID: "om_1", Content: "bot says", SenderType: "app"},
			{ChatID: "oc_1", MsgID: "om_0", Content: "who am i", SenderID: "ou_z", SenderType: "user"},
		},
	}
	a := NewFeishuAdapter(src)

	conn, msgs, err := a.Connect(context.Background(), repo.ConnectRequest{Identifier: " oc_1 "})
	require.NoError(t, err)
	assert.Equal(t, "oc_1", conn.AccountID)
	assert.Equal(t, "Live Room", conn.AccountName)

	require.Len(t, msgs, 2)
	assert.Equal(t, "feishu-om_2", msgs[0].ID)
	assert.Equal(t, "Alice", msgs[0].Sender)
	assert.Equal(t, "om_2", msgs[0].ExternalID())
	assert.Equal(t, "Feishu user", msgs[1].Sender)

	_, ok := a.Convert(*conn, &feishu.Message{ChatID: "oc_other", MsgID: "x"})
	assert.False(t, ok)
}

func TestFeishuAdapter_MemberNamesFailure(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	src := &MockChatSource{
		info:     &feishu.ChatInfo{ChatID: "oc_1", Name: "Live Room"},
		namesErr: errors.New("members: no permission"),
		history: []*feishu.Message{
			{ChatID: "oc_1", MsgID: "om_1", Content: "hello", SenderID: "ou_a", SenderType: "user"},
		},
	}
	a := NewFeishuAdapter(src)

	_, msgs, err := a.Connect(context.Background(), repo.ConnectRequest{Identifier: "oc_1"})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Feishu user", msgs[0].Sender)
	assert.Contains(t, buf.String(), "members: no permission")
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestFeishuAdapter_ConnectErrors(t *testing.T) {
	a := NewFeishuAdapter(&MockChatSource{})
	_, _, err := a.Connect(context.Background(), repo.ConnectRequest{})
	assert.True(t, domain.IsValidation(err))

	a = NewFeishuAdapter(&MockChatSource{err: errors.New("no permission")})
	_, _, err = a.Connect(context.Background(), repo.ConnectRequest{Identifier: "oc_1"})
	assert.EqualError(t, err, "no permission")
}

// ===== WhatsApp =====

type MockPhoneVerifier struct {
	phone *whatsapp.PhoneNumber
	err   error
}

func (m *MockPhoneVerifier) VerifyPhoneNumber(ctx context.Context) (*whatsapp.PhoneNumber, error) {
	return m.phone, m.err
}

func TestWhatsAppAdapter(t *testing.T) {
	a := NewWhatsAppAdapter(&MockPhoneVerifier{phone: &whatsapp.PhoneNumber{ID: "123", DisplayPhoneNumber: "+1 555"}})
	conn, msgs, err := a.Connect(context.Background(), repo.ConnectRequest{})
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, "123", conn.AccountID)
	assert.Equal(t, "+1 555", conn.AccountName)

	a = NewWhatsAppAdapter(&MockPhoneVerifier{err: errors.New("HTTP 401: bad token")})
	_, _, err = a.Connect(context.Background(), repo.ConnectRequest{})
	assert.EqualError(t, err, "HTTP 401: bad token")
}

// ===== Registry =====

func TestRegistry(t *testing.T) {
	r := NewRegistry(NewPhoneAdapter(), newSimulated(domain.PlatformFacebook, 1))

	a, err := r.Get(domain.PlatformPhone)
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformPhone, a.Platform())

	_, err = r.Get(domain.PlatformYouTube)
	assert.ErrorIs(t, err, domain.ErrUnsupportedPlatform)

	assert.Equal(t, []domain.Platform{domain.PlatformFacebook, domain.PlatformPhone}, r.Platforms())
}
