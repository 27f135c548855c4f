package feishu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseContent(t *testing.T) {
	mentions := map[string]string{"@_user_1": "Alice"}

	tests := []struct {
		name    string
		msgType string
		content string
		want    string
		ok      bool
	}{
		{"text", "text", `{"text":"hi @_user_1"}`, "hi @Alice", true},
		{"bad text json", "text", `{`, "", true},
		{"image", "image", `{"image_key":"img_1"}`, "[Image]", true},
		{"post", "post", `{"title":"Notice","content":[[{"tag":"text","text":"hello "},{"tag":"at","user_id":"@_user_1"}],[{"tag":"img","image_key":"k"}]]}`, "Notice\nhello @Alice", true},
		{"unsupported", "sticker", `{}`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseContent(tt.msgType, tt.content, mentions)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePostContent_UnknownMention(t *testing.T) {
	got := parsePostContent(`{"content":[[{"tag":"at","user_id":"ou_x"}]]}`, nil)
	assert.Equal(t, "@ou_x", got)
}

func TestParseMillis(t *testing.T) {
	assert.Equal(t, time.UnixMilli(1714564800123), parseMillis("1714564800123"))
	assert.True(t, parseMillis("").IsZero())
	assert.True(t, parseMillis("abc").IsZero())
}

func TestMessage_FromApp(t *testing.T) {
	assert.True(t, (&Message{SenderType: "app"}).FromApp())
	assert.False(t, (&Message{SenderType: "user"}).FromApp())
}
