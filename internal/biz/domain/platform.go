package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Platform identifies a message source
type Platform string

const (
	PlatformWhatsApp  Platform = "whatsapp"
	PlatformYouTube   Platform = "youtube"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformPhone     Platform = "phone"
	PlatformFeishu    Platform = "feishu"
)

// Platforms lists every supported platform in display order
var Platforms = []Platform{
	PlatformWhatsApp,
	PlatformYouTube,
	PlatformFacebook,
	PlatformInstagram,
	PlatformPhone,
	PlatformFeishu,
}

// ParsePlatform converts a string into a known Platform
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}

// Valid reports whether p is a supported platform
func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// Connection is the single live session for a platform
type Connection struct {
	ConnectionID  string    `json:"connection_id"`
	Platform      Platform  `json:"platform"`
	IsConnected   bool      `json:"is_connected"`
	LastConnected time.Time `json:"last_connected"`
	AccountName   string    `json:"account_name"`
	AccountID     string    `json:"account_id,omitempty"`
	StreamID      string    `json:"stream_id,omitempty"` // YouTube video
	PageID        string    `json:"page_id,omitempty"`   // Facebook/Instagram page
}

// NewConnectionID builds "<platform>-<hint>-<random>".
// hint is the first non-empty of stream, page and account id, else the unix millis.
func NewConnectionID(c *Connection) string {
	hint := c.StreamID
	if hint == "" {
		hint = c.PageID
	}
	if hint == "" {
		hint = c.AccountID
	}
	if hint == "" {
		hint = fmt.Sprintf("%d", time.Now().UnixMilli())
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s-%s-%s", c.Platform, hint, random)
}
