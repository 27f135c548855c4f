package domain

import (
	"strings"
	"time"
)

// MessageType is the operator-assigned classification
type MessageType string

const (
	MessageTypeNormal    MessageType = "normal"
	MessageTypePrayer    MessageType = "prayer"
	MessageTypeTestimony MessageType = "testimony"
)

// Valid reports whether t is empty or a known classification
func (t MessageType) Valid() bool {
	switch t {
	case "", MessageTypeNormal, MessageTypePrayer, MessageTypeTestimony:
		return true
	}
	return false
}

// MediaType is the kind of attached media
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
)

// Media describes an attachment
type Media struct {
	Type MediaType `json:"type"`
	URL  string    `json:"url"`
}

// PlatformData carries source-specific metadata
type PlatformData struct {
	ProfileURL  string `json:"profile_url,omitempty"`
	IsVerified  bool   `json:"is_verified,omitempty"`
	Likes       int    `json:"likes,omitempty"`
	ChannelName string `json:"channel_name,omitempty"`
	ChannelID   string `json:"channel_id,omitempty"`
	PostID      string `json:"post_id,omitempty"`
	ExternalID  string `json:"external_id,omitempty"` // comment id, used for dedup
}

// PhoneData carries caller details for phone-in messages
type PhoneData struct {
	PhoneNumber string `json:"phone_number,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
}

// Message represents an ingested message
type Message struct {
	ID            string        `json:"id"`
	Sender        string        `json:"sender"`
	SenderAvatar  string        `json:"sender_avatar,omitempty"`
	Content       string        `json:"content"`
	EditedContent string        `json:"edited_content,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
	IsRead        bool          `json:"is_read"`
	Platform      Platform      `json:"platform"`
	ConnectionID  string        `json:"connection_id"`
	Media         *Media        `json:"media,omitempty"`
	MessageType   MessageType   `json:"message_type,omitempty"`
	ProgramID     string        `json:"program_id,omitempty"`
	PlatformData  *PlatformData `json:"platform_data,omitempty"`
	PhoneData     *PhoneData    `json:"phone_data,omitempty"`
}

// DisplayContent returns the operator edit if present, else the original
func (m *Message) DisplayContent() string {
	if m.EditedContent != "" {
		return m.EditedContent
	}
	return m.Content
}

// ExternalID returns the source-side identity used for merge dedup
func (m *Message) ExternalID() string {
	if m.PlatformData != nil && m.PlatformData.ExternalID != "" {
		return m.PlatformData.ExternalID
	}
	return m.ID
}

// Matches reports whether sender or content contains term (case-insensitive)
func (m *Message) Matches(term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(m.Sender), term) ||
		strings.Contains(strings.ToLower(m.Content), term) ||
		strings.Contains(strings.ToLower(m.EditedContent), term)
}

// Clone returns a deep copy so queue and store entries never share pointers
func (m Message) Clone() Message {
	if m.Media != nil {
		media := *m.Media
		m.Media = &media
	}
	if m.PlatformData != nil {
		pd := *m.PlatformData
		m.PlatformData = &pd
	}
	if m.PhoneData != nil {
		ph := *m.PhoneData
		m.PhoneData = &ph
	}
	return m
}
