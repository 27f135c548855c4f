package whatsapp

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
)

// ObjectBusinessAccount is the webhook object for WhatsApp notifications
const ObjectBusinessAccount = "whatsapp_business_account"

// WebhookPayload is the body of a webhook POST
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups changes for one business account
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change is one notification
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue carries messages, contacts and delivery statuses
type ChangeValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         Metadata         `json:"metadata"`
	Contacts         []Contact        `json:"contacts,omitempty"`
	Messages         []InboundMessage `json:"messages,omitempty"`
	Statuses         []Status         `json:"statuses,omitempty"`
}

// Metadata identifies the receiving number
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Contact is the sender profile
type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// MediaObject is an attachment reference
type MediaObject struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// InboundMessage is a received message
type InboundMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"` // unix seconds
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Image    *MediaObject `json:"image,omitempty"`
	Video    *MediaObject `json:"video,omitempty"`
	Audio    *MediaObject `json:"audio,omitempty"`
	Document *MediaObject `json:"document,omitempty"`
}

// Status is a delivery status update for a sent message
type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// ParseWebhook decodes a webhook body
func ParseWebhook(body []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse webhook: %w", err)
	}
	return &payload, nil
}

// Inbound is a received message with its sender profile
type Inbound struct {
	Message InboundMessage
	Contact *Contact
	Meta    Metadata
}

// Messages returns every received message in a payload. Other objects and
// fields are ignored.
func (p *WebhookPayload) Messages() []Inbound {
	if p.Object != ObjectBusinessAccount {
		return nil
	}
	var out []Inbound
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			var contact *Contact
			if len(change.Value.Contacts) > 0 {
				contact = &change.Value.Contacts[0]
			}
			for _, m := range change.Value.Messages {
				out = append(out, Inbound{Message: m, Contact: contact, Meta: change.Value.Metadata})
			}
		}
	}
	return out
}

// Statuses returns every delivery status in a payload
func (p *WebhookPayload) Statuses() []Status {
	if p.Object != ObjectBusinessAccount {
		return nil
	}
	var out []Status
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if change.Field == "messages" {
				out = append(out, change.Value.Statuses...)
			}
		}
	}
	return out
}

// ToDomain converts an inbound message into a board message without a connection
func (in Inbound) ToDomain() domain.Message {
	m := in.Message
	sender := "User"
	if in.Contact != nil {
		switch {
		case in.Contact.Profile.Name != "":
			sender = in.Contact.Profile.Name
		case in.Contact.WaID != "":
			sender = in.Contact.WaID
		}
	}

	ts := time.Now()
	if secs, err := strconv.ParseInt(m.Timestamp, 10, 64); err == nil {
		ts = time.Unix(secs, 0)
	}

	msg := domain.Message{
		ID:        "wa-" + m.ID,
		Sender:    sender,
		Content:   contentText(m),
		Timestamp: ts,
		Platform:  domain.PlatformWhatsApp,
		PlatformData: &domain.PlatformData{
			ExternalID: m.ID,
		},
		PhoneData: &domain.PhoneData{PhoneNumber: m.From},
	}
	if mt := mediaType(m.Type); mt != "" {
		msg.Media = &domain.Media{Type: mt}
	}
	return msg
}

func contentText(m InboundMessage) string {
	switch m.Type {
	case "text":
		if m.Text != nil {
			return m.Text.Body
		}
	case "image":
		return captionOr(m.Image, "[image]")
	case "video":
		return captionOr(m.Video, "[video]")
	case "audio":
		return "[audio]"
	case "document":
		if m.Document != nil && m.Document.Filename != "" {
			return "[document] " + m.Document.Filename
		}
		return "[document]"
	}
	return "Unsupported message type: " + m.Type
}

func captionOr(obj *MediaObject, fallback string) string {
	if obj != nil && obj.Caption != "" {
		return obj.Caption
	}
	return fallback
}

func mediaType(t string) domain.MediaType {
	switch t {
	case "image":
		return domain.MediaImage
	case "video":
		return domain.MediaVideo
	case "audio":
		return domain.MediaAudio
	}
	return ""
}
