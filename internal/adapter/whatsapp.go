package adapter

import (
	"context"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/biz/repo"
	"github.com/DevRickLin/whats-live/internal/infra/whatsapp"
)

// PhoneVerifier checks the business phone number against the Cloud API
type PhoneVerifier interface {
	VerifyPhoneNumber(ctx context.Context) (*whatsapp.PhoneNumber, error)
}

// WhatsAppAdapter registers a Cloud API number. Messages arrive through the
// webhook, so Refresh returns nothing.
type WhatsAppAdapter struct {
	graph PhoneVerifier
}

// NewWhatsAppAdapter creates a Cloud API backed WhatsApp adapter
func NewWhatsAppAdapter(graph PhoneVerifier) *WhatsAppAdapter {
	return &WhatsAppAdapter{graph: graph}
}

func (a *WhatsAppAdapter) Platform() domain.Platform { return domain.PlatformWhatsApp }

func (a *WhatsAppAdapter) Connect(ctx context.Context, req repo.ConnectRequest) (*domain.Connection, []domain.Message, error) {
	phone, err := a.graph.VerifyPhoneNumber(ctx)
	if err != nil {
		return nil, nil, err
	}

	name := phone.VerifiedName
	if name == "" {
		name = phone.DisplayPhoneNumber
	}
	conn := &domain.Connection{
		Platform:    domain.PlatformWhatsApp,
		IsConnected: true,
		AccountName: accountName(req.AccountName, name),
		AccountID:   phone.ID,
	}
	conn.ConnectionID = domain.NewConnectionID(conn)
	return conn, nil, nil
}

func (a *WhatsAppAdapter) Refresh(ctx context.Context, conn domain.Connection) ([]domain.Message, error) {
	return nil, nil
}

func (a *WhatsAppAdapter) Disconnect(ctx context.Context, conn domain.Connection) error {
	return nil
}
