package adapter

import (
	"context"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/biz/repo"
)

// PhoneAdapter registers the phone-in line. Messages are typed in by the
// operator, so it never produces any.
type PhoneAdapter struct{}

// NewPhoneAdapter creates a phone adapter
func NewPhoneAdapter() *PhoneAdapter {
	return &PhoneAdapter{}
}

func (a *PhoneAdapter) Platform() domain.Platform { return domain.PlatformPhone }

func (a *PhoneAdapter) Connect(ctx context.Context, req repo.ConnectRequest) (*domain.Connection, []domain.Message, error) {
	conn := &domain.Connection{
		Platform:    domain.PlatformPhone,
		IsConnected: true,
		AccountName: accountName(req.AccountName, "Phone line"),
		AccountID:   req.Identifier,
	}
	conn.ConnectionID = domain.NewConnectionID(conn)
	return conn, nil, nil
}

func (a *PhoneAdapter) Refresh(ctx context.Context, conn domain.Connection) ([]domain.Message, error) {
	return nil, nil
}

func (a *PhoneAdapter) Disconnect(ctx context.Context, conn domain.Connection) error {
	return nil
}
