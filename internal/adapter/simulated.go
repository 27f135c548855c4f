package adapter

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/biz/repo"
	"github.com/DevRickLin/whats-live/internal/conf"
)

// simulatedWindow bounds how far back generated timestamps reach
const simulatedWindow = 5 * time.Minute

// SimulatedAdapter generates plausible audience messages from configured pools
type SimulatedAdapter struct {
	platform domain.Platform
	cfg      conf.SimulationConfig

	mu  sync.Mutex
	rng *rand.Rand
	seq int

	now func() time.Time
}

// NewSimulatedAdapter creates a simulated adapter. A zero seed uses the clock.
func NewSimulatedAdapter(platform domain.Platform, cfg conf.SimulationConfig, seed int64) *SimulatedAdapter {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedAdapter{
		platform: platform,
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(seed)),
		now:      time.Now,
	}
}

func (a *SimulatedAdapter) Platform() domain.Platform { return a.platform }

func (a *SimulatedAdapter) Connect(ctx context.Context, req repo.ConnectRequest) (*domain.Connection, []domain.Message, error) {
	conn := &domain.Connection{
		Platform:    a.platform,
		IsConnected: true,
		AccountName: accountName(req.AccountName, string(a.platform)+" demo"),
	}
	switch a.platform {
	case domain.PlatformFacebook:
		conn.PageID = req.Identifier
	case domain.PlatformYouTube:
		conn.StreamID = req.Identifier
	default:
		conn.AccountID = req.Identifier
	}
	conn.ConnectionID = domain.NewConnectionID(conn)

	return conn, a.generate(*conn, a.cfg.InitialCount), nil
}

func (a *SimulatedAdapter) Refresh(ctx context.Context, conn domain.Connection) ([]domain.Message, error) {
	a.mu.Lock()
	count := a.cfg.RefreshMin
	if span := a.cfg.RefreshMax - a.cfg.RefreshMin; span > 0 {
		count += a.rng.Intn(span + 1)
	}
	a.mu.Unlock()
	return a.generate(conn, count), nil
}

func (a *SimulatedAdapter) Disconnect(ctx context.Context, conn domain.Connection) error {
	return nil
}

// generate returns count messages, newest first
func (a *SimulatedAdapter) generate(conn domain.Connection, count int) []domain.Message {
	pool := a.cfg.Pool(a.platform)
	if len(pool.Names) == 0 || len(pool.Messages) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	msgs := make([]domain.Message, 0, count)
	for i := 0; i < count; i++ {
		a.seq++
		name := pool.Names[a.rng.Intn(len(pool.Names))]
		content := pool.Messages[a.rng.Intn(len(pool.Messages))]
		offset := time.Duration(a.rng.Int63n(int64(simulatedWindow)))

		msg := domain.Message{
			ID:           fmt.Sprintf("%s-%s-%d-%d", a.platform, conn.ConnectionID, now.UnixMilli(), a.seq),
			Sender:       name,
			SenderAvatar: fmt.Sprintf(a.cfg.AvatarTemplate, a.rng.Intn(a.cfg.AvatarCount)),
			Content:      content,
			Timestamp:    now.Add(-offset),
			Platform:     a.platform,
			ConnectionID: conn.ConnectionID,
		}

		if pool.ProfileURLTemplate != "" {
			handle := strconv.Itoa(a.rng.Intn(10000))
			if a.platform == domain.PlatformInstagram {
				handle = name
			}
			msg.PlatformData = &domain.PlatformData{
				ProfileURL: fmt.Sprintf(pool.ProfileURLTemplate, handle),
				IsVerified: a.rng.Float64() < pool.VerifiedRatio,
			}
			if a.platform == domain.PlatformYouTube {
				msg.PlatformData.ChannelName = name
			}
		}
		msgs = append(msgs, msg)
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.After(msgs[j].Timestamp)
	})
	return msgs
}
