package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/biz/repo"
	"github.com/DevRickLin/whats-live/internal/biz/usecase"
	"github.com/DevRickLin/whats-live/internal/log"
	"github.com/DevRickLin/whats-live/internal/metrics"
)

// AdapterSource resolves the adapter for a platform
type AdapterSource interface {
	Get(p domain.Platform) (repo.Adapter, error)
}

// IntervalFunc returns the default auto-refresh interval for a platform
type IntervalFunc func(p domain.Platform) time.Duration

// ConnectInput is an operator connect request
type ConnectInput struct {
	repo.ConnectRequest
	RefreshInterval *time.Duration // nil uses the platform default, 0 disables
}

type refreshLoop struct {
	connectionID string
	interval     time.Duration
	cancel       context.CancelFunc
	done         chan struct{}
}

// ConnectionService drives adapters and feeds their messages into the board
type ConnectionService struct {
	board      *usecase.Board
	adapters   AdapterSource
	classifier repo.Classifier
	intervals  IntervalFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	loops map[domain.Platform]*refreshLoop

	logger zerolog.Logger
}

// NewConnectionService creates a connection service. classifier may be nil.
func NewConnectionService(board *usecase.Board, adapters AdapterSource, classifier repo.Classifier, intervals IntervalFunc) *ConnectionService {
	if intervals == nil {
		intervals = func(domain.Platform) time.Duration { return 0 }
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &ConnectionService{
		board:      board,
		adapters:   adapters,
		classifier: classifier,
		intervals:  intervals,
		ctx:        ctx,
		cancel:     cancel,
		loops:      make(map[domain.Platform]*refreshLoop),
		logger:     log.WithComponent("ingest"),
	}

	board.OnChange(func(c usecase.Change) {
		if c.Has(usecase.ChangeConnections) {
			metrics.ConnectionsActive.Set(float64(len(board.Connections())))
		}
		if c.Has(usecase.ChangeDisplay) {
			metrics.DisplayQueueLength.Set(float64(len(board.Display().Messages)))
		}
	})
	return s
}

// Connect establishes the platform connection, replacing any previous one,
// and starts its refresh loop
func (s *ConnectionService) Connect(ctx context.Context, p domain.Platform, in ConnectInput) (domain.Connection, int, error) {
	a, err := s.adapters.Get(p)
	if err != nil {
		return domain.Connection{}, 0, err
	}

	logger := log.WithPlatform("ingest", string(p))

	conn, msgs, err := a.Connect(ctx, in.ConnectRequest)
	if err != nil {
		metrics.AdapterErrors.WithLabelValues(string(p), "connect").Inc()
		logger.Error().Err(err).Str("identifier", in.Identifier).Msg("connect failed")
		return domain.Connection{}, 0, err
	}
	conn.Platform = p
	conn.IsConnected = true

	s.stopLoop(p)
	if old, ok := s.board.Connection(p); ok && old.ConnectionID != conn.ConnectionID {
		if err := a.Disconnect(ctx, old); err != nil {
			logger.Warn().Err(err).Str("connection", old.ConnectionID).Msg("adapter disconnect failed")
		}
	}

	stored := s.board.AddConnection(*conn)
	s.classify(ctx, msgs)
	added, err := s.board.MergeMessages(stored.ConnectionID, msgs)
	if err != nil {
		return stored, 0, err
	}
	metrics.MessagesIngested.WithLabelValues(string(p)).Add(float64(added))

	interval := s.intervals(p)
	if in.RefreshInterval != nil {
		interval = *in.RefreshInterval
	}
	if interval > 0 {
		s.startLoop(p, stored.ConnectionID, interval)
	}

	logger.Info().
		Str("connection", stored.ConnectionID).
		Str("account", stored.AccountName).
		Int("messages", added).
		Dur("refresh", interval).
		Msg("connected")
	return stored, added, nil
}

// Disconnect stops the refresh loop and removes the connection with its messages
func (s *ConnectionService) Disconnect(ctx context.Context, p domain.Platform) (domain.Connection, error) {
	s.stopLoop(p)

	conn, err := s.board.RemoveConnection(p)
	if err != nil {
		return domain.Connection{}, err
	}
	if a, err := s.adapters.Get(p); err == nil {
		if err := a.Disconnect(ctx, conn); err != nil {
			s.logger.Warn().Err(err).Str("platform", string(p)).Msg("adapter disconnect failed")
		}
	}
	return conn, nil
}

// Refresh fetches new messages once; returns how many were added
func (s *ConnectionService) Refresh(ctx context.Context, p domain.Platform) (int, error) {
	conn, ok := s.board.Connection(p)
	if !ok {
		return 0, fmt.Errorf("%s: %w", p, domain.ErrNotConnected)
	}
	a, err := s.adapters.Get(p)
	if err != nil {
		return 0, err
	}

	msgs, err := a.Refresh(ctx, conn)
	if err != nil {
		metrics.AdapterErrors.WithLabelValues(string(p), "refresh").Inc()
		s.logger.Error().Err(err).Str("platform", string(p)).Msg("refresh failed")
		return 0, err
	}
	return s.merge(ctx, conn, msgs, false)
}

// RefreshAll refreshes every connection; failures are logged and skipped
func (s *ConnectionService) RefreshAll(ctx context.Context) int {
	total := 0
	for _, conn := range s.board.Connections() {
		n, err := s.Refresh(ctx, conn.Platform)
		if err != nil {
			continue
		}
		total += n
	}
	return total
}

// LoadMore fetches an older page for adapters that support paging
func (s *ConnectionService) LoadMore(ctx context.Context, p domain.Platform) (int, error) {
	conn, ok := s.board.Connection(p)
	if !ok {
		return 0, fmt.Errorf("%s: %w", p, domain.ErrNotConnected)
	}
	a, err := s.adapters.Get(p)
	if err != nil {
		return 0, err
	}
	pager, ok := a.(repo.Pager)
	if !ok {
		return 0, fmt.Errorf("%s: %w", p, domain.ErrNoMorePages)
	}

	msgs, err := pager.LoadMore(ctx, conn)
	if err != nil {
		if !errors.Is(err, domain.ErrNoMorePages) {
			metrics.AdapterErrors.WithLabelValues(string(p), "load_more").Inc()
		}
		return 0, err
	}
	return s.merge(ctx, conn, msgs, true)
}

// Ingest accepts pushed messages (webhook, session, event socket) for the
// platform's active connection. Without one the messages are dropped.
func (s *ConnectionService) Ingest(ctx context.Context, p domain.Platform, msgs []domain.Message) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}
	conn, ok := s.board.Connection(p)
	if !ok {
		metrics.MessagesDropped.WithLabelValues(string(p)).Add(float64(len(msgs)))
		s.logger.Warn().
			Str("platform", string(p)).
			Int("count", len(msgs)).
			Msg("no active connection, dropping messages")
		return 0, fmt.Errorf("%s: %w", p, domain.ErrNoConnection)
	}
	return s.merge(ctx, conn, msgs, false)
}

// Interval reports the running refresh interval for p, 0 when none
func (s *ConnectionService) Interval(p domain.Platform) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.loops[p]; ok {
		return l.interval
	}
	return 0
}

// SetInterval restarts the refresh loop of a connected platform; 0 stops it
func (s *ConnectionService) SetInterval(p domain.Platform, interval time.Duration) error {
	conn, ok := s.board.Connection(p)
	if !ok {
		return fmt.Errorf("%s: %w", p, domain.ErrNotConnected)
	}
	s.stopLoop(p)
	if interval > 0 {
		s.startLoop(p, conn.ConnectionID, interval)
	}
	return nil
}

// ApplyAutoRefresh sets one interval on every connection; 0 pauses them all
func (s *ConnectionService) ApplyAutoRefresh(interval time.Duration) {
	if interval <= 0 {
		s.StopAll()
		return
	}
	for _, conn := range s.board.Connections() {
		if err := s.SetInterval(conn.Platform, interval); err != nil {
			s.logger.Warn().Err(err).Str("platform", string(conn.Platform)).Msg("failed to apply auto refresh")
		}
	}
}

// StopAll stops every refresh loop without removing connections
func (s *ConnectionService) StopAll() {
	s.mu.Lock()
	platforms := make([]domain.Platform, 0, len(s.loops))
	for p := range s.loops {
		platforms = append(platforms, p)
	}
	s.mu.Unlock()

	for _, p := range platforms {
		s.stopLoop(p)
	}
}

// Stop cancels all loops and waits for them
func (s *ConnectionService) Stop() {
	s.cancel()
	s.wg.Wait()
	s.logger.Info().Msg("connection service stopped")
}

func (s *ConnectionService) merge(ctx context.Context, conn domain.Connection, msgs []domain.Message, older bool) (int, error) {
	s.classify(ctx, msgs)

	var added int
	var err error
	if older {
		added, err = s.board.AppendMessages(conn.ConnectionID, msgs)
	} else {
		added, err = s.board.MergeMessages(conn.ConnectionID, msgs)
	}
	if err != nil {
		return 0, err
	}
	if added > 0 {
		metrics.MessagesIngested.WithLabelValues(string(conn.Platform)).Add(float64(added))
		s.logger.Debug().
			Str("platform", string(conn.Platform)).
			Int("added", added).
			Int("received", len(msgs)).
			Msg("merged messages")
	}
	return added, nil
}

// classify fills empty message types in place; failures leave the type empty
func (s *ConnectionService) classify(ctx context.Context, msgs []domain.Message) {
	if s.classifier == nil {
		return
	}
	for i := range msgs {
		if msgs[i].MessageType != "" || msgs[i].Content == "" {
			continue
		}
		t, err := s.classifier.Classify(ctx, msgs[i].Content)
		if err != nil {
			s.logger.Warn().Err(err).Str("message", msgs[i].ID).Msg("classification failed")
			continue
		}
		msgs[i].MessageType = t
	}
}

func (s *ConnectionService) startLoop(p domain.Platform, connectionID string, interval time.Duration) {
	ctx, cancel := context.WithCancel(s.ctx)
	l := &refreshLoop{
		connectionID: connectionID,
		interval:     interval,
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	s.mu.Lock()
	s.loops[p] = l
	s.mu.Unlock()

	s.wg.Add(1)
	go s.refreshLoop(ctx, p, l)
}

func (s *ConnectionService) stopLoop(p domain.Platform) {
	s.mu.Lock()
	l, ok := s.loops[p]
	delete(s.loops, p)
	s.mu.Unlock()

	if ok {
		l.cancel()
		<-l.done
	}
}

func (s *ConnectionService) refreshLoop(ctx context.Context, p domain.Platform, l *refreshLoop) {
	defer s.wg.Done()
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn, ok := s.board.Connection(p)
			if !ok || conn.ConnectionID != l.connectionID {
				s.mu.Lock()
				if s.loops[p] == l {
					delete(s.loops, p)
				}
				s.mu.Unlock()
				return
			}
			// Errors are logged and counted by Refresh; the loop keeps its cadence
			s.Refresh(ctx, p)
		}
	}
}
