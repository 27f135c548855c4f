package usecase

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/log"
)

// ChangeKind names the part of the board that changed
type ChangeKind string

const (
	ChangeConnections ChangeKind = "connections"
	ChangeMessages    ChangeKind = "messages"
	ChangeDisplay     ChangeKind = "display"
	ChangeHistory     ChangeKind = "history"
	ChangeReset       ChangeKind = "reset"
)

// Change is delivered to listeners after a mutation commits
type Change struct {
	Kinds []ChangeKind
}

// Has reports whether the change touched kind
func (c Change) Has(kind ChangeKind) bool {
	for _, k := range c.Kinds {
		if k == kind || k == ChangeReset {
			return true
		}
	}
	return false
}

// ProgramNamer resolves the program name recorded in history
type ProgramNamer interface {
	ProgramName(programID string) string
}

// MessageFilter narrows Messages
type MessageFilter struct {
	Platform     domain.Platform
	ConnectionID string
	Search       string
}

// PhoneMessage is a manually logged phone call
type PhoneMessage struct {
	Sender      string
	Content     string
	PhoneNumber string
	City        string
	State       string
	MessageType domain.MessageType
	ProgramID   string
}

// Board owns the connection registry, message store, display queue and
// history log. Every cascade between them happens here.
type Board struct {
	mu          sync.RWMutex
	connections map[domain.Platform]domain.Connection
	messages    []domain.Message // newest first
	display     []domain.Message // promotion order, newest first
	cursor      int
	history     []domain.HistoryEntry // newest first

	namer     ProgramNamer
	listeners []func(Change)
	now       func() time.Time
	logger    zerolog.Logger
}

// NewBoard creates an empty board
func NewBoard(namer ProgramNamer) *Board {
	return &Board{
		connections: make(map[domain.Platform]domain.Connection),
		namer:       namer,
		now:         time.Now,
		logger:      log.WithComponent("board"),
	}
}

// OnChange registers a listener. Listeners run synchronously after the lock is released.
func (b *Board) OnChange(fn func(Change)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

func (b *Board) notify(kinds ...ChangeKind) {
	if len(kinds) == 0 {
		return
	}
	b.mu.RLock()
	listeners := append([]func(Change){}, b.listeners...)
	b.mu.RUnlock()

	change := Change{Kinds: kinds}
	for _, fn := range listeners {
		fn(change)
	}
}

// ============ Connection Registry ============

// AddConnection registers conn as the platform's only connection.
// A previous connection with a different id is purged from store and queue first.
func (b *Board) AddConnection(conn domain.Connection) domain.Connection {
	b.mu.Lock()
	if conn.ConnectionID == "" {
		conn.ConnectionID = domain.NewConnectionID(&conn)
	}
	if conn.LastConnected.IsZero() {
		conn.LastConnected = b.now()
	}
	kinds := []ChangeKind{ChangeConnections}

	if old, ok := b.connections[conn.Platform]; ok && old.ConnectionID != conn.ConnectionID {
		removed, removedDisplay := b.purgeLocked(old.ConnectionID)
		b.cursor = 0
		b.logger.Info().
			Str("platform", string(conn.Platform)).
			Str("old_connection", old.ConnectionID).
			Int("messages", removed).
			Int("displayed", removedDisplay).
			Msg("replaced connection")
		kinds = append(kinds, ChangeMessages, ChangeDisplay)
	}
	b.connections[conn.Platform] = conn
	b.mu.Unlock()

	b.notify(kinds...)
	return conn
}

// RemoveConnection removes the platform's connection and every message tied to it
func (b *Board) RemoveConnection(platform domain.Platform) (domain.Connection, error) {
	b.mu.Lock()
	conn, ok := b.connections[platform]
	if !ok {
		b.mu.Unlock()
		return domain.Connection{}, fmt.Errorf("%s: %w", platform, domain.ErrNotConnected)
	}
	removed, removedDisplay := b.purgeLocked(conn.ConnectionID)
	b.clampCursorLocked()
	delete(b.connections, platform)
	b.mu.Unlock()

	b.logger.Info().
		Str("platform", string(platform)).
		Str("connection", conn.ConnectionID).
		Int("messages", removed).
		Int("displayed", removedDisplay).
		Msg("removed connection")
	b.notify(ChangeConnections, ChangeMessages, ChangeDisplay)
	return conn, nil
}

// UpdateConnection mutates the platform's connection in place
func (b *Board) UpdateConnection(platform domain.Platform, fn func(*domain.Connection)) error {
	b.mu.Lock()
	conn, ok := b.connections[platform]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%s: %w", platform, domain.ErrNotConnected)
	}
	id, p := conn.ConnectionID, conn.Platform
	fn(&conn)
	conn.ConnectionID, conn.Platform = id, p
	b.connections[platform] = conn
	b.mu.Unlock()

	b.notify(ChangeConnections)
	return nil
}

// EnsureConnection returns the platform's connection, registering conn if there is none
func (b *Board) EnsureConnection(conn domain.Connection) domain.Connection {
	b.mu.Lock()
	if existing, ok := b.connections[conn.Platform]; ok {
		b.mu.Unlock()
		return existing
	}
	if conn.ConnectionID == "" {
		conn.ConnectionID = domain.NewConnectionID(&conn)
	}
	if conn.LastConnected.IsZero() {
		conn.LastConnected = b.now()
	}
	b.connections[conn.Platform] = conn
	b.mu.Unlock()

	b.notify(ChangeConnections)
	return conn
}

// Connection returns the platform's connection
func (b *Board) Connection(platform domain.Platform) (domain.Connection, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	conn, ok := b.connections[platform]
	return conn, ok
}

// Connections lists connections in platform order
func (b *Board) Connections() []domain.Connection {
	b.mu.RLock()
	defer b.mu.RUnlock()
	result := make([]domain.Connection, 0, len(b.connections))
	for _, p := range domain.Platforms {
		if conn, ok := b.connections[p]; ok {
			result = append(result, conn)
		}
	}
	return result
}

func (b *Board) connectionByIDLocked(id string) (domain.Connection, bool) {
	for _, conn := range b.connections {
		if conn.ConnectionID == id {
			return conn, true
		}
	}
	return domain.Connection{}, false
}

// purgeLocked drops every store and queue entry owned by connectionID
func (b *Board) purgeLocked(connectionID string) (int, int) {
	before, beforeDisplay := len(b.messages), len(b.display)
	b.messages = filterMessages(b.messages, func(m domain.Message) bool {
		return m.ConnectionID != connectionID
	})
	b.display = filterMessages(b.display, func(m domain.Message) bool {
		return m.ConnectionID != connectionID
	})
	return before - len(b.messages), beforeDisplay - len(b.display)
}

// ============ Message Store ============

// resolveLocked fills defaults and enforces the owning-connection rule
func (b *Board) resolveLocked(msg *domain.Message) error {
	if msg.ConnectionID == "" {
		conn, ok := b.connections[msg.Platform]
		if !ok {
			return fmt.Errorf("%s: %w", msg.Platform, domain.ErrNoConnection)
		}
		msg.ConnectionID = conn.ConnectionID
	} else {
		conn, ok := b.connectionByIDLocked(msg.ConnectionID)
		if !ok {
			return fmt.Errorf("%s: %w", msg.ConnectionID, domain.ErrUnknownConnection)
		}
		if msg.Platform == "" {
			msg.Platform = conn.Platform
		}
	}
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("%s-%s", msg.Platform, uuid.NewString())
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = b.now()
	}
	return nil
}

// SetMessages replaces the whole store. Nothing is applied if any message lacks a connection.
func (b *Board) SetMessages(msgs []domain.Message) error {
	b.mu.Lock()
	resolved := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		m = m.Clone()
		if err := b.resolveLocked(&m); err != nil {
			b.mu.Unlock()
			return err
		}
		resolved = append(resolved, m)
	}
	b.messages = resolved
	b.mu.Unlock()

	b.notify(ChangeMessages)
	return nil
}

// AddMessage prepends one message
func (b *Board) AddMessage(msg domain.Message) (domain.Message, error) {
	b.mu.Lock()
	msg = msg.Clone()
	if err := b.resolveLocked(&msg); err != nil {
		b.mu.Unlock()
		return domain.Message{}, err
	}
	b.messages = append([]domain.Message{msg}, b.messages...)
	b.mu.Unlock()

	b.notify(ChangeMessages)
	return msg, nil
}

// MergeMessages adds msgs for connectionID, skipping any whose external id is
// already stored for that connection. New messages are prepended in the given
// order, so the first element ends up at the head of the store.
func (b *Board) MergeMessages(connectionID string, msgs []domain.Message) (int, error) {
	return b.merge(connectionID, msgs, false)
}

// AppendMessages is MergeMessages for older pages: new messages go to the tail
func (b *Board) AppendMessages(connectionID string, msgs []domain.Message) (int, error) {
	return b.merge(connectionID, msgs, true)
}

func (b *Board) merge(connectionID string, msgs []domain.Message, tail bool) (int, error) {
	b.mu.Lock()
	conn, ok := b.connectionByIDLocked(connectionID)
	if !ok {
		b.mu.Unlock()
		return 0, fmt.Errorf("%s: %w", connectionID, domain.ErrUnknownConnection)
	}

	seen := make(map[string]bool)
	for _, m := range b.messages {
		if m.ConnectionID == connectionID {
			seen[m.ExternalID()] = true
		}
	}

	var added []domain.Message
	for _, m := range msgs {
		m = m.Clone()
		m.ConnectionID = connectionID
		m.Platform = conn.Platform
		if err := b.resolveLocked(&m); err != nil {
			b.mu.Unlock()
			return 0, err
		}
		key := m.ExternalID()
		if seen[key] {
			continue
		}
		seen[key] = true
		added = append(added, m)
	}
	switch {
	case len(added) == 0:
	case tail:
		b.messages = append(b.messages, added...)
	default:
		b.messages = append(added, b.messages...)
	}
	b.mu.Unlock()

	if len(added) > 0 {
		b.notify(ChangeMessages)
	}
	return len(added), nil
}

// Messages returns store messages matching filter, newest first
func (b *Board) Messages(filter MessageFilter) []domain.Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var result []domain.Message
	for _, m := range b.messages {
		if filter.Platform != "" && m.Platform != filter.Platform {
			continue
		}
		if filter.ConnectionID != "" && m.ConnectionID != filter.ConnectionID {
			continue
		}
		if !m.Matches(filter.Search) {
			continue
		}
		result = append(result, m.Clone())
	}
	return result
}

// MessagesByPlatform filters the store by platform
func (b *Board) MessagesByPlatform(platform domain.Platform) []domain.Message {
	return b.Messages(MessageFilter{Platform: platform})
}

// MessagesByConnection filters the store by connection id
func (b *Board) MessagesByConnection(connectionID string) []domain.Message {
	return b.Messages(MessageFilter{ConnectionID: connectionID})
}

// Message finds a message in the store, falling back to the display queue
func (b *Board) Message(id string) (domain.Message, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if i := indexOf(b.messages, id); i >= 0 {
		return b.messages[i].Clone(), true
	}
	if i := indexOf(b.display, id); i >= 0 {
		return b.display[i].Clone(), true
	}
	return domain.Message{}, false
}

// PlatformCounts counts store messages per platform, in platform order
func (b *Board) PlatformCounts() []domain.PlatformStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	counts := make(map[domain.Platform]int)
	for _, m := range b.messages {
		counts[m.Platform]++
	}
	var result []domain.PlatformStats
	for _, p := range domain.Platforms {
		if counts[p] > 0 {
			result = append(result, domain.PlatformStats{Platform: p, Count: counts[p]})
		}
	}
	return result
}

// update applies fn to the store copy and the queue copy of id
func (b *Board) update(id string, fn func(*domain.Message)) (domain.Message, error) {
	b.mu.Lock()
	var result *domain.Message
	kinds := []ChangeKind{}
	if i := indexOf(b.messages, id); i >= 0 {
		fn(&b.messages[i])
		m := b.messages[i].Clone()
		result = &m
		kinds = append(kinds, ChangeMessages)
	}
	if i := indexOf(b.display, id); i >= 0 {
		fn(&b.display[i])
		if result == nil {
			m := b.display[i].Clone()
			result = &m
		}
		kinds = append(kinds, ChangeDisplay)
	}
	b.mu.Unlock()

	if result == nil {
		return domain.Message{}, fmt.Errorf("%s: %w", id, domain.ErrMessageNotFound)
	}
	b.notify(kinds...)
	return *result, nil
}

// MessageEdit is a partial message update; nil fields are left unchanged
type MessageEdit struct {
	Content     *string
	MessageType *domain.MessageType
	ProgramID   *string
	IsRead      *bool
}

// Edit applies every set field of e in one step. Nothing changes when it fails.
func (b *Board) Edit(id string, e MessageEdit) (domain.Message, error) {
	if e.MessageType != nil && !e.MessageType.Valid() {
		return domain.Message{}, domain.NewValidationError("message_type", fmt.Sprintf("unknown type %q", *e.MessageType))
	}
	return b.update(id, func(m *domain.Message) {
		if e.Content != nil {
			// empty content, or the original text, reverts the override
			m.EditedContent = *e.Content
			if m.EditedContent == m.Content {
				m.EditedContent = ""
			}
		}
		if e.MessageType != nil {
			m.MessageType = *e.MessageType
		}
		if e.ProgramID != nil {
			m.ProgramID = *e.ProgramID
		}
		if e.IsRead != nil {
			m.IsRead = *e.IsRead
		}
	})
}

// EditContent sets the operator override; empty content reverts to the original
func (b *Board) EditContent(id, content string) (domain.Message, error) {
	return b.Edit(id, MessageEdit{Content: &content})
}

// SetMessageType sets the classification tag
func (b *Board) SetMessageType(id string, t domain.MessageType) (domain.Message, error) {
	return b.Edit(id, MessageEdit{MessageType: &t})
}

// SetProgram associates a program; empty id clears it
func (b *Board) SetProgram(id, programID string) (domain.Message, error) {
	return b.Edit(id, MessageEdit{ProgramID: &programID})
}

// MarkRead flags a message as read
func (b *Board) MarkRead(id string, read bool) (domain.Message, error) {
	return b.Edit(id, MessageEdit{IsRead: &read})
}

// DeleteMessage removes a message from the store only; a queued copy stays on air
func (b *Board) DeleteMessage(id string) error {
	b.mu.Lock()
	i := indexOf(b.messages, id)
	if i < 0 {
		b.mu.Unlock()
		return fmt.Errorf("%s: %w", id, domain.ErrMessageNotFound)
	}
	b.messages = append(b.messages[:i], b.messages[i+1:]...)
	b.mu.Unlock()

	b.notify(ChangeMessages)
	return nil
}

// ClearMessages keeps only messages that are currently displayed. Returns the number removed.
func (b *Board) ClearMessages() int {
	b.mu.Lock()
	displayed := b.displayedSetLocked()
	before := len(b.messages)
	b.messages = filterMessages(b.messages, func(m domain.Message) bool { return displayed[m.ID] })
	removed := before - len(b.messages)
	b.mu.Unlock()

	b.notify(ChangeMessages)
	return removed
}

// ClearConnectionMessages drops the platform connection's undisplayed messages
func (b *Board) ClearConnectionMessages(platform domain.Platform) (int, error) {
	b.mu.Lock()
	conn, ok := b.connections[platform]
	if !ok {
		b.mu.Unlock()
		return 0, fmt.Errorf("%s: %w", platform, domain.ErrNotConnected)
	}
	displayed := b.displayedSetLocked()
	before := len(b.messages)
	b.messages = filterMessages(b.messages, func(m domain.Message) bool {
		return m.ConnectionID != conn.ConnectionID || displayed[m.ID]
	})
	removed := before - len(b.messages)
	b.mu.Unlock()

	b.notify(ChangeMessages)
	return removed, nil
}

// AddPhoneMessage logs a phone call, registering the phone line if needed
func (b *Board) AddPhoneMessage(pm PhoneMessage) (domain.Message, error) {
	if strings.TrimSpace(pm.Sender) == "" {
		return domain.Message{}, domain.NewValidationError("sender", "required")
	}
	if strings.TrimSpace(pm.Content) == "" {
		return domain.Message{}, domain.NewValidationError("content", "required")
	}
	if !pm.MessageType.Valid() {
		return domain.Message{}, domain.NewValidationError("message_type", fmt.Sprintf("unknown type %q", pm.MessageType))
	}

	b.EnsureConnection(domain.Connection{
		Platform:    domain.PlatformPhone,
		IsConnected: true,
		AccountName: "Phone line",
	})

	msg := domain.Message{
		ID:          "phone-" + uuid.NewString(),
		Sender:      pm.Sender,
		Content:     pm.Content,
		Platform:    domain.PlatformPhone,
		MessageType: pm.MessageType,
		ProgramID:   pm.ProgramID,
		PhoneData: &domain.PhoneData{
			PhoneNumber: pm.PhoneNumber,
			City:        pm.City,
			State:       pm.State,
		},
	}
	return b.AddMessage(msg)
}

// ============ Display Queue ============

// Promote sends msg to display and records one history entry.
// A queued message with the same id is replaced in place; otherwise msg is
// prepended and the cursor moves to it.
func (b *Board) Promote(msg domain.Message) domain.HistoryEntry {
	b.mu.Lock()
	msg = msg.Clone()
	if i := indexOf(b.display, msg.ID); i >= 0 {
		b.display[i] = msg
	} else {
		b.display = append([]domain.Message{msg}, b.display...)
		b.cursor = 0
	}
	entry := b.historyEntryLocked(msg)
	b.history = append([]domain.HistoryEntry{entry}, b.history...)
	b.mu.Unlock()

	b.notify(ChangeDisplay, ChangeHistory)
	return entry
}

// PromoteByID promotes a message looked up by id
func (b *Board) PromoteByID(id string) (domain.HistoryEntry, error) {
	msg, ok := b.Message(id)
	if !ok {
		return domain.HistoryEntry{}, fmt.Errorf("%s: %w", id, domain.ErrMessageNotFound)
	}
	return b.Promote(msg), nil
}

func (b *Board) historyEntryLocked(msg domain.Message) domain.HistoryEntry {
	programName := ""
	if b.namer != nil {
		programName = b.namer.ProgramName(msg.ProgramID)
	}
	return domain.HistoryEntry{
		ID:               "history-" + uuid.NewString(),
		MessageID:        msg.ID,
		Sender:           msg.Sender,
		Content:          msg.Content,
		EditedContent:    msg.EditedContent,
		Platform:         msg.Platform,
		MessageType:      msg.MessageType,
		ProgramID:        msg.ProgramID,
		ProgramName:      programName,
		ConnectionID:     msg.ConnectionID,
		Timestamp:        msg.Timestamp,
		DisplayTimestamp: b.now(),
	}
}

// Demote removes a message from the queue and clamps the cursor
func (b *Board) Demote(id string) error {
	b.mu.Lock()
	i := indexOf(b.display, id)
	if i < 0 {
		b.mu.Unlock()
		return fmt.Errorf("%s: %w", id, domain.ErrMessageNotFound)
	}
	b.display = append(b.display[:i], b.display[i+1:]...)
	b.clampCursorLocked()
	b.mu.Unlock()

	b.notify(ChangeDisplay)
	return nil
}

// Next rotates the cursor forward; no-op on queues shorter than two
func (b *Board) Next() domain.DisplayQueue {
	return b.rotate(1)
}

// Previous rotates the cursor backward; no-op on queues shorter than two
func (b *Board) Previous() domain.DisplayQueue {
	return b.rotate(-1)
}

func (b *Board) rotate(step int) domain.DisplayQueue {
	b.mu.Lock()
	n := len(b.display)
	moved := n > 1
	if moved {
		b.cursor = ((b.cursor+step)%n + n) % n
	}
	snapshot := b.displayLocked()
	b.mu.Unlock()

	if moved {
		b.notify(ChangeDisplay)
	}
	return snapshot
}

// Select points the cursor at a queued message
func (b *Board) Select(id string) (domain.DisplayQueue, error) {
	b.mu.Lock()
	i := indexOf(b.display, id)
	if i < 0 {
		b.mu.Unlock()
		return domain.DisplayQueue{}, fmt.Errorf("%s: %w", id, domain.ErrMessageNotFound)
	}
	b.cursor = i
	snapshot := b.displayLocked()
	b.mu.Unlock()

	b.notify(ChangeDisplay)
	return snapshot, nil
}

// Display returns a snapshot of the queue
func (b *Board) Display() domain.DisplayQueue {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.displayLocked()
}

func (b *Board) displayLocked() domain.DisplayQueue {
	q := domain.DisplayQueue{
		Messages: make([]domain.Message, len(b.display)),
		Cursor:   b.cursor,
	}
	for i, m := range b.display {
		q.Messages[i] = m.Clone()
	}
	if b.cursor < len(q.Messages) {
		current := q.Messages[b.cursor]
		q.Current = &current
	}
	return q
}

// ClearDisplay empties the queue
func (b *Board) ClearDisplay() {
	b.mu.Lock()
	b.display = nil
	b.cursor = 0
	b.mu.Unlock()

	b.notify(ChangeDisplay)
}

func (b *Board) clampCursorLocked() {
	if b.cursor >= len(b.display) {
		b.cursor = len(b.display) - 1
	}
	if b.cursor < 0 {
		b.cursor = 0
	}
}

func (b *Board) displayedSetLocked() map[string]bool {
	set := make(map[string]bool, len(b.display))
	for _, m := range b.display {
		set[m.ID] = true
	}
	return set
}

// ============ History Log ============

// History returns every promotion, newest first
func (b *Board) History() []domain.HistoryEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.HistoryEntry{}, b.history...)
}

// ClearHistory empties the history log
func (b *Board) ClearHistory() {
	b.mu.Lock()
	b.history = nil
	b.mu.Unlock()

	b.notify(ChangeHistory)
}

// Reset purges connections, messages, queue and history
func (b *Board) Reset() {
	b.mu.Lock()
	b.connections = make(map[domain.Platform]domain.Connection)
	b.messages = nil
	b.display = nil
	b.cursor = 0
	b.history = nil
	b.mu.Unlock()

	b.logger.Info().Msg("board reset")
	b.notify(ChangeReset)
}

func indexOf(msgs []domain.Message, id string) int {
	for i, m := range msgs {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func filterMessages(msgs []domain.Message, keep func(domain.Message) bool) []domain.Message {
	result := msgs[:0:0]
	for _, m := range msgs {
		if keep(m) {
			result = append(result, m)
		}
	}
	return result
}
