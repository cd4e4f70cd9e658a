package chatsession

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Status is the connection state of a session.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusError
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Send-path precondition failures. All are rejected locally, before any
// transport call.
var (
	ErrEmptyMessage   = errors.New("chatsession: message body is empty")
	ErrNoConversation = errors.New("chatsession: no active conversation")
	ErrNotConnected   = errors.New("chatsession: transport not connected")
)

// DefaultJoinTimeout bounds how long a session waits for a join
// confirmation before giving up on the room.
const DefaultJoinTimeout = 10 * time.Second

// Callbacks lets the owning view observe session activity. All fields are
// optional. Callbacks are invoked with the session lock released and may be
// called from the transport's reader goroutine.
type Callbacks struct {
	// OnAppend fires when a newly delivered message is accepted.
	OnAppend func(Message)
	// OnHistory fires when a room's history replaces the local list.
	OnHistory func([]Message)
	// OnStatus fires on every connection status transition.
	OnStatus func(Status)
	// OnNotice carries non-fatal, user-visible notifications.
	OnNotice func(string)
}

// Manager owns one active conversation session: the currently selected
// partner's room, its messages, and the connection status. It keeps local
// state consistent with both locally sent and remotely delivered events.
//
// A sent message is not appended locally; it arrives back through the
// normal delivery path and is deduplicated there, keeping the relay echo
// the single source of truth.
type Manager struct {
	transport Transport
	self      Identity
	logger    zerolog.Logger
	callbacks Callbacks

	joinTimeout time.Duration
	now         func() time.Time

	mu        sync.Mutex
	status    Status
	partner   *Participant
	roomID    string
	joined    bool
	messages  []Message
	seen      map[string]struct{}
	joinTimer *time.Timer
	closed    bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithJoinTimeout overrides the join-ack timeout.
func WithJoinTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.joinTimeout = d
	}
}

// WithClock overrides the time source used to stamp outbound messages.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithCallbacks sets the observer callbacks.
func WithCallbacks(cb Callbacks) Option {
	return func(m *Manager) {
		m.callbacks = cb
	}
}

// NewManager creates a session manager for the signed-in identity over the
// given transport. Handlers are registered immediately; call Connect to
// establish the connection.
func NewManager(transport Transport, self Identity, logger zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		transport:   transport,
		self:        self,
		logger:      logger.With().Str("component", "session").Str("user", self.ID).Logger(),
		joinTimeout: DefaultJoinTimeout,
		now:         time.Now,
		seen:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	transport.On(EventChatMessage, m.handleChatMessage)
	transport.On(EventRoomCreated, m.handleRoomCreated)
	transport.On(EventPreviousMessages, m.handlePreviousMessages)
	transport.On(EventConnectError, m.handleConnectError)

	return m
}

// Connect establishes the transport connection. Idempotent: calling while
// already connected (or connecting) is a no-op. On failure the session
// enters StatusError and a notification is surfaced; the error is also
// returned.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("chatsession: session closed")
	}
	if m.status == StatusConnected || m.status == StatusConnecting {
		m.mu.Unlock()
		return nil
	}
	changed := m.setStatusLocked(StatusConnecting)
	m.mu.Unlock()
	m.fireStatus(changed, StatusConnecting)

	if err := m.transport.Connect(ctx); err != nil {
		m.mu.Lock()
		changed = m.setStatusLocked(StatusError)
		m.mu.Unlock()
		m.fireStatus(changed, StatusError)
		m.notify("Failed to connect to chat server")
		return err
	}

	m.mu.Lock()
	changed = m.setStatusLocked(StatusConnected)
	m.mu.Unlock()
	m.fireStatus(changed, StatusConnected)
	return nil
}

// SelectConversation makes partner the active conversation: derives the
// canonical room id, clears the local message list, and requests room
// membership. Selecting the already-active partner is a no-op. History is
// requested only after the join is confirmed; if no confirmation arrives
// within the join timeout the session enters StatusError.
func (m *Manager) SelectConversation(partner Participant) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("chatsession: session closed")
	}
	if m.status != StatusConnected {
		m.mu.Unlock()
		return ErrNotConnected
	}
	if m.partner != nil && m.partner.ID == partner.ID {
		m.mu.Unlock()
		return nil
	}

	roomID := DeriveRoomID(m.self.ID, partner.ID)
	p := partner
	m.partner = &p
	m.roomID = roomID
	m.joined = false
	m.clearMessagesLocked()
	m.resetJoinTimerLocked(roomID)
	m.mu.Unlock()

	m.logger.Debug().Str("room", roomID).Str("partner", partner.ID).Msg("joining room")

	return m.transport.Emit(EventCreateRoom, JoinRequest{
		RoomID:   roomID,
		UserID:   m.self.ID,
		Username: m.self.Name,
		Email:    m.self.Email,
		ImageURL: m.self.AvatarURL,
	})
}

// SendMessage publishes a message to the active room. The body must be
// non-empty after trimming, a conversation must be selected, and the
// transport must be connected; otherwise the send is rejected locally. The
// outbound message is tagged with the opposite of the partner's role and is
// not appended locally.
func (m *Manager) SendMessage(body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return ErrEmptyMessage
	}

	m.mu.Lock()
	if m.partner == nil {
		m.mu.Unlock()
		return ErrNoConversation
	}
	if m.status != StatusConnected {
		m.mu.Unlock()
		return ErrNotConnected
	}
	msg := Message{
		RoomID:     m.roomID,
		SenderID:   m.self.ID,
		SenderName: m.self.Name,
		Body:       body,
		SenderRole: m.partner.Role.Opposite(),
		Timestamp:  m.now().UnixMilli(),
		Nonce:      uuid.NewString(),
	}
	m.mu.Unlock()

	return m.transport.Emit(EventChatMessage, msg)
}

// Close releases the transport connection. Safe to call multiple times and
// safe to call on a session that never connected.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.stopJoinTimerLocked()
	changed := m.setStatusLocked(StatusDisconnected)
	m.mu.Unlock()
	m.fireStatus(changed, StatusDisconnected)

	return m.transport.Close()
}

// Status returns the current connection status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// ActiveRoom returns the id of the active room, or "" when no conversation
// is selected.
func (m *Manager) ActiveRoom() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roomID
}

// Partner returns the active conversation partner, or nil.
func (m *Manager) Partner() *Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.partner == nil {
		return nil
	}
	p := *m.partner
	return &p
}

// Messages returns a copy of the active room's messages in chronological
// order.
func (m *Manager) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// handleRoomCreated runs on a join confirmation. A confirmation for a room
// other than the active one is stale and ignored. On success the second
// phase of the join starts: a history request for the room.
func (m *Manager) handleRoomCreated(data json.RawMessage) {
	var ack JoinAck
	if err := json.Unmarshal(data, &ack); err != nil {
		m.logger.Warn().Err(err).Msg("malformed join ack")
		return
	}

	m.mu.Lock()
	if ack.RoomID != m.roomID {
		m.mu.Unlock()
		return
	}
	m.stopJoinTimerLocked()
	if !ack.Success {
		changed := m.setStatusLocked(StatusError)
		m.mu.Unlock()
		m.fireStatus(changed, StatusError)
		m.notify("Could not join conversation")
		return
	}
	m.joined = true
	roomID := m.roomID
	m.mu.Unlock()

	m.logger.Debug().Str("room", roomID).Msg("room joined, requesting history")
	if err := m.transport.Emit(EventGetMessages, HistoryRequest{RoomID: roomID}); err != nil {
		m.logger.Warn().Err(err).Str("room", roomID).Msg("history request failed")
	}
}

// handlePreviousMessages runs on a history response. The local list is
// replaced wholesale, trusting relay order; a response for a room other
// than the active one (a late reply after a fast room switch) is discarded
// silently.
func (m *Manager) handlePreviousMessages(data json.RawMessage) {
	var hist HistoryResponse
	if err := json.Unmarshal(data, &hist); err != nil {
		m.logger.Warn().Err(err).Msg("malformed history response")
		return
	}

	m.mu.Lock()
	if hist.RoomID != m.roomID {
		m.mu.Unlock()
		m.logger.Debug().Str("room", hist.RoomID).Msg("discarding stale history")
		return
	}
	m.clearMessagesLocked()
	for _, msg := range hist.Messages {
		m.messages = append(m.messages, msg)
		m.seen[msg.DedupKey()] = struct{}{}
	}
	snapshot := make([]Message, len(m.messages))
	copy(snapshot, m.messages)
	m.mu.Unlock()

	if m.callbacks.OnHistory != nil {
		m.callbacks.OnHistory(snapshot)
	}
}

// handleChatMessage runs on every delivered message, own echoes included.
// A message already present under its (senderId, timestamp) key is a
// duplicate and dropped; a message for a non-active room is discarded the
// same way stale history is.
func (m *Manager) handleChatMessage(data json.RawMessage) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		m.logger.Warn().Err(err).Msg("malformed message")
		return
	}

	m.mu.Lock()
	if msg.RoomID != "" && msg.RoomID != m.roomID {
		m.mu.Unlock()
		return
	}
	key := msg.DedupKey()
	if _, dup := m.seen[key]; dup {
		m.mu.Unlock()
		return
	}
	m.seen[key] = struct{}{}
	m.messages = append(m.messages, msg)
	m.mu.Unlock()

	if m.callbacks.OnAppend != nil {
		m.callbacks.OnAppend(msg)
	}
}

// handleConnectError runs when the transport reports a connection failure.
// Non-fatal: the session enters StatusError and stays there until an
// explicit reconnect.
func (m *Manager) handleConnectError(data json.RawMessage) {
	var ce ConnectError
	_ = json.Unmarshal(data, &ce)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.stopJoinTimerLocked()
	changed := m.setStatusLocked(StatusError)
	m.mu.Unlock()
	m.fireStatus(changed, StatusError)

	m.logger.Warn().Str("reason", ce.Message).Msg("connection error")
	m.notify("Failed to connect to chat server")
}

// resetJoinTimerLocked arms the join-ack timeout for roomID. If the timer
// fires while that room is still active and unconfirmed, the session is
// treated as failed.
func (m *Manager) resetJoinTimerLocked(roomID string) {
	m.stopJoinTimerLocked()
	if m.joinTimeout <= 0 {
		return
	}
	m.joinTimer = time.AfterFunc(m.joinTimeout, func() {
		m.mu.Lock()
		if m.closed || m.roomID != roomID || m.joined {
			m.mu.Unlock()
			return
		}
		changed := m.setStatusLocked(StatusError)
		m.mu.Unlock()
		m.fireStatus(changed, StatusError)

		m.logger.Warn().Str("room", roomID).Msg("join not confirmed before timeout")
		m.notify("Conversation is not responding")
	})
}

func (m *Manager) stopJoinTimerLocked() {
	if m.joinTimer != nil {
		m.joinTimer.Stop()
		m.joinTimer = nil
	}
}

func (m *Manager) clearMessagesLocked() {
	m.messages = nil
	m.seen = make(map[string]struct{})
}

// setStatusLocked records a status transition. Must be called with the lock
// held; the caller fires the observer callback via fireStatus once the lock
// is released.
func (m *Manager) setStatusLocked(s Status) bool {
	if m.status == s {
		return false
	}
	m.status = s
	return true
}

func (m *Manager) fireStatus(changed bool, s Status) {
	if changed && m.callbacks.OnStatus != nil {
		m.callbacks.OnStatus(s)
	}
}

func (m *Manager) notify(text string) {
	if m.callbacks.OnNotice != nil {
		m.callbacks.OnNotice(text)
	}
}
