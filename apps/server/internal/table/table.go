package table

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"holdem-live/apps/server/internal/logger"
	"holdem-live/card"
	"holdem-live/holdem"
)

// Table is the actor that owns one holdem.Table. Every mutation runs on its goroutine, in
// the order events were accepted.
type Table struct {
	ID string

	mu       sync.RWMutex
	state    *holdem.Table
	closed   bool
	stopOnce sync.Once
	emptied  bool

	// Event channel for actor pattern
	events chan Event
	done   chan struct{}

	out      Broadcaster
	store    Persister
	log      *zap.Logger
	clock    func() time.Time
	deck     func() (card.Deck, error)
	handID   func() string
	onEmpty  func(t *Table)
	onAlert  func(tableID string, v *holdem.InvariantViolation)
	tickRate time.Duration
}

// Broadcaster delivers one frame to every connection of a user.
type Broadcaster interface {
	Deliver(userID string, msg Outbound)
}

// Persister takes durable writes off the actor. Calls must not block.
type Persister interface {
	SaveTable(t *holdem.Table)
	DeleteTable(id string)
	AppendHand(rec *holdem.CompletedHand)
}

type Options struct {
	Broadcaster Broadcaster
	Persister   Persister
	Logger      *zap.Logger
	Clock       func() time.Time
	// Deck defaults to a fresh crypto/rand shuffle per hand.
	Deck   func() (card.Deck, error)
	HandID func() string
	// OnEmpty runs on its own goroutine once the last seat is freed.
	OnEmpty func(t *Table)
	// OnAlert receives chip invariant violations after they are logged.
	OnAlert      func(tableID string, v *holdem.InvariantViolation)
	TickInterval time.Duration
}

// Event types for the actor message queue
type EventType int

const (
	EventJoin EventType = iota
	EventLeave
	EventReady
	EventStart
	EventAction
	EventChat
	EventSync
	EventSettings
	EventPresence
	EventClose
)

var eventNames = map[EventType]string{
	EventJoin:     "join",
	EventLeave:    "leave",
	EventReady:    "ready",
	EventStart:    "start",
	EventAction:   "action",
	EventChat:     "chat",
	EventSync:     "sync",
	EventSettings: "settings",
	EventPresence: "presence",
	EventClose:    "close",
}

func (e EventType) String() string {
	if s, ok := eventNames[e]; ok {
		return s
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// Event represents a message to the table actor
type Event struct {
	Type     EventType
	UserID   string
	Nickname string
	Password string
	Ready    bool
	Absent   bool
	Action   holdem.ActionType
	Amount   int64
	Text     string
	Settings holdem.Settings

	Timestamp time.Time
	Response  chan error
}

const maxChatRunes = 500

var (
	ErrTableClosed = errors.New("table closed")
	ErrEmptyChat   = errors.New("chat message is empty")
	ErrInternal    = errors.New("internal error")
)

// ReasonOf extends holdem.ReasonOf with the actor's own errors.
func ReasonOf(err error) holdem.Reason {
	switch {
	case errors.Is(err, ErrTableClosed):
		return "table-closed"
	case errors.Is(err, ErrEmptyChat):
		return "empty-chat"
	}
	return holdem.ReasonOf(err)
}

type nopBroadcaster struct{}

func (nopBroadcaster) Deliver(string, Outbound) {}

type nopPersister struct{}

func (nopPersister) SaveTable(*holdem.Table) {}
func (nopPersister) DeleteTable(string) {}
func (nopPersister) AppendHand(*holdem.CompletedHand) {}

// New starts the actor for state. The actor owns state from now on.
func New(state *holdem.Table, opt Options) *Table {
	t := &Table{
		ID:       state.ID,
		state:    state,
		events:   make(chan Event, 256),
		done:     make(chan struct{}),
		out:      opt.Broadcaster,
		store:    opt.Persister,
		log:      logger.OrNop(opt.Logger).Named("table").With(zap.String("table", state.ID)),
		clock:    opt.Clock,
		deck:     opt.Deck,
		handID:   opt.HandID,
		onEmpty:  opt.OnEmpty,
		onAlert:  opt.OnAlert,
		tickRate: opt.TickInterval,
	}
	if t.out == nil {
		t.out = nopBroadcaster{}
	}
	if t.store == nil {
		t.store = nopPersister{}
	}
	if t.clock == nil {
		t.clock = time.Now
	}
	if t.deck == nil {
		t.deck = card.NewShuffledDeck
	}
	if t.handID == nil {
		t.handID = uuid.NewString
	}
	if t.tickRate <= 0 {
		t.tickRate = 500 * time.Millisecond
	}

	go t.run()

	t.log.Info("table actor started",
		zap.Int("seats", len(state.Seats)),
		zap.Int64("sb", state.Settings.SmallBlind),
		zap.Int64("bb", state.Settings.BigBlind),
	)
	return t
}

// run is the main actor loop
func (t *Table) run() {
	// Sub-second heartbeat for turn deadlines.
	ticker := time.NewTicker(t.tickRate)
	defer ticker.Stop()

	for {
		select {
		case event := <-t.events:
			err := t.safeHandle(event)
			if event.Response != nil {
				event.Response <- err
			}
		case <-ticker.C:
			t.tick()
		case <-t.done:
			t.log.Info("table actor stopped")
			return
		}
	}
}

// safeHandle turns a panic into a rejected event. The engine only swaps state on a
// successful commit, so the table stays at its last good version.
func (t *Table) safeHandle(e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("event handler panicked",
				zap.Stringer("event", e.Type),
				zap.String("user", e.UserID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
				logger.Alert(),
			)
			err = ErrInternal
		}
	}()
	return t.handleEvent(e)
}

// handleEvent processes a single event
func (t *Table) handleEvent(e Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed && e.Type != EventClose {
		return ErrTableClosed
	}
	now := e.Timestamp
	if now.IsZero() {
		now = t.clock()
	}

	switch e.Type {
	case EventJoin:
		return t.handleJoin(e, now)
	case EventLeave:
		return t.handleLeave(e.UserID, now)
	case EventReady:
		if err := t.state.SetReady(e.UserID, e.Ready, now); err != nil {
			return err
		}
		t.committed(MsgTableUpdated)
		return nil
	case EventStart:
		return t.handleStart(e.UserID, now)
	case EventAction:
		return t.handleAction(e.UserID, e.Action, e.Amount, now)
	case EventChat:
		return t.handleChat(e.UserID, e.Text, now)
	case EventSync:
		t.sendSnapshot(e.UserID, MsgTableUpdated)
		return nil
	case EventSettings:
		if err := t.state.UpdateSettings(e.UserID, e.Settings, now); err != nil {
			return err
		}
		t.committed(MsgTableUpdated)
		return nil
	case EventPresence:
		return t.handlePresence(e.UserID, e.Absent, now)
	case EventClose:
		t.stopLocked()
		return nil
	default:
		return fmt.Errorf("unknown event type: %d", e.Type)
	}
}

func (t *Table) handleJoin(e Event, now time.Time) error {
	res, err := t.state.Join(e.UserID, e.Nickname, e.Password, now)
	if err != nil {
		return err
	}
	t.emptied = false
	t.log.Info("player joined",
		zap.String("user", e.UserID),
		zap.Int("seat", res.Seat),
		zap.Bool("rejoined", res.Rejoined),
	)
	t.committed(MsgTableUpdated)
	return nil
}

func (t *Table) handleLeave(userID string, now time.Time) error {
	res, err := t.state.Leave(userID, now)
	if err != nil {
		return err
	}
	t.log.Info("player left",
		zap.String("user", userID),
		zap.Int("seat", res.Seat),
		zap.Bool("freed", res.Freed),
		zap.String("newOwner", res.NewOwner),
	)
	t.out.Deliver(userID, Outbound{Type: MsgLeft, TableID: t.ID, Data: LeftMessage{TableID: t.ID}})
	t.committed(MsgTableUpdated)
	return nil
}

func (t *Table) handleStart(userID string, now time.Time) error {
	if err := t.state.CanStart(userID); err != nil {
		return err
	}
	deck, err := t.deck()
	if err != nil {
		return fmt.Errorf("shuffle: %w", err)
	}
	out, err := t.state.StartHand(userID, deck, t.handID(), now)
	if err != nil {
		return err
	}
	h := t.state.Hand
	t.log.Info("hand started",
		zap.String("hand", h.ID),
		zap.Int("number", h.Number),
		zap.Int("dealer", h.Dealer),
		zap.String("commitment", h.Commitment),
	)
	t.applyOutcome(out)
	return nil
}

func (t *Table) handleAction(userID string, kind holdem.ActionType, amount int64, now time.Time) error {
	out, err := t.state.ActAs(userID, kind, amount, now)
	if err != nil {
		return err
	}
	t.applyOutcome(out)
	return nil
}

func (t *Table) handleChat(userID, text string, now time.Time) error {
	s := t.state.SeatOf(userID)
	if s == nil {
		return holdem.ErrNotSeated
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyChat
	}
	if r := []rune(text); len(r) > maxChatRunes {
		text = string(r[:maxChatRunes])
	}
	msg := ChatMessage{UserID: userID, Nickname: s.Nickname, Text: text, Timestamp: now.UnixMilli()}
	for _, member := range t.state.Members() {
		t.out.Deliver(member, Outbound{Type: MsgChat, TableID: t.ID, Data: msg})
	}
	return nil
}

// handlePresence records a connection drop or return. A return with nothing to change still
// pushes the current snapshot to the returning user.
func (t *Table) handlePresence(userID string, absent bool, now time.Time) error {
	changed, err := t.state.SetAbsent(userID, absent, now)
	if err != nil {
		return err
	}
	if changed {
		t.committed(MsgTableUpdated)
		return nil
	}
	if !absent {
		t.sendSnapshot(userID, MsgTableUpdated)
	}
	return nil
}

func (t *Table) tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	out, err := t.state.Timeout(t.clock())
	if err != nil {
		t.log.Error("turn timeout failed", zap.Error(err))
		return
	}
	if out == nil {
		return
	}
	if a := out.Action; a != nil {
		t.log.Info("turn timed out",
			zap.Int("seat", a.Seat),
			zap.String("user", a.UserID),
			zap.Stringer("auto", a.Kind),
		)
	}
	t.applyOutcome(out)
}

// applyOutcome persists and broadcasts an accepted engine operation.
func (t *Table) applyOutcome(out *holdem.Outcome) {
	if v := out.Violation; v != nil {
		t.log.Error("chip invariant violated",
			zap.String("hand", v.HandID),
			zap.String("where", v.Where),
			zap.Int64("expected", v.Expected),
			zap.Int64("actual", v.Actual),
			logger.Alert(),
		)
		if t.onAlert != nil {
			t.onAlert(t.ID, v)
		}
	}
	if rec := out.Record; rec != nil {
		t.store.AppendHand(rec)
		t.log.Info("hand ended",
			zap.String("hand", rec.HandID),
			zap.Int("number", rec.HandNumber),
			zap.Stringer("phase", rec.FinalPhase),
			zap.Ints("winners", rec.Winners),
		)
	}
	kind := MsgTableUpdated
	if out.HandStarted {
		kind = MsgHandStarted
	}
	t.committed(kind)
}

// committed runs after every accepted mutation: one durable write, then one frame per member.
func (t *Table) committed(kind string) {
	t.store.SaveTable(t.state)
	for _, member := range t.state.Members() {
		t.sendSnapshot(member, kind)
	}
	if t.state.IsEmpty() && !t.emptied {
		t.emptied = true
		if t.onEmpty != nil {
			go t.onEmpty(t)
		}
	}
}

func (t *Table) sendSnapshot(userID, kind string) {
	t.out.Deliver(userID, Outbound{Type: kind, TableID: t.ID, Data: t.state.Snapshot(userID)})
}

// SubmitEvent sends an event to the actor and waits for its result.
func (t *Table) SubmitEvent(e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = t.clock()
	}
	if e.Response == nil {
		e.Response = make(chan error, 1)
	}

	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return ErrTableClosed
	}

	select {
	case t.events <- e:
	case <-t.done:
		return ErrTableClosed
	}

	select {
	case err := <-e.Response:
		return err
	case <-t.done:
		return ErrTableClosed
	}
}

// Stop shuts down the table actor
func (t *Table) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Table) stopLocked() {
	t.closed = true
	t.stopOnce.Do(func() {
		close(t.done)
	})
}

// CloseIfIdle stops the actor when it is idle for ttl. Check and stop happen under one lock
// so a hand cannot start in between.
func (t *Table) CloseIfIdle(ttl time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return true
	}
	if t.state.Status != holdem.StatusWaiting || t.clock().Sub(t.state.LastActivityAt) < ttl {
		return false
	}
	t.stopLocked()
	return true
}

func (t *Table) IsClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}

// Snapshot returns the viewer-scoped state (thread-safe)
func (t *Table) Snapshot(viewer string) holdem.View {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.Snapshot(viewer)
}

func (t *Table) Version() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.Version
}

// Summary is the lobby listing line for a table.
type Summary struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Status   holdem.Status `json:"status"`
	Seated   int           `json:"seated"`
	MaxSeats int           `json:"maxSeats"`
	Locked   bool          `json:"locked"`
}

func (t *Table) Summary() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Summary{
		ID:       t.ID,
		Name:     t.state.Name,
		Status:   t.state.Status,
		Seated:   len(t.state.Occupied()),
		MaxSeats: t.state.Settings.MaxSeats,
		Locked:   len(t.state.PasswordHash) > 0,
	}
}

// IsMember reports whether userID holds a seat.
func (t *Table) IsMember(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.SeatOf(userID) != nil
}
