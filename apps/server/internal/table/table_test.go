package table

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"holdem-live/card"
	"holdem-live/holdem"
)

type recorder struct {
	mu     sync.Mutex
	frames map[string][]Outbound
}

func (r *recorder) Deliver(userID string, msg Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frames == nil {
		r.frames = make(map[string][]Outbound)
	}
	r.frames[userID] = append(r.frames[userID], msg)
}

func (r *recorder) of(userID string) []Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Outbound(nil), r.frames[userID]...)
}

type memPersister struct {
	mu    sync.Mutex
	saves []uint64
	hands []*holdem.CompletedHand
	gone  []string
}

func (p *memPersister) SaveTable(t *holdem.Table) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves = append(p.saves, t.Version)
}

func (p *memPersister) DeleteTable(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gone = append(p.gone, id)
}

func (p *memPersister) AppendHand(rec *holdem.CompletedHand) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hands = append(p.hands, rec)
}

func (p *memPersister) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.saves), len(p.hands)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	t     *testing.T
	tbl   *Table
	out   *recorder
	store *memPersister
	clock *fakeClock
	empty chan string
}

func newHarness(t *testing.T, opt Options) *harness {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
	state, err := holdem.NewTable("T1", "", "", holdem.DefaultSettings(), holdem.DefaultPolicy(), "", clock.Now())
	if err != nil {
		t.Fatalf("NewTable err: %v", err)
	}
	h := &harness{t: t, out: &recorder{}, store: &memPersister{}, clock: clock, empty: make(chan string, 1)}
	opt.Broadcaster = h.out
	opt.Persister = h.store
	opt.Clock = clock.Now
	if opt.Deck == nil {
		opt.Deck = func() (card.Deck, error) { return card.NewDeckFromString("") }
	}
	opt.OnEmpty = func(tbl *Table) { h.empty <- tbl.ID }
	opt.TickInterval = time.Hour
	h.tbl = New(state, opt)
	t.Cleanup(h.tbl.Stop)
	return h
}

func (h *harness) submit(e Event) error {
	h.clock.Advance(time.Second)
	return h.tbl.SubmitEvent(e)
}

func (h *harness) must(e Event) {
	h.t.Helper()
	if err := h.submit(e); err != nil {
		h.t.Fatalf("%s by %s: %v", e.Type, e.UserID, err)
	}
}

// seatAndStart joins users, readies them and deals.
func (h *harness) seatAndStart(users ...string) {
	h.t.Helper()
	for _, u := range users {
		h.must(Event{Type: EventJoin, UserID: u})
	}
	for _, u := range users {
		h.must(Event{Type: EventReady, UserID: u, Ready: true})
	}
	h.must(Event{Type: EventStart, UserID: users[0]})
}

func (h *harness) actingUser() string {
	h.t.Helper()
	v := h.tbl.Snapshot("")
	if v.Hand == nil {
		h.t.Fatalf("no hand in progress")
	}
	for _, s := range v.Seats {
		if s.Index == v.Hand.Acting {
			return s.UserID
		}
	}
	h.t.Fatalf("acting seat %d not in view", v.Hand.Acting)
	return ""
}

func TestActor_OneViewerScopedFramePerMutation(t *testing.T) {
	h := newHarness(t, Options{})
	h.seatAndStart("u0", "u1")

	frames := h.out.of("u1")
	// join u1, ready u0, ready u1, start
	if len(frames) != 4 {
		t.Fatalf("u1 frames=%d want 4", len(frames))
	}
	var last uint64
	for i, f := range frames {
		v, ok := f.Data.(holdem.View)
		if !ok {
			t.Fatalf("frame %d data=%T", i, f.Data)
		}
		if v.Viewer.UserID != "u1" || f.TableID != "T1" {
			t.Fatalf("frame %d scoped to %q", i, v.Viewer.UserID)
		}
		if i > 0 && v.Version != last+1 {
			t.Fatalf("frame %d version %d after %d", i, v.Version, last)
		}
		last = v.Version
	}
	if frames[3].Type != MsgHandStarted {
		t.Fatalf("last frame type=%q", frames[3].Type)
	}
	start := frames[3].Data.(holdem.View)
	for _, s := range start.Seats {
		if s.UserID != "u1" && len(s.HoleCards) != 0 {
			t.Fatalf("u1 saw %s cards", s.UserID)
		}
	}
	if saves, _ := h.store.counts(); saves != 5 {
		t.Fatalf("saves=%d want one per mutation", saves)
	}
}

func TestActor_RejectionBroadcastsNothing(t *testing.T) {
	h := newHarness(t, Options{})
	h.seatAndStart("u0", "u1")
	waiting := "u0"
	if h.actingUser() == "u0" {
		waiting = "u1"
	}
	before := len(h.out.of("u0")) + len(h.out.of("u1"))
	saves, _ := h.store.counts()
	version := h.tbl.Version()

	err := h.submit(Event{Type: EventAction, UserID: waiting, Action: holdem.PlayerActionTypeCheck})
	if ReasonOf(err) != holdem.ReasonNotYourTurn {
		t.Fatalf("err=%v want not-your-turn", err)
	}
	if err := h.submit(Event{Type: EventJoin, UserID: "late"}); !errors.Is(err, holdem.ErrTablePlaying) {
		t.Fatalf("join while playing err=%v", err)
	}
	after := len(h.out.of("u0")) + len(h.out.of("u1"))
	nowSaves, _ := h.store.counts()
	if after != before || nowSaves != saves || h.tbl.Version() != version {
		t.Fatalf("rejected events changed something: frames %d->%d saves %d->%d", before, after, saves, nowSaves)
	}
}

func TestActor_FinishedHandIsArchived(t *testing.T) {
	h := newHarness(t, Options{})
	h.seatAndStart("u0", "u1")
	h.must(Event{Type: EventAction, UserID: h.actingUser(), Action: holdem.PlayerActionTypeFold})

	_, hands := h.store.counts()
	if hands != 1 {
		t.Fatalf("archived hands=%d", hands)
	}
	v := h.tbl.Snapshot("u0")
	if v.Status != holdem.StatusWaiting || v.Hand != nil || v.LastResult == nil {
		t.Fatalf("table after hand: status=%s hand=%v", v.Status, v.Hand)
	}
	if v.Seats[0].Chips+v.Seats[1].Chips != 2000 {
		t.Fatalf("chips not conserved")
	}
}

func TestActor_ChatDoesNotMutate(t *testing.T) {
	h := newHarness(t, Options{})
	h.must(Event{Type: EventJoin, UserID: "u0", Nickname: "Ann"})
	h.must(Event{Type: EventJoin, UserID: "u1"})
	version := h.tbl.Version()
	saves, _ := h.store.counts()

	h.must(Event{Type: EventChat, UserID: "u0", Text: "  gl hf  "})
	for _, u := range []string{"u0", "u1"} {
		frames := h.out.of(u)
		last := frames[len(frames)-1]
		msg, ok := last.Data.(ChatMessage)
		if last.Type != MsgChat || !ok || msg.Text != "gl hf" || msg.Nickname != "Ann" {
			t.Fatalf("%s got %+v", u, last)
		}
	}
	if h.tbl.Version() != version {
		t.Fatalf("chat bumped version")
	}
	if now, _ := h.store.counts(); now != saves {
		t.Fatalf("chat was persisted")
	}

	h.must(Event{Type: EventChat, UserID: "u1", Text: strings.Repeat("é", 600)})
	frames := h.out.of("u0")
	if got := len([]rune(frames[len(frames)-1].Data.(ChatMessage).Text)); got != maxChatRunes {
		t.Fatalf("chat runes=%d", got)
	}
	if err := h.submit(Event{Type: EventChat, UserID: "u1", Text: "   "}); !errors.Is(err, ErrEmptyChat) {
		t.Fatalf("err=%v want empty chat", err)
	}
	if err := h.submit(Event{Type: EventChat, UserID: "stranger", Text: "hi"}); !errors.Is(err, holdem.ErrNotSeated) {
		t.Fatalf("err=%v want not seated", err)
	}
}

func TestActor_SyncRepliesToRequesterOnly(t *testing.T) {
	h := newHarness(t, Options{})
	h.must(Event{Type: EventJoin, UserID: "u0"})
	h.must(Event{Type: EventJoin, UserID: "u1"})
	n0, n1 := len(h.out.of("u0")), len(h.out.of("u1"))

	h.must(Event{Type: EventSync, UserID: "u1"})
	h.must(Event{Type: EventSync, UserID: "u1"})
	f1 := h.out.of("u1")
	if len(h.out.of("u0")) != n0 || len(f1) != n1+2 {
		t.Fatalf("sync frames leaked or missing")
	}
	a, b := f1[len(f1)-2].Data.(holdem.View), f1[len(f1)-1].Data.(holdem.View)
	if a.Version != b.Version {
		t.Fatalf("sync is not idempotent: %d vs %d", a.Version, b.Version)
	}
}

func TestActor_TimeoutAutoActs(t *testing.T) {
	h := newHarness(t, Options{})
	h.seatAndStart("u0", "u1")
	acting := h.actingUser()

	h.clock.Advance(holdem.DefaultTurnTimeout - 2*time.Second)
	h.tbl.tick()
	if h.actingUser() != acting {
		t.Fatalf("turn advanced before the deadline")
	}
	h.clock.Advance(5 * time.Second)
	h.tbl.tick()

	// the small blind faces the big blind preflop, so the auto action is a fold
	_, hands := h.store.counts()
	if hands != 1 {
		t.Fatalf("hand not finished by timeout fold")
	}
	h.store.mu.Lock()
	rec := h.store.hands[0]
	h.store.mu.Unlock()
	last := rec.Actions[len(rec.Actions)-1]
	if !last.Auto || last.Kind != holdem.PlayerActionTypeFold || last.UserID != acting {
		t.Fatalf("last action=%+v", last)
	}
}

func TestActor_AbsentPlayerKeepsSeat(t *testing.T) {
	h := newHarness(t, Options{})
	h.seatAndStart("u0", "u1")
	acting := h.actingUser()

	h.must(Event{Type: EventPresence, UserID: acting, Absent: true})
	for _, s := range h.tbl.Snapshot("").Seats {
		if s.UserID == acting && !s.Absent {
			t.Fatalf("seat not marked absent")
		}
	}
	n := len(h.out.of(acting))
	h.must(Event{Type: EventPresence, UserID: acting, Absent: false})
	h.must(Event{Type: EventPresence, UserID: acting, Absent: false})
	if got := len(h.out.of(acting)); got != n+2 {
		t.Fatalf("returning user frames=%d want %d", got, n+2)
	}
	h.must(Event{Type: EventAction, UserID: acting, Action: holdem.PlayerActionTypeCall})
}

func TestActor_LastLeaveEmptiesTable(t *testing.T) {
	h := newHarness(t, Options{})
	h.must(Event{Type: EventJoin, UserID: "u0"})
	h.must(Event{Type: EventJoin, UserID: "u1"})
	h.must(Event{Type: EventLeave, UserID: "u0"})

	frames := h.out.of("u0")
	if last := frames[len(frames)-1]; last.Type != MsgLeft {
		t.Fatalf("leaver last frame=%q", last.Type)
	}
	if v := h.tbl.Snapshot(""); v.OwnerID != "u1" {
		t.Fatalf("owner=%q want u1", v.OwnerID)
	}
	h.must(Event{Type: EventLeave, UserID: "u1"})
	select {
	case id := <-h.empty:
		if id != "T1" {
			t.Fatalf("empty id=%q", id)
		}
	case <-time.After(time.Second):
		t.Fatalf("OnEmpty not called")
	}
}

func TestActor_PanicLeavesStateAtLastCommit(t *testing.T) {
	h := newHarness(t, Options{Deck: func() (card.Deck, error) { panic("shuffler exploded") }})
	h.must(Event{Type: EventJoin, UserID: "u0"})
	h.must(Event{Type: EventJoin, UserID: "u1"})
	h.must(Event{Type: EventReady, UserID: "u0", Ready: true})
	h.must(Event{Type: EventReady, UserID: "u1", Ready: true})
	version := h.tbl.Version()

	if err := h.submit(Event{Type: EventStart, UserID: "u0"}); !errors.Is(err, ErrInternal) {
		t.Fatalf("err=%v want internal", err)
	}
	if h.tbl.Version() != version || h.tbl.Snapshot("").Status != holdem.StatusWaiting {
		t.Fatalf("panic left a partial hand")
	}
	h.must(Event{Type: EventReady, UserID: "u1", Ready: false})
}

func TestActor_InvariantViolationAlerts(t *testing.T) {
	alerts := make(chan *holdem.InvariantViolation, 4)
	h := newHarness(t, Options{OnAlert: func(_ string, v *holdem.InvariantViolation) { alerts <- v }})
	h.seatAndStart("u0", "u1")

	h.tbl.mu.Lock()
	for _, s := range h.tbl.state.Seats {
		if s != nil {
			s.Chips += 7
			break
		}
	}
	h.tbl.mu.Unlock()

	h.must(Event{Type: EventAction, UserID: h.actingUser(), Action: holdem.PlayerActionTypeCall})
	select {
	case v := <-alerts:
		if v.Actual-v.Expected != 7 {
			t.Fatalf("violation=%+v", v)
		}
	default:
		t.Fatalf("no alert for a broken chip total")
	}
}

func TestActor_ClosedTableRejects(t *testing.T) {
	h := newHarness(t, Options{})
	h.must(Event{Type: EventJoin, UserID: "u0"})
	h.tbl.Stop()
	if err := h.submit(Event{Type: EventJoin, UserID: "u1"}); !errors.Is(err, ErrTableClosed) {
		t.Fatalf("err=%v want closed", err)
	}
	if ReasonOf(ErrTableClosed) != "table-closed" {
		t.Fatalf("reason=%q", ReasonOf(ErrTableClosed))
	}
	if !h.tbl.CloseIfIdle(time.Hour) {
		t.Fatalf("closed table not idle")
	}
}

func TestActor_IdleOnlyWhileWaiting(t *testing.T) {
	h := newHarness(t, Options{})
	h.seatAndStart("u0", "u1")
	h.clock.Advance(time.Hour)
	if h.tbl.CloseIfIdle(time.Minute) || h.tbl.IsClosed() {
		t.Fatalf("table in a hand closed as idle")
	}
	h.tbl.tick() // times out the acting seat and ends the hand
	h.clock.Advance(2 * time.Minute)
	if !h.tbl.CloseIfIdle(time.Minute) || !h.tbl.IsClosed() {
		t.Fatalf("untouched waiting table not closed")
	}
}
