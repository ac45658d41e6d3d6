package store

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"holdem-live/card"
	"holdem-live/holdem"
)

var t0 = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func newTable(t *testing.T, id string) *holdem.Table {
	t.Helper()
	tbl, err := holdem.NewTable(id, "", "", holdem.DefaultSettings(), holdem.DefaultPolicy(), "", t0)
	if err != nil {
		t.Fatalf("NewTable err: %v", err)
	}
	for _, u := range []string{"u0", "u1", "u2"} {
		if _, err := tbl.Join(u, "", "", t0); err != nil {
			t.Fatalf("join %s err: %v", u, err)
		}
		if err := tbl.SetReady(u, true, t0); err != nil {
			t.Fatalf("ready %s err: %v", u, err)
		}
	}
	return tbl
}

func startHand(t *testing.T, tbl *holdem.Table, handID string) {
	t.Helper()
	deck, err := card.NewDeckFromSeed(make([]byte, card.SeedSize))
	if err != nil {
		t.Fatalf("deck err: %v", err)
	}
	if _, err := tbl.StartHand(tbl.OwnerID, deck, handID, tbl.LastActivityAt.Add(time.Minute)); err != nil {
		t.Fatalf("StartHand err: %v", err)
	}
}

// playHand folds around to the big blind and returns the archive record.
func playHand(t *testing.T, tbl *holdem.Table, handID string) *holdem.CompletedHand {
	t.Helper()
	startHand(t, tbl, handID)
	now := tbl.LastActivityAt
	for tbl.Hand != nil {
		now = now.Add(time.Second)
		out, err := tbl.Act(tbl.Hand.Acting, holdem.PlayerActionTypeFold, 0, now)
		if err != nil {
			t.Fatalf("fold err: %v", err)
		}
		if out.HandEnded {
			if out.Record == nil {
				t.Fatalf("hand ended without a record")
			}
			return out.Record
		}
	}
	t.Fatalf("hand never ended")
	return nil
}

func TestDocument_ResumesMidHand(t *testing.T) {
	tbl := newTable(t, "T1")
	startHand(t, tbl, "h1")

	doc, err := EncodeTable(tbl)
	if err != nil {
		t.Fatalf("encode err: %v", err)
	}
	if doc.Version != tbl.Version || doc.ID != "T1" {
		t.Fatalf("doc=%+v", doc)
	}
	back, err := DecodeTable(doc)
	if err != nil {
		t.Fatalf("decode err: %v", err)
	}

	for _, viewer := range []string{"u0", "u1", ""} {
		a, _ := json.Marshal(tbl.Snapshot(viewer))
		b, _ := json.Marshal(back.Snapshot(viewer))
		if !bytes.Equal(a, b) {
			t.Fatalf("viewer %q snapshot changed across encode:\n%s\n%s", viewer, a, b)
		}
	}

	acting := back.Hand.Acting
	if _, err := back.Act(acting, holdem.PlayerActionTypeCall, 0, back.LastActivityAt.Add(time.Second)); err != nil {
		t.Fatalf("decoded table cannot continue: %v", err)
	}
	if back.TotalChips() != tbl.TotalChips() {
		t.Fatalf("chips %d != %d", back.TotalChips(), tbl.TotalChips())
	}
}

func TestDecodeTable_RejectsBrokenSeats(t *testing.T) {
	doc := Document{ID: "X", Body: []byte(`{"id":"X","settings":{"maxSeats":6},"seats":[null]}`)}
	if _, err := DecodeTable(doc); err == nil {
		t.Fatalf("decode accepted a seat list shorter than maxSeats")
	}
}

func TestMemoryStore_KeepsNewestVersion(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.SaveTable(ctx, Document{ID: "A", Version: 5, Body: []byte("five")})
	s.SaveTable(ctx, Document{ID: "A", Version: 4, Body: []byte("four")})
	doc, err := s.LoadTable(ctx, "A")
	if err != nil || string(doc.Body) != "five" {
		t.Fatalf("doc=%+v err=%v", doc, err)
	}
	s.DeleteTable(ctx, "A")
	if _, err := s.LoadTable(ctx, "A"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want not found", err)
	}
}

func TestSQLStore_SQLite(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQL("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("OpenSQL err: %v", err)
	}
	defer s.Close()

	tbl := newTable(t, "T1")
	newer, _ := EncodeTable(tbl)
	older := newer
	older.Version--
	older.Body = []byte(`{"stale":true}`)

	if err := s.SaveTable(ctx, newer); err != nil {
		t.Fatalf("save err: %v", err)
	}
	if err := s.SaveTable(ctx, older); err != nil {
		t.Fatalf("save older err: %v", err)
	}
	doc, err := s.LoadTable(ctx, "T1")
	if err != nil {
		t.Fatalf("load err: %v", err)
	}
	if doc.Version != newer.Version || !bytes.Equal(doc.Body, newer.Body) {
		t.Fatalf("older version overwrote newer: got v%d", doc.Version)
	}
	if !doc.UpdatedAt.Equal(t0) {
		t.Fatalf("updatedAt=%v", doc.UpdatedAt)
	}
	ids, err := s.IDs(ctx)
	if err != nil || len(ids) != 1 || ids[0] != "T1" {
		t.Fatalf("ids=%v err=%v", ids, err)
	}

	rec := playHand(t, tbl, "h1")
	for i := 0; i < 2; i++ {
		if err := s.AppendHand(ctx, rec); err != nil {
			t.Fatalf("append #%d err: %v", i, err)
		}
	}
	hands, err := s.Hands(ctx, "T1", 10)
	if err != nil || len(hands) != 1 {
		t.Fatalf("hands=%d err=%v", len(hands), err)
	}
	if hands[0].HandID != "h1" || len(hands[0].Players) != 3 || hands[0].Seed == "" {
		t.Fatalf("archived record=%+v", hands[0])
	}
	if got, err := s.Hand(ctx, "h1"); err != nil || got.HandNumber != rec.HandNumber {
		t.Fatalf("hand=%+v err=%v", got, err)
	}
	if _, err := s.Hand(ctx, "h404"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want not found", err)
	}

	if err := s.DeleteTable(ctx, "T1"); err != nil {
		t.Fatalf("delete err: %v", err)
	}
	if _, err := s.LoadTable(ctx, "T1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want not found", err)
	}
}

func TestSQLStore_PostgresPlaceholders(t *testing.T) {
	s := &SQLStore{dialect: dialectPostgres}
	got := s.bind(`SELECT a FROM b WHERE c = ? AND d = ?`)
	if got != `SELECT a FROM b WHERE c = $1 AND d = $2` {
		t.Fatalf("bind=%q", got)
	}
	s.dialect = dialectMySQL
	if got := s.bind(`x = ?`); got != `x = ?` {
		t.Fatalf("mysql bind=%q", got)
	}
}

func TestGormArchive_SQLite(t *testing.T) {
	ctx := context.Background()
	db, err := OpenGorm("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("OpenGorm err: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db err: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	a, err := NewGormArchive(db)
	if err != nil {
		t.Fatalf("NewGormArchive err: %v", err)
	}
	defer a.Close()

	tbl := newTable(t, "T1")
	rec := playHand(t, tbl, "h1")
	for i := 0; i < 2; i++ {
		if err := a.AppendHand(ctx, rec); err != nil {
			t.Fatalf("append #%d err: %v", i, err)
		}
	}

	rows, err := a.PlayerHistory(ctx, "u1", 10)
	if err != nil || len(rows) != 1 {
		t.Fatalf("history=%v err=%v", rows, err)
	}
	var profit int64
	for _, p := range rec.Players {
		if p.UserID == "u1" {
			profit = p.Profit
		}
	}
	if rows[0].Profit != profit || rows[0].HandID != "h1" {
		t.Fatalf("player row=%+v want profit %d", rows[0], profit)
	}

	got, err := a.Hand(ctx, "h1")
	if err != nil {
		t.Fatalf("Hand err: %v", err)
	}
	if got.HandNumber != rec.HandNumber || len(got.Actions) != len(rec.Actions) {
		t.Fatalf("hand=%+v", got)
	}
	if _, err := a.Hand(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want not found", err)
	}
}

func TestMultiArchive_AttemptsEveryArchive(t *testing.T) {
	first, second := NewMemoryArchive(), NewMemoryArchive()
	m := MultiArchive{&failingArchive{}, first, second}
	rec := &holdem.CompletedHand{HandID: "h1"}
	if err := m.AppendHand(context.Background(), rec); err == nil {
		t.Fatalf("error from one archive was swallowed")
	}
	if len(first.Hands()) != 1 || len(second.Hands()) != 1 {
		t.Fatalf("later archives skipped after a failure")
	}
}

func TestMultiArchive_HandSkipsUnreadable(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryArchive()
	m := MultiArchive{&failingArchive{}, mem}
	if err := mem.AppendHand(ctx, &holdem.CompletedHand{HandID: "h7"}); err != nil {
		t.Fatalf("append err: %v", err)
	}
	if rec, err := m.Hand(ctx, "h7"); err != nil || rec.HandID != "h7" {
		t.Fatalf("rec=%v err=%v", rec, err)
	}
	if _, err := m.Hand(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want not found", err)
	}
}

type failingArchive struct{}

func (*failingArchive) AppendHand(context.Context, *holdem.CompletedHand) error {
	return errors.New("broker down")
}

func (*failingArchive) Close() error { return nil }
