package replay

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"holdem-live/card"
	"holdem-live/holdem"
)

// playHand deals one seeded hand at three seats and plays it to the end, raising once
// preflop and then checking or calling down.
func playHand(t *testing.T) *holdem.CompletedHand {
	t.Helper()
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	tick := func() time.Time {
		now = now.Add(5 * time.Second)
		return now
	}
	tbl, err := holdem.NewTable("REPLAY01", "replay", "alice", holdem.DefaultSettings(), holdem.DefaultPolicy(), "", tick())
	if err != nil {
		t.Fatalf("NewTable err: %v", err)
	}
	for _, u := range []string{"alice", "bob", "carol"} {
		if _, err := tbl.Join(u, u, "", tick()); err != nil {
			t.Fatalf("join %s: %v", u, err)
		}
		if err := tbl.SetReady(u, true, tick()); err != nil {
			t.Fatalf("ready %s: %v", u, err)
		}
	}
	tbl.LastDealer = 2

	seed := make([]byte, card.SeedSize)
	for i := range seed {
		seed[i] = byte(i * 7)
	}
	deck, err := card.NewDeckFromSeed(seed)
	if err != nil {
		t.Fatalf("deck err: %v", err)
	}
	if _, err := tbl.StartHand("alice", deck, "hand-replay-1", tick()); err != nil {
		t.Fatalf("StartHand err: %v", err)
	}

	raised := false
	for tbl.Status == holdem.StatusPlaying {
		seat := tbl.Hand.Acting
		legal := tbl.Legal(seat)
		kind, amount := holdem.PlayerActionTypeCall, int64(0)
		switch {
		case !raised && hasKind(legal.Kinds, holdem.PlayerActionTypeRaise):
			kind, amount = holdem.PlayerActionTypeRaise, legal.MinRaise
			raised = true
		case hasKind(legal.Kinds, holdem.PlayerActionTypeCheck):
			kind = holdem.PlayerActionTypeCheck
		}
		out, err := tbl.Act(seat, kind, amount, tick())
		if err != nil {
			t.Fatalf("act seat %d %s: %v", seat, kind, err)
		}
		if out.HandEnded {
			return out.Record
		}
	}
	t.Fatalf("hand never ended")
	return nil
}

func hasKind(kinds []holdem.ActionType, k holdem.ActionType) bool {
	for _, v := range kinds {
		if v == k {
			return true
		}
	}
	return false
}

func TestVerify_AcceptsEngineRecord(t *testing.T) {
	rec := playHand(t)
	if err := Verify(rec); err != nil {
		t.Fatalf("Verify err: %v", err)
	}
}

func TestGenerate_IsDeterministic(t *testing.T) {
	rec := playHand(t)
	tapeA, err := Generate(rec, "bob")
	if err != nil {
		t.Fatalf("Generate A failed: %v", err)
	}
	tapeB, err := Generate(rec, "bob")
	if err != nil {
		t.Fatalf("Generate B failed: %v", err)
	}
	if !reflect.DeepEqual(tapeA, tapeB) {
		t.Fatalf("expected the same tape for the same record")
	}

	first, last := tapeA.Events[0], tapeA.Events[len(tapeA.Events)-1]
	if first.Type != EventHandStart || last.Type != EventHandEnd || last.Result == nil {
		t.Fatalf("events start=%s end=%s", first.Type, last.Type)
	}
	if first.View.Viewer.UserID != "bob" || first.View.Viewer.Seat != 1 {
		t.Fatalf("viewer=%+v", first.View.Viewer)
	}
	actions := 0
	for i, e := range tapeA.Events {
		if e.Seq != uint64(i+1) {
			t.Fatalf("event %d seq=%d", i, e.Seq)
		}
		if e.Type == EventAction {
			actions++
		}
	}
	voluntary := 0
	for _, a := range rec.Actions {
		if !a.Forced {
			voluntary++
		}
	}
	if actions != voluntary {
		t.Fatalf("tape has %d actions, record has %d", actions, voluntary)
	}
}

func TestGenerate_OutOfTurn(t *testing.T) {
	rec := playHand(t)
	for i, a := range rec.Actions {
		if !a.Forced {
			rec.Actions[i].Seat = (a.Seat + 1) % 3
			break
		}
	}
	_, err := Generate(rec, "")
	var replayErr *ReplayError
	if !errors.As(err, &replayErr) {
		t.Fatalf("expected ReplayError, got %T %v", err, err)
	}
	if replayErr.Reason != ReasonOutOfTurn || replayErr.Expected == nil {
		t.Fatalf("err=%+v", replayErr)
	}
	if replayErr.Expected.Phase != "preflop" || len(replayErr.Expected.LegalActions) == 0 {
		t.Fatalf("expected=%+v", replayErr.Expected)
	}
}

func TestGenerate_RejectsTamperedRecords(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*holdem.CompletedHand)
		reason string
	}{
		{"commitment", func(r *holdem.CompletedHand) { r.Commitment = "00" }, ReasonCommitment},
		{"no seed", func(r *holdem.CompletedHand) { r.Seed = "" }, ReasonBadSeed},
		{"final chips", func(r *holdem.CompletedHand) { r.Players[0].FinalChips += 5 }, ReasonResultMismatch},
		{"truncated", func(r *holdem.CompletedHand) { r.Actions = r.Actions[:len(r.Actions)-1] }, ReasonUnfinished},
		{"one player", func(r *holdem.CompletedHand) { r.Players = r.Players[:1] }, ReasonBadRecord},
	}
	for _, tc := range cases {
		rec := playHand(t)
		tc.mutate(rec)
		err := Verify(rec)
		var replayErr *ReplayError
		if !errors.As(err, &replayErr) || replayErr.Reason != tc.reason {
			t.Fatalf("%s: err=%v", tc.name, err)
		}
	}
}
