package holdem

import (
	"bytes"
	"testing"

	json "github.com/goccy/go-json"
)

func TestSnapshot_HidesOtherHoleCards(t *testing.T) {
	f := newFixture(t, 3, DefaultSettings())
	f.start(0, "")

	v := f.tbl.Snapshot("u1")
	if v.Viewer.Seat != 1 {
		t.Fatalf("viewer seat=%d", v.Viewer.Seat)
	}
	for _, s := range v.Seats {
		if s.CardCount != 2 {
			t.Fatalf("seat %d card count=%d", s.Index, s.CardCount)
		}
		if s.Index == 1 && len(s.HoleCards) != 2 {
			t.Fatalf("viewer lost its own cards")
		}
		if s.Index != 1 && len(s.HoleCards) != 0 {
			t.Fatalf("seat %d cards leaked to viewer: %s", s.Index, s.HoleCards)
		}
	}

	spectator := f.tbl.Snapshot("")
	for _, s := range spectator.Seats {
		if len(s.HoleCards) != 0 {
			t.Fatalf("spectator sees seat %d cards", s.Index)
		}
	}
	if spectator.Viewer.Seat != NoSeat || spectator.Viewer.Legal != nil {
		t.Fatalf("spectator viewer=%+v", spectator.Viewer)
	}
}

func TestSnapshot_LegalOnlyForActingViewer(t *testing.T) {
	f := newFixture(t, 3, DefaultSettings())
	f.start(0, "")
	if v := f.tbl.Snapshot("u0"); v.Viewer.Legal == nil || len(v.Viewer.Legal.Kinds) == 0 {
		t.Fatalf("acting viewer has no legal moves: %+v", v.Viewer)
	}
	if v := f.tbl.Snapshot("u1"); v.Viewer.Legal != nil {
		t.Fatalf("waiting viewer got legal moves")
	}
}

func TestSnapshot_Idempotent(t *testing.T) {
	f := newFixture(t, 4, DefaultSettings())
	f.start(0, "")
	f.act(3, PlayerActionTypeCall, 0)
	f.act(0, PlayerActionTypeRaise, 60)

	a, err := json.Marshal(f.tbl.Snapshot("u2"))
	if err != nil {
		t.Fatalf("marshal err: %v", err)
	}
	b, err := json.Marshal(f.tbl.Snapshot("u2"))
	if err != nil {
		t.Fatalf("marshal err: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("two snapshots differ:\n%s\n%s", a, b)
	}
}

func TestSnapshot_DoesNotAliasTable(t *testing.T) {
	f := newFixture(t, 2, DefaultSettings())
	f.start(0, "")
	v := f.tbl.Snapshot("u0")
	v.Seats[0].HoleCards[0] = 0
	v.Hand.Actions[0].Amount = 999
	if f.tbl.Seats[0].HoleCards[0] == 0 || f.tbl.Hand.Actions[0].Amount == 999 {
		t.Fatalf("snapshot shares memory with the table")
	}
}

func TestSnapshot_VersionBumpsOncePerMutation(t *testing.T) {
	f := newFixture(t, 2, DefaultSettings())
	before := f.tbl.Version
	f.start(0, "")
	if f.tbl.Version != before+1 {
		t.Fatalf("start bumped version %d->%d", before, f.tbl.Version)
	}
	f.act(0, PlayerActionTypeCall, 0)
	f.act(1, PlayerActionTypeCheck, 0)
	if f.tbl.Version != before+3 {
		t.Fatalf("version=%d want %d", f.tbl.Version, before+3)
	}
	if got := f.tbl.Snapshot("u0").Version; got != f.tbl.Version {
		t.Fatalf("snapshot version=%d", got)
	}
}
