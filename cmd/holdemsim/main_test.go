package main

import (
	"testing"

	"holdem-live/holdem/npc"
)

func TestSimulate_ConservesChips(t *testing.T) {
	for _, seats := range []int{2, 6, 10} {
		tbl, stats, err := simulate(simConfig{Hands: 150, Seats: seats, Seed: 7, Stall: 0.05}, nil)
		if err != nil {
			t.Fatalf("seats=%d: %v", seats, err)
		}
		if stats.Hands == 0 {
			t.Fatalf("seats=%d: no hands played", seats)
		}
		if len(stats.Violations) > 0 {
			t.Fatalf("seats=%d: %v", seats, stats.Violations[0])
		}
		if len(stats.Divergent) > 0 || stats.Replayed != stats.Hands {
			t.Fatalf("seats=%d: replayed %d of %d: %v", seats, stats.Replayed, stats.Hands, stats.Divergent)
		}
		if got := tbl.TotalChips(); got != int64(seats)*1000 {
			t.Fatalf("seats=%d: total chips %d", seats, got)
		}
	}
}

func TestSimulate_Deterministic(t *testing.T) {
	cfg := simConfig{Hands: 40, Seats: 4, Seed: 99, Stall: 0.02}
	a, sa, err := simulate(cfg, nil)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, sb, err := simulate(cfg, nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if sa.Actions != sb.Actions || sa.Hands != sb.Hands {
		t.Fatalf("runs diverged: %+v vs %+v", sa, sb)
	}
	for i := range a.Seats {
		if a.Seats[i].Chips != b.Seats[i].Chips {
			t.Fatalf("seat %d: %d vs %d", i, a.Seats[i].Chips, b.Seats[i].Chips)
		}
	}
}

func TestSimulate_RuleBots(t *testing.T) {
	bots, err := pickPersonas(npc.NewRegistry(), "all")
	if err != nil {
		t.Fatalf("pick err: %v", err)
	}
	tbl, stats, err := simulate(simConfig{Hands: 100, Seats: 6, Seed: 3, Bots: bots}, nil)
	if err != nil {
		t.Fatalf("simulate err: %v", err)
	}
	if len(stats.Violations) > 0 || len(stats.Divergent) > 0 {
		t.Fatalf("violations=%v divergent=%v", stats.Violations, stats.Divergent)
	}
	if got := tbl.TotalChips(); got != 6000 {
		t.Fatalf("total chips %d", got)
	}
	if _, err := pickPersonas(npc.NewRegistry(), "rock,nobody"); err == nil {
		t.Fatalf("unknown persona accepted")
	}
}
