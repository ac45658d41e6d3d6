// Command holdemsim plays random hands through the engine, checks chip conservation after
// every accepted operation, and replays each archived hand from its seed.
package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"holdem-live/card"
	"holdem-live/holdem"
	"holdem-live/holdem/npc"
	"holdem-live/replay"
)

type simConfig struct {
	Hands   int
	Seats   int
	Seed    uint64
	Stack   int64
	Stall   float64 // chance an acting seat lets its turn time out
	Verbose bool
	// Bots seats one persona per player in turn; empty plays random legal moves.
	Bots []*npc.Persona
}

type simStats struct {
	Hands      int
	Showdowns  int
	Actions    int
	Timeouts   int
	Categories map[string]int
	Violations []*holdem.InvariantViolation
	Replayed   int
	Divergent  []error
	Expected   int64
}

func main() {
	var cfg simConfig
	flag.IntVar(&cfg.Hands, "hands", 1000, "hands to play")
	flag.IntVar(&cfg.Seats, "seats", 6, "seated players (2-10)")
	flag.Uint64Var(&cfg.Seed, "seed", 1, "seed for decks and decisions")
	flag.Int64Var(&cfg.Stack, "stack", 1000, "starting stack")
	flag.Float64Var(&cfg.Stall, "stall", 0.02, "probability a turn times out")
	flag.BoolVar(&cfg.Verbose, "v", false, "print every hand result")
	bots := flag.String("bots", "", `comma separated persona ids, or "all"; empty plays random moves`)
	personas := flag.String("personas", "", "JSON file with extra personas")
	flag.Parse()

	registry := npc.NewRegistry()
	if *personas != "" {
		if err := registry.LoadFromFile(*personas); err != nil {
			pterm.Error.Println(err.Error())
			os.Exit(1)
		}
	}
	var err error
	if cfg.Bots, err = pickPersonas(registry, *bots); err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}

	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Playing %d hands at %d seats (seed %d) ...", cfg.Hands, cfg.Seats, cfg.Seed))
	tbl, stats, err := simulate(cfg, func(res *holdem.HandResult) {
		if cfg.Verbose {
			pterm.Info.Printfln("hand %d: %s", res.HandNumber, describe(res))
		}
	})
	if err != nil {
		spinner.Fail(err.Error())
		os.Exit(1)
	}
	spinner.Success(fmt.Sprintf("Played %d hands", stats.Hands))

	render(tbl, stats)
	for _, err := range stats.Divergent {
		pterm.Error.Println(err.Error())
	}
	if len(stats.Violations) > 0 {
		for _, v := range stats.Violations {
			pterm.Error.Println(v.Error())
		}
		os.Exit(2)
	}
	if len(stats.Divergent) > 0 {
		os.Exit(3)
	}
	pterm.Success.Printfln("Chip total held at %d across %d actions", stats.Expected, stats.Actions)
}

// simulate plays until cfg.Hands hands are done or fewer than two stacks remain.
func simulate(cfg simConfig, onHand func(*holdem.HandResult)) (*holdem.Table, simStats, error) {
	stats := simStats{Categories: make(map[string]int)}
	settings := holdem.DefaultSettings()
	settings.MaxSeats = max(cfg.Seats, holdem.MinSeats)
	if cfg.Stack > 0 {
		settings.StartingStack = cfg.Stack
	}

	var seed [32]byte
	for i := range 4 {
		v := cfg.Seed + uint64(i)*0x9e3779b97f4a7c15
		for j := range 8 {
			seed[i*8+j] = byte(v >> (8 * j))
		}
	}
	src := rand.NewChaCha8(seed)
	rng := rand.New(src)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	tbl, err := holdem.NewTable("SIM00001", "soak", "p0", settings, holdem.DefaultPolicy(), "", tick())
	if err != nil {
		return nil, stats, err
	}
	brains := make([]npc.Brain, settings.MaxSeats)
	for i := 0; i < settings.MaxSeats; i++ {
		nickname := "Player " + strconv.Itoa(i)
		if len(cfg.Bots) > 0 {
			persona := cfg.Bots[i%len(cfg.Bots)]
			brains[i] = npc.NewRuleBrain(persona, cfg.Seed+uint64(i))
			nickname = persona.Name + " " + strconv.Itoa(i)
		}
		if _, err := tbl.Join("p"+strconv.Itoa(i), nickname, "", tick()); err != nil {
			return nil, stats, err
		}
	}
	stats.Expected = tbl.TotalChips()
	// Pin the first button to seat 0 so a seed replays exactly.
	tbl.LastDealer = settings.MaxSeats - 1

	check := func(out *holdem.Outcome) {
		if out == nil {
			return
		}
		stats.Actions++
		if out.Violation != nil {
			stats.Violations = append(stats.Violations, out.Violation)
		}
		if got := tbl.TotalChips(); got != stats.Expected {
			stats.Violations = append(stats.Violations, &holdem.InvariantViolation{
				HandID: "sim", Expected: stats.Expected, Actual: got, Where: "simulator",
			})
		}
		if out.HandEnded && out.Result != nil {
			stats.Hands++
			if out.Result.Showdown {
				stats.Showdowns++
			}
			for _, s := range out.Result.Seats {
				if s.Winner && s.Category != "" {
					stats.Categories[s.Category]++
				}
			}
			if onHand != nil {
				onHand(out.Result)
			}
		}
		if out.Record != nil {
			if err := replay.Verify(out.Record); err != nil {
				stats.Divergent = append(stats.Divergent, fmt.Errorf("%s: %w", out.Record.HandID, err))
			} else {
				stats.Replayed++
			}
		}
	}

	for stats.Hands < cfg.Hands {
		for _, s := range tbl.Occupied() {
			if err := tbl.SetReady(s.UserID, true, tick()); err != nil {
				return nil, stats, err
			}
		}
		if err := tbl.CanStart(tbl.OwnerID); err != nil {
			break
		}
		deckSeed := make([]byte, card.SeedSize)
		_, _ = src.Read(deckSeed)
		deck, err := card.NewDeckFromSeed(deckSeed)
		if err != nil {
			return nil, stats, err
		}
		out, err := tbl.StartHand(tbl.OwnerID, deck, fmt.Sprintf("hand-%d", tbl.HandNumber), tick())
		if err != nil {
			return nil, stats, err
		}
		check(out)

		for tbl.Status == holdem.StatusPlaying {
			h := tbl.Hand
			if h == nil || h.Acting == holdem.NoSeat {
				return nil, stats, fmt.Errorf("hand %d stalled with no acting seat", tbl.HandNumber)
			}
			if rng.Float64() < cfg.Stall {
				out, err := tbl.Timeout(h.TurnDeadline.Add(time.Second))
				if err != nil {
					return nil, stats, err
				}
				now = h.TurnDeadline.Add(time.Second)
				if out != nil {
					stats.Timeouts++
				}
				check(out)
				continue
			}
			kind, amount := choose(rng, tbl.Legal(h.Acting))
			if brain := brains[h.Acting]; brain != nil {
				if view, ok := npc.Observe(tbl.Snapshot(tbl.Seats[h.Acting].UserID)); ok {
					d := npc.Legalize(brain.Decide(view), view.Legal)
					kind, amount = d.Action, d.Amount
				}
			}
			out, err := tbl.Act(h.Acting, kind, amount, tick())
			if err != nil {
				return nil, stats, fmt.Errorf("legal move %s %d rejected: %w", kind, amount, err)
			}
			check(out)
		}
	}
	return tbl, stats, nil
}

// choose picks a legal move, mostly passive with occasional aggression.
func choose(rng *rand.Rand, legal holdem.LegalActions) (holdem.ActionType, int64) {
	has := make(map[holdem.ActionType]bool, len(legal.Kinds))
	for _, k := range legal.Kinds {
		has[k] = true
	}
	roll := rng.Float64()
	switch {
	case roll < 0.12 && has[holdem.PlayerActionTypeFold] && legal.ToCall > 0:
		return holdem.PlayerActionTypeFold, 0
	case roll < 0.22 && has[holdem.PlayerActionTypeBet]:
		return holdem.PlayerActionTypeBet, between(rng, legal.MinBet, min(legal.MaxTo, 4*legal.MinBet))
	case roll < 0.30 && has[holdem.PlayerActionTypeRaise]:
		return holdem.PlayerActionTypeRaise, between(rng, legal.MinRaise, min(legal.MaxTo, 2*legal.MinRaise))
	case roll < 0.33:
		return holdem.PlayerActionTypeAllin, 0
	case has[holdem.PlayerActionTypeCheck]:
		return holdem.PlayerActionTypeCheck, 0
	case has[holdem.PlayerActionTypeCall]:
		return holdem.PlayerActionTypeCall, 0
	}
	return holdem.PlayerActionTypeFold, 0
}

func pickPersonas(r *npc.Registry, ids string) ([]*npc.Persona, error) {
	switch ids = strings.TrimSpace(ids); ids {
	case "":
		return nil, nil
	case "all":
		return r.All(), nil
	}
	var out []*npc.Persona
	for _, id := range strings.Split(ids, ",") {
		p := r.Get(strings.TrimSpace(id))
		if p == nil {
			return nil, fmt.Errorf("unknown persona %q", id)
		}
		out = append(out, p)
	}
	return out, nil
}

func between(rng *rand.Rand, lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Int64N(hi-lo+1)
}

func describe(res *holdem.HandResult) string {
	out := ""
	for _, s := range res.Seats {
		if !s.Winner {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += fmt.Sprintf("%s +%d", s.UserID, s.Won)
		if s.Category != "" {
			out += " (" + s.Category + ")"
		}
	}
	if res.Showdown {
		out += " at showdown " + res.Community.String()
	}
	return out
}

func render(tbl *holdem.Table, stats simStats) {
	rows := pterm.TableData{{"Seat", "Player", "Chips", "Net"}}
	for _, s := range tbl.Occupied() {
		rows = append(rows, []string{
			strconv.Itoa(s.Index),
			s.Nickname,
			strconv.FormatInt(s.Chips, 10),
			fmt.Sprintf("%+d", s.Chips-tbl.Settings.StartingStack),
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()

	names := make([]string, 0, len(stats.Categories))
	for name := range stats.Categories {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return stats.Categories[names[i]] > stats.Categories[names[j]] })
	cats := pterm.TableData{{"Winning hand", "Count"}}
	for _, name := range names {
		cats = append(cats, []string{name, strconv.Itoa(stats.Categories[name])})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(cats).Render()

	pterm.Info.Printfln("hands=%d showdowns=%d actions=%d timeouts=%d replayed=%d",
		stats.Hands, stats.Showdowns, stats.Actions, stats.Timeouts, stats.Replayed)
}
