package holdem

import (
	"encoding/hex"
	"time"

	"holdem-live/card"
)

// PlayerRecord is one participant's line in a completed hand.
type PlayerRecord struct {
	UserID       string        `json:"userId"`
	Nickname     string        `json:"nickname"`
	Seat         int           `json:"seat"`
	InitialChips int64         `json:"initialChips"`
	FinalChips   int64         `json:"finalChips"`
	Profit       int64         `json:"profit"`
	HoleCards    card.CardList `json:"holeCards,omitempty"`
	Category     string        `json:"category,omitempty"`
	IsWinner     bool          `json:"isWinner"`
}

// CompletedHand is the immutable archive document written once per finished hand.
type CompletedHand struct {
	TableID    string         `json:"tableId"`
	TableName  string         `json:"tableName"`
	HandNumber int            `json:"handNumber"`
	HandID     string         `json:"handId"`
	Dealer     int            `json:"dealer"`
	StartedAt  time.Time      `json:"startedAt"`
	EndedAt    time.Time      `json:"endedAt"`
	FinalPhase Phase          `json:"finalPhase"`
	Showdown   bool           `json:"showdown"`
	Community  card.CardList  `json:"community"`
	Actions    []ActionRecord `json:"actions"`
	Winners    []int          `json:"winners"`
	Pots       []PotResult    `json:"pots"`
	Settings   Settings       `json:"settings"`
	Seed       string         `json:"seed"`
	Commitment string         `json:"commitment"`
	Players    []PlayerRecord `json:"players"`
}

func (t *Table) completedHand(res *HandResult, final Phase, now time.Time) *CompletedHand {
	h := t.Hand
	rec := &CompletedHand{
		TableID:    t.ID,
		TableName:  t.Name,
		HandNumber: h.Number,
		HandID:     h.ID,
		Dealer:     h.Dealer,
		StartedAt:  h.StartedAt,
		EndedAt:    now,
		FinalPhase: final,
		Showdown:   res.Showdown,
		Community:  h.Community.Clone(),
		Actions:    append([]ActionRecord(nil), h.History...),
		Winners:    res.Winners(),
		Settings:   t.Settings,
		Seed:       hex.EncodeToString(h.Seed),
		Commitment: h.Commitment,
		Players:    make([]PlayerRecord, 0, len(h.StartChips)),
	}
	rec.Pots = res.clone().Pots

	bySeat := make(map[int]SeatResult, len(res.Seats))
	for _, sr := range res.Seats {
		bySeat[sr.Seat] = sr
	}
	for _, s := range t.Seats {
		if s == nil || !s.InHand {
			continue
		}
		initial := h.StartChips[s.Index]
		pr := PlayerRecord{
			UserID:       s.UserID,
			Nickname:     s.Nickname,
			Seat:         s.Index,
			InitialChips: initial,
			FinalChips:   s.Chips,
			Profit:       s.Chips - initial,
		}
		if sr, ok := bySeat[s.Index]; ok {
			pr.HoleCards = sr.HoleCards.Clone()
			pr.Category = sr.Category
			pr.IsWinner = sr.Winner
		}
		rec.Players = append(rec.Players, pr)
	}
	return rec
}
