package holdem

import (
	"time"

	"holdem-live/card"
)

type SeatView struct {
	Index        int           `json:"index"`
	UserID       string        `json:"userId"`
	Nickname     string        `json:"nickname"`
	Chips        int64         `json:"chips"`
	Ready        bool          `json:"ready"`
	Absent       bool          `json:"absent"`
	LeavePending bool          `json:"leavePending,omitempty"`
	InHand       bool          `json:"inHand"`
	Folded       bool          `json:"folded"`
	AllIn        bool          `json:"allIn"`
	Committed    int64         `json:"committed"`
	Contributed  int64         `json:"contributed"`
	CardCount    int           `json:"cardCount"`
	HoleCards    card.CardList `json:"holeCards,omitempty"`
}

type HandView struct {
	ID           string         `json:"id"`
	Number       int            `json:"number"`
	Phase        Phase          `json:"phase"`
	Dealer       int            `json:"dealer"`
	SmallBlind   int            `json:"smallBlind"`
	BigBlind     int            `json:"bigBlind"`
	Acting       int            `json:"acting"`
	CurrentBet   int64          `json:"currentBet"`
	Pot          int64          `json:"pot"`
	Community    card.CardList  `json:"community"`
	Actions      []ActionRecord `json:"actions"`
	Pots         []Pot          `json:"pots"`
	Commitment   string         `json:"commitment"`
	TurnDeadline time.Time      `json:"turnDeadline"`
}

// ViewerState is what only the viewer needs: its own seat and, on its turn, the legal moves.
type ViewerState struct {
	UserID string        `json:"userId"`
	Seat   int           `json:"seat"`
	Owner  bool          `json:"owner"`
	Legal  *LegalActions `json:"legal,omitempty"`
}

// View is a viewer-scoped, read-only projection of the table.
type View struct {
	TableID    string      `json:"tableId"`
	Name       string      `json:"name"`
	OwnerID    string      `json:"ownerId"`
	Locked     bool        `json:"locked"`
	Status     Status      `json:"status"`
	Settings   Settings    `json:"settings"`
	Version    uint64      `json:"version"`
	HandNumber int         `json:"handNumber"`
	Seats      []SeatView  `json:"seats"`
	Hand       *HandView   `json:"hand,omitempty"`
	LastResult *HandResult `json:"lastResult,omitempty"`
	Viewer     ViewerState `json:"viewer"`
}

// Snapshot builds the view for viewer. Other seats' hole cards are withheld until the
// hand reaches showdown. Nothing here reads a map, so equal tables give equal views.
func (t *Table) Snapshot(viewer string) View {
	v := View{
		TableID:    t.ID,
		Name:       t.Name,
		OwnerID:    t.OwnerID,
		Locked:     len(t.PasswordHash) > 0,
		Status:     t.Status,
		Settings:   t.Settings,
		Version:    t.Version,
		HandNumber: t.HandNumber,
		Seats:      make([]SeatView, 0, len(t.Seats)),
		LastResult: t.LastResult.clone(),
		Viewer:     ViewerState{UserID: viewer, Seat: NoSeat, Owner: viewer != "" && viewer == t.OwnerID},
	}
	reveal := t.Hand != nil && t.Hand.Phase >= PhaseTypeShowdown
	for _, s := range t.Seats {
		if s == nil {
			continue
		}
		sv := SeatView{
			Index:        s.Index,
			UserID:       s.UserID,
			Nickname:     s.Nickname,
			Chips:        s.Chips,
			Ready:        s.Ready,
			Absent:       s.Absent,
			LeavePending: s.LeavePending,
			InHand:       s.InHand,
			Folded:       s.Folded,
			AllIn:        s.AllIn(),
			Committed:    s.Committed,
			Contributed:  s.Contributed,
			CardCount:    len(s.HoleCards),
		}
		if s.UserID == viewer {
			v.Viewer.Seat = s.Index
		}
		if len(s.HoleCards) > 0 && (s.UserID == viewer || (reveal && s.live())) {
			sv.HoleCards = s.HoleCards.Clone()
		}
		v.Seats = append(v.Seats, sv)
	}

	if h := t.Hand; h != nil {
		v.Hand = &HandView{
			ID:           h.ID,
			Number:       h.Number,
			Phase:        h.Phase,
			Dealer:       h.Dealer,
			SmallBlind:   h.SmallBlind,
			BigBlind:     h.BigBlind,
			Acting:       h.Acting,
			CurrentBet:   h.CurrentBet,
			Pot:          h.Pot,
			Community:    h.Community.Clone(),
			Actions:      append([]ActionRecord{}, h.Actions...),
			Pots:         buildPots(t.Seats),
			Commitment:   h.Commitment,
			TurnDeadline: h.TurnDeadline,
		}
		if v.Viewer.Seat != NoSeat && h.Acting == v.Viewer.Seat {
			legal := t.Legal(v.Viewer.Seat)
			v.Viewer.Legal = &legal
		}
	}
	return v
}
