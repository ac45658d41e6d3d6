package card

type Suit byte

const (
	Spade Suit = iota // ♠️
	Heart             // ♥️
	Club              // ♣️
	Diamond           // ♦️
)

var suitLetters = [...]byte{'s', 'h', 'c', 'd'}

// Letter is the single-letter form used on the wire.
func (s Suit) Letter() byte {
	if int(s) < len(suitLetters) {
		return suitLetters[s]
	}
	return '?'
}

func (s Suit) Symbol() string {
	switch s {
	case Diamond:
		return "♦"
	case Club:
		return "♣"
	case Heart:
		return "♥"
	case Spade:
		return "♠"
	}
	return "?"
}

func suitFromLetter(b byte) (Suit, bool) {
	switch b {
	case 's', 'S':
		return Spade, true
	case 'h', 'H':
		return Heart, true
	case 'c', 'C':
		return Club, true
	case 'd', 'D':
		return Diamond, true
	}
	return 0, false
}
