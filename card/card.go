package card

import (
	"fmt"
	"strings"
)

// Card 牌枚举
//
// 编码规则:
// - 高4位: 花色 (0:Spade, 1:Heart, 2:Club, 3:Diamond)
// - 低4位: 点数 (1:A, 2..9, 10:T, 11:J, 12:Q, 13:K)
type Card byte

const (
	CardInvalid Card = 0
	CardRear    Card = 0xFF
)

const rankLetters = "A23456789TJQK"

// New builds a card from a suit and a rank in 1..13 (A=1).
func New(s Suit, rank byte) Card {
	return Card(byte(s)<<4 | rank&0x0F)
}

// String renders the compact wire form, e.g. "As", "Td".
func (c Card) String() string {
	if c == CardInvalid {
		return "Invalid"
	}
	if c == CardRear {
		return "Rear"
	}
	r := c.Rank()
	if r < 1 || r > 13 {
		return fmt.Sprintf("?%d", r)
	}
	return string(rankLetters[r-1]) + string(c.Suit().Letter())
}

// Rank 获取牌面值 1-13 (A=1, K=13)
func (c Card) Rank() byte {
	if c == CardInvalid || c == CardRear {
		return 0
	}
	return byte(c & 0x0F)
}

// Suit 花色 (0:Spades, 1:Hearts, 2:Clubs, 3:Diamonds)
func (c Card) Suit() Suit {
	return Suit(c >> 4)
}

func (c Card) IsAce() bool {
	return c.Rank() == 1
}

// Valid reports whether c is one of the 52 real cards.
func (c Card) Valid() bool {
	r := c.Rank()
	return r >= 1 && r <= 13 && c.Suit() <= Diamond
}

// HandRealVal 返回用于比较大小的点数:
// - A 视为 14
// - 其它为原始点数
func (c Card) HandRealVal() int {
	r := int(c & 0x0F)
	if r == 1 {
		return 14
	}
	return r
}

func (c Card) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("card: cannot marshal invalid card 0x%02x", byte(c))
	}
	return []byte(c.String()), nil
}

func (c *Card) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Parse 将字符串 (如 "As", "Td", "10h") 转换为 Card
func Parse(s string) (Card, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return CardInvalid, fmt.Errorf("invalid card string: %q", s)
	}

	suit, ok := suitFromLetter(s[len(s)-1])
	if !ok {
		return CardInvalid, fmt.Errorf("invalid suit: %c", s[len(s)-1])
	}

	rankStr := strings.ToUpper(s[:len(s)-1])
	if rankStr == "10" {
		rankStr = "T"
	}
	if len(rankStr) != 1 {
		return CardInvalid, fmt.Errorf("invalid rank: %s", rankStr)
	}
	idx := strings.IndexByte(rankLetters, rankStr[0])
	if idx < 0 {
		return CardInvalid, fmt.Errorf("invalid rank: %s", rankStr)
	}
	return New(suit, byte(idx+1)), nil
}

// ParseList parses a whitespace separated list such as "As Kd 7c".
func ParseList(s string) (CardList, error) {
	fields := strings.Fields(s)
	out := make(CardList, 0, len(fields))
	for _, f := range fields {
		c, err := Parse(f)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// MustParseList is ParseList for fixtures; it panics on bad input.
func MustParseList(s string) CardList {
	cl, err := ParseList(s)
	if err != nil {
		panic(err)
	}
	return cl
}
