package card

import (
	"strings"

	json "github.com/goccy/go-json"
)

type CardList []Card

// Count 获取总牌数
func (ds CardList) Count() int {
	return len(ds)
}

func (ds CardList) Bytes() []byte {
	out := make([]byte, 0, len(ds))
	for _, c := range ds {
		out = append(out, byte(c))
	}
	return out
}

func (ds CardList) Clone() CardList {
	if ds == nil {
		return nil
	}
	out := make(CardList, len(ds))
	copy(out, ds)
	return out
}

func (ds CardList) Contains(c Card) bool {
	for _, cc := range ds {
		if cc == c {
			return true
		}
	}
	return false
}

func (ds CardList) String() string {
	parts := make([]string, 0, len(ds))
	for _, c := range ds {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, " ")
}

func (ds *CardList) Add(cards ...Card) {
	*ds = append(*ds, cards...)
}

// PopCards 从牌堆顶部取 size 张
func (ds *CardList) PopCards(size int) ([]Card, bool) {
	if size > ds.Count() {
		return nil, false
	}
	cards := make([]Card, size)
	copy(cards, (*ds)[:size])
	*ds = (*ds)[size:]
	return cards, true
}

// MarshalJSON writes the list as an array of card strings so it never falls back to
// the base64 form used for byte slices.
func (ds CardList) MarshalJSON() ([]byte, error) {
	out := make([]string, 0, len(ds))
	for _, c := range ds {
		b, err := c.MarshalText()
		if err != nil {
			return nil, err
		}
		out = append(out, string(b))
	}
	return json.Marshal(out)
}

func (ds *CardList) UnmarshalJSON(b []byte) error {
	var raw []string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*ds = nil
		return nil
	}
	out := make(CardList, 0, len(raw))
	for _, r := range raw {
		c, err := Parse(r)
		if err != nil {
			return err
		}
		out = append(out, c)
	}
	*ds = out
	return nil
}
