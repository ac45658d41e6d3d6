package card

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20"
)

// SeedSize is the length of the per-hand shuffle seed.
const SeedSize = chacha20.KeySize

// FullDeck returns the 52 standard cards in suit-major order.
func FullDeck() CardList {
	out := make(CardList, 0, 52)
	for s := Spade; s <= Diamond; s++ {
		for r := byte(1); r <= 13; r++ {
			out = append(out, New(s, r))
		}
	}
	return out
}

// Deck is a shuffled sequence plus the seed that produced it. Cards are dealt from the front.
type Deck struct {
	Cards CardList `json:"cards"`
	Seed  []byte   `json:"seed,omitempty"`
}

// NewShuffledDeck draws a fresh seed from crypto/rand and shuffles the full deck with it.
func NewShuffledDeck() (Deck, error) {
	seed := make([]byte, SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return Deck{}, fmt.Errorf("read shuffle seed: %w", err)
	}
	return NewDeckFromSeed(seed)
}

// NewDeckFromSeed is deterministic in seed; it keys a ChaCha20 stream and runs Fisher-Yates.
func NewDeckFromSeed(seed []byte) (Deck, error) {
	if len(seed) != SeedSize {
		return Deck{}, fmt.Errorf("shuffle seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	nonce := make([]byte, chacha20.NonceSize)
	stream, err := chacha20.NewUnauthenticatedCipher(seed, nonce)
	if err != nil {
		return Deck{}, err
	}
	cards := FullDeck()
	for i := len(cards) - 1; i > 0; i-- {
		j := uniform(stream, uint32(i+1))
		cards[i], cards[j] = cards[j], cards[i]
	}
	return Deck{Cards: cards, Seed: append([]byte(nil), seed...)}, nil
}

// NewDeckFromString builds an unshuffled deck whose first cards are the given ones,
// followed by the rest of the full deck. Used to stack hands in tests and tools.
func NewDeckFromString(top string) (Deck, error) {
	head, err := ParseList(top)
	if err != nil {
		return Deck{}, err
	}
	seen := make(map[Card]bool, len(head))
	for _, c := range head {
		if seen[c] {
			return Deck{}, fmt.Errorf("duplicate card %s", c)
		}
		seen[c] = true
	}
	cards := append(CardList{}, head...)
	for _, c := range FullDeck() {
		if !seen[c] {
			cards = append(cards, c)
		}
	}
	return Deck{Cards: cards}, nil
}

// Commitment is BLAKE2b-256 over seed||order, hex encoded. Publishing it before the deal
// and revealing the seed afterwards lets anyone check the deck was fixed up front.
func (d Deck) Commitment() string {
	buf := make([]byte, 0, len(d.Seed)+len(d.Cards))
	buf = append(buf, d.Seed...)
	buf = append(buf, d.Cards.Bytes()...)
	sum := blake2b.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

// uniform returns a value in [0, n) without modulo bias.
func uniform(stream *chacha20.Cipher, n uint32) uint32 {
	limit := ^uint32(0) - (^uint32(0) % n)
	var b [4]byte
	for {
		b = [4]byte{}
		stream.XORKeyStream(b[:], b[:])
		v := binary.LittleEndian.Uint32(b[:])
		if v < limit {
			return v % n
		}
	}
}
