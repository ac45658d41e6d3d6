package npc

import (
	"math/rand/v2"

	"holdem-live/card"
	"holdem-live/holdem"
)

// RuleBrain decides from a Profile plus a rough hand-strength estimate.
type RuleBrain struct {
	Persona *Persona
	rng     *rand.Rand
}

// NewRuleBrain seeds its own generator so the same seed replays the same decisions.
func NewRuleBrain(persona *Persona, seed uint64) *RuleBrain {
	return &RuleBrain{
		Persona: persona,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (b *RuleBrain) Name() string { return b.Persona.Name }

func (b *RuleBrain) Decide(view GameView) Decision {
	p := b.Persona.Brain

	aggression := clamp01(p.Aggression + (b.rng.Float64()-0.5)*p.Randomness*0.4)
	tightness := clamp01(p.Tightness + (b.rng.Float64()-0.5)*p.Randomness*0.3)

	legal := view.Legal.Kinds
	if len(legal) == 0 {
		return Decision{Action: holdem.PlayerActionTypeFold}
	}
	canFold := contains(legal, holdem.PlayerActionTypeFold)
	canCheck := contains(legal, holdem.PlayerActionTypeCheck)
	canCall := contains(legal, holdem.PlayerActionTypeCall)
	canBet := contains(legal, holdem.PlayerActionTypeBet)
	canRaise := contains(legal, holdem.PlayerActionTypeRaise)
	canAllIn := contains(legal, holdem.PlayerActionTypeAllin)

	strength := b.estimateHandStrength(view)

	if view.Street == 0 && strength < tightness*0.6 && canFold {
		if canCheck {
			return Decision{Action: holdem.PlayerActionTypeCheck}
		}
		return Decision{Action: holdem.PlayerActionTypeFold}
	}

	aggressive := strength > (1.0-aggression)*0.5
	if aggressive {
		if canRaise {
			return Decision{Action: holdem.PlayerActionTypeRaise, Amount: b.raiseTo(view, aggression)}
		}
		if canBet {
			return Decision{Action: holdem.PlayerActionTypeBet, Amount: b.betTo(view, aggression)}
		}
	}

	if !aggressive && b.rng.Float64() < p.Bluffing*0.3 {
		if canBet {
			return Decision{Action: holdem.PlayerActionTypeBet, Amount: b.betTo(view, 0.4)}
		}
		if canRaise {
			return Decision{Action: holdem.PlayerActionTypeRaise, Amount: b.raiseTo(view, 0.4)}
		}
	}

	if canCheck {
		return Decision{Action: holdem.PlayerActionTypeCheck}
	}
	if canCall {
		// loose profiles call wider; tight ones give up facing a bet
		if strength > tightness*0.4 || b.rng.Float64() < (1.0-tightness)*0.5 || !canFold {
			return Decision{Action: holdem.PlayerActionTypeCall}
		}
		return Decision{Action: holdem.PlayerActionTypeFold}
	}

	// short stacks reach here when all-in is the only way to continue
	if canAllIn {
		if strength > 0.6 || b.rng.Float64() < aggression*0.2 || !canFold {
			return Decision{Action: holdem.PlayerActionTypeAllin}
		}
		return Decision{Action: holdem.PlayerActionTypeFold}
	}
	return Decision{Action: legal[0]}
}

// estimateHandStrength maps the hole cards, and the made hand once there is a board, to 0..1.
func (b *RuleBrain) estimateHandStrength(view GameView) float64 {
	if len(view.HoleCards) < 2 {
		return 0.3
	}
	c0, c1 := view.HoleCards[0], view.HoleCards[1]
	hi, lo := c0.HandRealVal(), c1.HandRealVal()
	if lo > hi {
		hi, lo = lo, hi
	}
	// ranks scaled over 2..14; the high card carries most of the weight
	strength := 0.35*float64(hi-2)/12 + 0.15*float64(lo-2)/12
	if hi == lo {
		strength += 0.35 + 0.15*float64(hi-2)/12
	}
	if c0.Suit() == c1.Suit() {
		strength += 0.05
		if hi != lo && hi-lo <= 2 {
			strength += 0.05
		}
	}

	if view.Street > 0 && len(view.Community) >= 3 {
		cards := append(card.CardList{}, view.HoleCards...)
		cards = append(cards, view.Community...)
		if v, err := holdem.Evaluate(cards); err == nil {
			made := float64(v.Category-holdem.HandHighCard) / float64(holdem.HandRoyalFlush-holdem.HandHighCard)
			strength = 0.35*strength + 0.65*clamp01(made*2.5)
		}
		strength += (b.rng.Float64() - 0.5) * 0.1
	}
	return clamp01(strength)
}

// betTo sizes between a third of the pot and the full pot.
func (b *RuleBrain) betTo(view GameView, aggression float64) int64 {
	bet := int64(float64(view.Pot) * (0.33 + aggression*0.67))
	return max(bet, view.Legal.MinBet)
}

// raiseTo sizes between two and three and a half times the current bet.
func (b *RuleBrain) raiseTo(view GameView, aggression float64) int64 {
	raise := int64(float64(view.CurrentBet) * (2.0 + aggression*1.5))
	return max(raise, view.Legal.MinRaise)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func contains(actions []holdem.ActionType, target holdem.ActionType) bool {
	for _, a := range actions {
		if a == target {
			return true
		}
	}
	return false
}
