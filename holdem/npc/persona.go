package npc

// Profile tunes a RuleBrain. Every field is in 0..1.
type Profile struct {
	Aggression float64 `json:"aggression"` // bet/raise vs check/call
	Tightness  float64 `json:"tightness"`  // 1.0 plays premiums only
	Bluffing   float64 `json:"bluffing"`
	Randomness float64 `json:"randomness"` // decision noise
}

// Persona is a named bot.
type Persona struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Tagline string  `json:"tagline,omitempty"`
	Brain   Profile `json:"brain"`
}
