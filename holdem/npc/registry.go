package npc

import (
	"fmt"
	"os"
	"sort"
	"sync"

	json "github.com/goccy/go-json"
)

// DefaultPersonas cover the usual table archetypes.
var DefaultPersonas = []*Persona{
	{ID: "rock", Name: "Rock", Tagline: "waits for aces", Brain: Profile{Aggression: 0.25, Tightness: 0.85, Bluffing: 0.05, Randomness: 0.1}},
	{ID: "tag", Name: "Shark", Tagline: "tight and aggressive", Brain: Profile{Aggression: 0.70, Tightness: 0.60, Bluffing: 0.25, Randomness: 0.15}},
	{ID: "lag", Name: "Maniac", Tagline: "never folds a button", Brain: Profile{Aggression: 0.85, Tightness: 0.25, Bluffing: 0.55, Randomness: 0.3}},
	{ID: "station", Name: "Station", Tagline: "calls everything", Brain: Profile{Aggression: 0.15, Tightness: 0.10, Bluffing: 0.05, Randomness: 0.2}},
}

// Registry holds persona definitions by id.
type Registry struct {
	mu       sync.RWMutex
	personas map[string]*Persona
}

// NewRegistry returns a registry preloaded with DefaultPersonas.
func NewRegistry() *Registry {
	r := &Registry{personas: make(map[string]*Persona)}
	for _, p := range DefaultPersonas {
		r.personas[p.ID] = p
	}
	return r
}

func (r *Registry) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read personas file: %w", err)
	}
	return r.LoadFromJSON(data)
}

// LoadFromJSON adds or replaces personas from a JSON array. Entries without an id are skipped.
func (r *Registry) LoadFromJSON(data []byte) error {
	var list []*Persona
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parse personas JSON: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range list {
		if p == nil || p.ID == "" {
			continue
		}
		r.personas[p.ID] = p
	}
	return nil
}

func (r *Registry) Get(id string) *Persona {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.personas[id]
}

// All returns every persona ordered by id.
func (r *Registry) All() []*Persona {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Persona, 0, len(r.personas))
	for _, p := range r.personas {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.personas)
}
