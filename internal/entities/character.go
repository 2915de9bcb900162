package entities

import "time"

// Guild rank bounds. Ranks outside this range are rejected at the orchestrator
// boundary.
const (
	MinGuildRank = 1
	MaxGuildRank = 15
)

// Character owns one skill tree. A character belongs to exactly one account,
// or to the local device while unauthenticated.
type Character struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// GuildRank gates which skill levels can be purchased (1..15).
	GuildRank int `json:"guildRank"`
	// SelectedSkills maps skill id to the currently planned level.
	// 0 is equivalent to absence.
	SelectedSkills map[string]int `json:"selectedSkills"`
	// AcquiredSkills maps skill id to the level the character actually owns
	// in-game. The engine treats it as opaque; the sync protocol compares it.
	AcquiredSkills map[string]int `json:"acquiredSkills,omitempty"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Clone returns a deep copy of the character.
func (c *Character) Clone() *Character {
	if c == nil {
		return nil
	}
	out := *c
	out.SelectedSkills = cloneIntMap(c.SelectedSkills)
	out.AcquiredSkills = cloneIntMap(c.AcquiredSkills)
	return &out
}

// GlobalState is the full persisted unit: every character plus the currently
// selected character id. The sync protocol compares and reconciles whole
// GlobalState values, never individual characters.
type GlobalState struct {
	Characters []*Character `json:"characters"`
	// CurrentCharacterID is empty when no character is selected.
	CurrentCharacterID string `json:"currentCharacterId"`
}

// Clone returns a deep copy of the state.
func (g *GlobalState) Clone() *GlobalState {
	if g == nil {
		return nil
	}
	out := &GlobalState{
		Characters:         make([]*Character, len(g.Characters)),
		CurrentCharacterID: g.CurrentCharacterID,
	}
	for i, c := range g.Characters {
		out.Characters[i] = c.Clone()
	}
	return out
}

// CharacterByID returns the character with the given id, or nil.
func (g *GlobalState) CharacterByID(id string) *Character {
	for _, c := range g.Characters {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// CurrentCharacter returns the currently selected character, or nil.
func (g *GlobalState) CurrentCharacter() *Character {
	return g.CharacterByID(g.CurrentCharacterID)
}

func cloneIntMap(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
