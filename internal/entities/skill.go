// Package entities defines the domain types shared across the skill tree
// engine, orchestrators, and persistence layers.
package entities

// SkillLevel is one purchasable rank of a skill. Immutable once loaded.
type SkillLevel struct {
	// Level is the 1-based ordinal of this rank within its skill.
	Level int `json:"level"`
	// RequiredRank is the minimum guild rank needed to purchase this rank.
	RequiredRank int `json:"requiredRank"`
	// Coins is the currency cost of this rank alone (not cumulative).
	Coins int `json:"coins"`
	// Materials maps material name to required quantity. Absent means zero.
	Materials map[string]int `json:"materials,omitempty"`
	// Effects carries per-level stat deltas. Opaque to the engine.
	Effects map[string]float64 `json:"effects,omitempty"`
}

// Skill is a node in the prerequisite graph.
type Skill struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	RequiredRank int    `json:"requiredRank"`
	// Levels is ordered ascending by level number with no gaps; index 0 is level 1.
	Levels []SkillLevel `json:"levels"`
	// Parents holds prerequisite skill ids. Dangling references are filtered
	// out at graph construction, so every entry resolves to a real skill.
	Parents []string `json:"parents,omitempty"`
	// X and Y are placement hints for rendering. The engine ignores them.
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
}

// MaxLevel returns the highest purchasable level of the skill.
func (s *Skill) MaxLevel() int {
	return len(s.Levels)
}

// SkillRecord is one flat per-level row as supplied by the data loader,
// before grouping into Skills.
type SkillRecord struct {
	ID           string
	Level        int
	Name         string
	Category     string
	RequiredRank int
	Coins        int
	Materials    map[string]int
	Effects      map[string]float64
	X            float64
	Y            float64
}

// CostTotals is the aggregate resource cost of a selection. Derived, never
// persisted.
type CostTotals struct {
	Coins     int            `json:"coins"`
	Materials map[string]int `json:"materials"`
}
