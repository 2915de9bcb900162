package skilltree

import (
	"github.com/0xaya/guild-skill-tree-sub000/internal/entities"
	"github.com/0xaya/guild-skill-tree-sub000/internal/errors"
)

// SelectionMap maps skill id to the currently selected level. A value of 0
// is equivalent to absence. Mutated only through the transition functions,
// which copy on write.
type SelectionMap map[string]int

// Level returns the selected level for a skill id (0 when absent).
func (m SelectionMap) Level(id string) int {
	return m[id]
}

// Clone returns a copy of the selection map.
func (m SelectionMap) Clone() SelectionMap {
	out := make(SelectionMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Equal reports whether two selections have the same key count and values.
// Zero entries are NOT treated as absent here; callers persisting selections
// are expected to drop zeros first.
func (m SelectionMap) Equal(other SelectionMap) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		if other[k] != v {
			return false
		}
	}
	return true
}

// ResetSelection returns the minimal valid selection: only the root at
// level 1.
func ResetSelection(rootID string) SelectionMap {
	return SelectionMap{rootID: 1}
}

// DenialReason identifies why a level transition was refused.
type DenialReason string

// Transition denial reasons. These are expected rule outcomes, not errors;
// the prior selection is always left untouched.
const (
	// DenialLocked: no parent prerequisite is satisfied.
	DenialLocked DenialReason = "LOCKED"
	// DenialRankTooLow: the next level requires a higher guild rank.
	DenialRankTooLow DenialReason = "RANK_TOO_LOW"
	// DenialAlreadyMax: the skill is at its ceiling (or is the fixed root).
	DenialAlreadyMax DenialReason = "ALREADY_MAX"
	// DenialHasActiveDependents: a child skill still has a selected level.
	DenialHasActiveDependents DenialReason = "HAS_ACTIVE_DEPENDENTS"
	// DenialAtMinimum: nothing to retract (level 0, or the fixed root).
	DenialAtMinimum DenialReason = "AT_MINIMUM"
)

// Denial explains a refused transition.
type Denial struct {
	Reason DenialReason `json:"reason"`
	// RequiredParents carries parent display names when Reason is LOCKED.
	RequiredParents []string `json:"requiredParents,omitempty"`
	// RequiredRank carries the gating rank when Reason is RANK_TOO_LOW.
	RequiredRank int `json:"requiredRank,omitempty"`
	// Dependents carries active child display names when Reason is
	// HAS_ACTIVE_DEPENDENTS.
	Dependents []string `json:"dependents,omitempty"`
}

// TransitionResult is the outcome of a level transition attempt. On denial,
// Selection is the unchanged input selection.
type TransitionResult struct {
	Selection SelectionMap
	Denial    *Denial
}

// IsUnlocked reports whether a skill can begin leveling given the current
// selection. The root is always unlocked. A skill with parents is unlocked
// when at least one parent has a selected level above zero (OR semantics).
// A non-root skill with an empty resolved parent set counts as unlocked:
// the tree's shape guarantees every reachable skill has a real parent, so
// an empty set is a data-authoring omission, not a lock.
//
// Guild rank gating lives in LevelUp, not here, so the rule is enforced in
// exactly one place.
func (g *Graph) IsUnlocked(skillID string, sel SelectionMap) (bool, error) {
	sk := g.skills[skillID]
	if sk == nil {
		return false, errors.NotFoundf("skill %s not found", skillID)
	}
	if skillID == g.rootID || len(sk.Parents) == 0 {
		return true, nil
	}
	for _, parent := range sk.Parents {
		if sel.Level(parent) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// LevelUp attempts to raise a skill's selected level by one. Preconditions
// are checked in order and the first failure wins: the root never
// transitions; the skill must not be maxed; it must be unlocked; and the
// level being purchased must be within the guild rank. On success the
// returned selection is a copy with only this skill's entry changed.
func (g *Graph) LevelUp(sel SelectionMap, skillID string, guildRank int) (*TransitionResult, error) {
	sk := g.skills[skillID]
	if sk == nil {
		return nil, errors.NotFoundf("skill %s not found", skillID)
	}

	if skillID == g.rootID {
		return &TransitionResult{Selection: sel, Denial: &Denial{Reason: DenialAlreadyMax}}, nil
	}

	current := sel.Level(skillID)
	if current >= sk.MaxLevel() {
		return &TransitionResult{Selection: sel, Denial: &Denial{Reason: DenialAlreadyMax}}, nil
	}

	unlocked, err := g.IsUnlocked(skillID, sel)
	if err != nil {
		return nil, err
	}
	if !unlocked {
		return &TransitionResult{Selection: sel, Denial: &Denial{
			Reason:          DenialLocked,
			RequiredParents: g.parentNames(sk.Parents),
		}}, nil
	}

	next := sk.Levels[current]
	if next.RequiredRank > guildRank {
		return &TransitionResult{Selection: sel, Denial: &Denial{
			Reason:       DenialRankTooLow,
			RequiredRank: next.RequiredRank,
		}}, nil
	}

	out := sel.Clone()
	out[skillID] = current + 1
	return &TransitionResult{Selection: out}, nil
}

// LevelDown attempts to lower a skill's selected level by one. The root
// never transitions and a level of zero cannot go lower. A skill with any
// active dependent child is blocked: retracting it could leave that child
// with no satisfied prerequisite.
//
// This check is deliberately conservative. Because unlock is OR across
// parents, a child could remain satisfied through an alternate parent, and
// a more precise implementation would only block when no such alternate
// exists. Blocking on any active child keeps the rule cheap and
// predictable; tightening it is an open product question.
func (g *Graph) LevelDown(sel SelectionMap, skillID string) (*TransitionResult, error) {
	sk := g.skills[skillID]
	if sk == nil {
		return nil, errors.NotFoundf("skill %s not found", skillID)
	}

	if skillID == g.rootID {
		return &TransitionResult{Selection: sel, Denial: &Denial{Reason: DenialAtMinimum}}, nil
	}

	current := sel.Level(skillID)
	if current == 0 {
		return &TransitionResult{Selection: sel, Denial: &Denial{Reason: DenialAtMinimum}}, nil
	}

	var active []string
	for _, childID := range g.children[skillID] {
		if sel.Level(childID) > 0 {
			active = append(active, g.skills[childID].Name)
		}
	}
	if len(active) > 0 {
		return &TransitionResult{Selection: sel, Denial: &Denial{
			Reason:     DenialHasActiveDependents,
			Dependents: active,
		}}, nil
	}

	out := sel.Clone()
	if current == 1 {
		delete(out, skillID)
	} else {
		out[skillID] = current - 1
	}
	return &TransitionResult{Selection: out}, nil
}

// CostTotals sums the cumulative cost of a selection: for every skill at
// selected level L, the coins and materials of levels 1 through L. Pure
// summation over the selection, so the result is order-independent and can
// be re-derived at any time. Skill ids in the selection that no longer
// exist in the graph contribute nothing.
func (g *Graph) CostTotals(sel SelectionMap) *entities.CostTotals {
	totals := &entities.CostTotals{Materials: make(map[string]int)}
	for id, level := range sel {
		sk := g.skills[id]
		if sk == nil || level <= 0 {
			continue
		}
		if level > sk.MaxLevel() {
			level = sk.MaxLevel()
		}
		for _, lvl := range sk.Levels[:level] {
			totals.Coins += lvl.Coins
			for mat, qty := range lvl.Materials {
				totals.Materials[mat] += qty
			}
		}
	}
	return totals
}

func (g *Graph) parentNames(ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if sk := g.skills[id]; sk != nil {
			names = append(names, sk.Name)
		}
	}
	return names
}
