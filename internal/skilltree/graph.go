// Package skilltree implements the skill tree engine: prerequisite graph
// construction, the unlock predicate, level transitions, and cost
// aggregation. Everything here is pure and synchronous; callers own
// persistence and presentation.
package skilltree

import (
	"log/slog"
	"regexp"
	"sort"

	"github.com/0xaya/guild-skill-tree-sub000/internal/entities"
	"github.com/0xaya/guild-skill-tree-sub000/internal/errors"
)

// DefaultRootID is the conventional id of the root skill.
const DefaultRootID = "core"

// levelSuffix matches trailing level designators on record names,
// e.g. "Fireball Lv.3" or "Fireball 3".
var levelSuffix = regexp.MustCompile(`(?i)[\s　]*(lv\.?\s*)?\d+$`)

// Graph is the full prerequisite graph. Built once when skill data loads;
// read-only thereafter.
type Graph struct {
	rootID   string
	skills   map[string]*entities.Skill
	children map[string][]string
}

// BuildConfig carries the inputs for graph construction.
type BuildConfig struct {
	// Records are the flat per-level rows, one per skill level.
	Records []entities.SkillRecord
	// ParentEdges maps child skill id to its declared parent ids. Supplied
	// independently of the records; dangling ids are filtered out here.
	ParentEdges map[string][]string
	// RootID overrides the root skill id. Defaults to DefaultRootID.
	RootID string
}

// Build groups per-level records into skills, synthesizes the root skill,
// and resolves the parent adjacency. Records lacking an id or a derivable
// name are skipped, not fatal. Parent ids that do not resolve to a loaded
// skill are silently dropped so queries never see a dangling edge.
func Build(cfg *BuildConfig) (*Graph, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config cannot be nil")
	}

	rootID := cfg.RootID
	if rootID == "" {
		rootID = DefaultRootID
	}

	skills := make(map[string]*entities.Skill)
	for _, rec := range cfg.Records {
		if rec.ID == "" || rec.ID == rootID {
			continue
		}
		name := stripLevelSuffix(rec.Name)
		if name == "" {
			slog.Warn("skipping skill record with no derivable name",
				"skill_id", rec.ID,
				"level", rec.Level)
			continue
		}

		sk, ok := skills[rec.ID]
		if !ok {
			sk = &entities.Skill{
				ID:           rec.ID,
				Name:         name,
				Category:     rec.Category,
				RequiredRank: rec.RequiredRank,
				X:            rec.X,
				Y:            rec.Y,
			}
			skills[rec.ID] = sk
		}
		sk.Levels = append(sk.Levels, entities.SkillLevel{
			Level:        rec.Level,
			RequiredRank: rec.RequiredRank,
			Coins:        rec.Coins,
			Materials:    rec.Materials,
			Effects:      rec.Effects,
		})
	}

	// The root is always present: a single free level, no parents, and it
	// is never purchasable through the transition functions.
	skills[rootID] = &entities.Skill{
		ID:     rootID,
		Name:   "Core",
		Levels: []entities.SkillLevel{{Level: 1}},
	}

	for id, sk := range skills {
		if id == rootID {
			continue
		}
		sort.Slice(sk.Levels, func(i, j int) bool {
			return sk.Levels[i].Level < sk.Levels[j].Level
		})
		for i, lvl := range sk.Levels {
			if lvl.Level != i+1 {
				return nil, errors.InvalidArgumentf(
					"skill %s has malformed level sequence: got level %d at position %d",
					id, lvl.Level, i+1)
			}
		}
		// The rank to begin leveling is the first level's gate, regardless
		// of record order in the source data.
		sk.RequiredRank = sk.Levels[0].RequiredRank
	}

	// Resolve parent edges down to ids that actually exist, so unlock
	// checks never have to re-validate.
	children := make(map[string][]string)
	for id, sk := range skills {
		if id == rootID {
			continue
		}
		for _, parent := range cfg.ParentEdges[id] {
			if _, ok := skills[parent]; !ok || parent == id {
				continue
			}
			sk.Parents = append(sk.Parents, parent)
			children[parent] = append(children[parent], id)
		}
		sort.Strings(sk.Parents)
	}
	for _, ids := range children {
		sort.Strings(ids)
	}

	return &Graph{
		rootID:   rootID,
		skills:   skills,
		children: children,
	}, nil
}

func stripLevelSuffix(name string) string {
	return levelSuffix.ReplaceAllString(name, "")
}

// RootID returns the id of the root skill.
func (g *Graph) RootID() string {
	return g.rootID
}

// Skill returns the skill with the given id, or nil.
func (g *Graph) Skill(id string) *entities.Skill {
	return g.skills[id]
}

// Skills returns every skill in the graph, sorted by id. Intended for
// rendering; mutating the returned skills is undefined behavior.
func (g *Graph) Skills() []*entities.Skill {
	out := make([]*entities.Skill, 0, len(g.skills))
	for _, sk := range g.skills {
		out = append(out, sk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Children returns the ids of skills that list id as a parent.
func (g *Graph) Children(id string) []string {
	return g.children[id]
}

// Len returns the number of skills in the graph, including the root.
func (g *Graph) Len() int {
	return len(g.skills)
}
