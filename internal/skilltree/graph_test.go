package skilltree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xaya/guild-skill-tree-sub000/internal/entities"
	"github.com/0xaya/guild-skill-tree-sub000/internal/skilltree"
)

func record(id string, level int, name string, rank, coins int, materials map[string]int) entities.SkillRecord {
	return entities.SkillRecord{
		ID:           id,
		Level:        level,
		Name:         name,
		Category:     "attack",
		RequiredRank: rank,
		Coins:        coins,
		Materials:    materials,
	}
}

func TestBuild(t *testing.T) {
	t.Run("groups records into skills sorted by level", func(t *testing.T) {
		graph, err := skilltree.Build(&skilltree.BuildConfig{
			Records: []entities.SkillRecord{
				record("fireball", 2, "Fireball Lv.2", 3, 200, nil),
				record("fireball", 1, "Fireball Lv.1", 1, 100, nil),
				record("fireball", 3, "Fireball Lv.3", 5, 300, nil),
			},
			ParentEdges: map[string][]string{"fireball": {"core"}},
		})
		require.NoError(t, err)

		sk := graph.Skill("fireball")
		require.NotNil(t, sk)
		assert.Equal(t, "Fireball", sk.Name)
		assert.Equal(t, 3, sk.MaxLevel())
		assert.Equal(t, []string{"core"}, sk.Parents)
		for i, lvl := range sk.Levels {
			assert.Equal(t, i+1, lvl.Level)
		}
	})

	t.Run("synthesizes root with a single free level", func(t *testing.T) {
		graph, err := skilltree.Build(&skilltree.BuildConfig{})
		require.NoError(t, err)

		root := graph.Skill(skilltree.DefaultRootID)
		require.NotNil(t, root)
		assert.Equal(t, 1, root.MaxLevel())
		assert.Zero(t, root.Levels[0].Coins)
		assert.Empty(t, root.Parents)
	})

	t.Run("filters dangling parent edges at construction", func(t *testing.T) {
		graph, err := skilltree.Build(&skilltree.BuildConfig{
			Records: []entities.SkillRecord{
				record("slash", 1, "Slash Lv.1", 1, 10, nil),
			},
			ParentEdges: map[string][]string{
				"slash": {"core", "ghost_skill", "slash"},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"core"}, graph.Skill("slash").Parents)
		assert.Equal(t, []string{"slash"}, graph.Children("core"))
		assert.Empty(t, graph.Children("ghost_skill"))
	})

	t.Run("skips records without an id or derivable name", func(t *testing.T) {
		graph, err := skilltree.Build(&skilltree.BuildConfig{
			Records: []entities.SkillRecord{
				record("", 1, "Nameless Lv.1", 1, 10, nil),
				record("numeric", 1, "42", 1, 10, nil),
				record("kept", 1, "Kept Lv.1", 1, 10, nil),
			},
		})
		require.NoError(t, err)

		assert.Nil(t, graph.Skill(""))
		assert.Nil(t, graph.Skill("numeric"))
		assert.NotNil(t, graph.Skill("kept"))
		assert.Equal(t, 2, graph.Len()) // kept + root
	})

	t.Run("rejects gapped level sequences", func(t *testing.T) {
		_, err := skilltree.Build(&skilltree.BuildConfig{
			Records: []entities.SkillRecord{
				record("gapped", 1, "Gapped Lv.1", 1, 10, nil),
				record("gapped", 3, "Gapped Lv.3", 1, 30, nil),
			},
		})
		assert.Error(t, err)
	})

	t.Run("nil config is invalid", func(t *testing.T) {
		_, err := skilltree.Build(nil)
		assert.Error(t, err)
	})
}

func TestGraphSkills(t *testing.T) {
	graph, err := skilltree.Build(&skilltree.BuildConfig{
		Records: []entities.SkillRecord{
			record("b_skill", 1, "B Lv.1", 1, 10, nil),
			record("a_skill", 1, "A Lv.1", 1, 10, nil),
		},
	})
	require.NoError(t, err)

	skills := graph.Skills()
	require.Len(t, skills, 3)
	assert.Equal(t, "a_skill", skills[0].ID)
	assert.Equal(t, "b_skill", skills[1].ID)
	assert.Equal(t, "core", skills[2].ID)
}
