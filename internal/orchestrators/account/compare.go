package account

import (
	"github.com/0xaya/guild-skill-tree-sub000/internal/entities"
)

// isDifferent reports whether two snapshots differ in semantic content.
// Timestamps are deliberately excluded: a snapshot re-saved with a newer
// UpdatedAt but identical selections is still the same plan, and comparing
// timestamps would turn every reconnect into a conflict.
func isDifferent(local, remote *entities.GlobalState) bool {
	if local.CurrentCharacterID != remote.CurrentCharacterID {
		return true
	}
	if len(local.Characters) != len(remote.Characters) {
		return true
	}
	for _, lc := range local.Characters {
		rc := remote.CharacterByID(lc.ID)
		if rc == nil {
			return true
		}
		if lc.Name != rc.Name {
			return true
		}
		if intMapsDiffer(lc.SelectedSkills, rc.SelectedSkills) {
			return true
		}
		if intMapsDiffer(lc.AcquiredSkills, rc.AcquiredSkills) {
			return true
		}
	}
	return false
}

func intMapsDiffer(a, b map[string]int) bool {
	if len(a) != len(b) {
		return true
	}
	for k, v := range a {
		if b[k] != v {
			return true
		}
	}
	return false
}
