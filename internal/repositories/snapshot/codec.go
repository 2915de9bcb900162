// Package snapshot owns the persisted wire shape of GlobalState and the
// timestamp normalization applied at every storage boundary. Both the local
// and remote adapters marshal through this package, so mixed timestamp
// representations from older clients are converted in exactly one place.
package snapshot

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/0xaya/guild-skill-tree-sub000/internal/entities"
	"github.com/0xaya/guild-skill-tree-sub000/internal/errors"
)

type persistedState struct {
	Characters         []persistedCharacter `json:"characters"`
	CurrentCharacterID string               `json:"currentCharacterId"`
}

type persistedCharacter struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	GuildRank      int            `json:"guildRank"`
	SelectedSkills map[string]int `json:"selectedSkills"`
	AcquiredSkills map[string]int `json:"acquiredSkills,omitempty"`
	// UpdatedAt is an RFC 3339 string on write. Older clients stored
	// epoch milliseconds; both forms are accepted on read.
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Marshal serializes a GlobalState to its persisted form.
func Marshal(state *entities.GlobalState) ([]byte, error) {
	if state == nil {
		return nil, errors.InvalidArgument("state cannot be nil")
	}

	out := persistedState{
		Characters:         make([]persistedCharacter, len(state.Characters)),
		CurrentCharacterID: state.CurrentCharacterID,
	}
	for i, c := range state.Characters {
		pc := persistedCharacter{
			ID:             c.ID,
			Name:           c.Name,
			GuildRank:      c.GuildRank,
			SelectedSkills: c.SelectedSkills,
			AcquiredSkills: c.AcquiredSkills,
		}
		if pc.SelectedSkills == nil {
			pc.SelectedSkills = map[string]int{}
		}
		if !c.UpdatedAt.IsZero() {
			pc.UpdatedAt = c.UpdatedAt.UTC().Format(time.RFC3339Nano)
		}
		out.Characters[i] = pc
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal snapshot")
	}
	return data, nil
}

// Unmarshal deserializes a persisted snapshot, normalizing timestamps.
func Unmarshal(data []byte) (*entities.GlobalState, error) {
	var in persistedState
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal snapshot")
	}

	state := &entities.GlobalState{
		Characters:         make([]*entities.Character, len(in.Characters)),
		CurrentCharacterID: in.CurrentCharacterID,
	}
	for i, pc := range in.Characters {
		c := &entities.Character{
			ID:             pc.ID,
			Name:           pc.Name,
			GuildRank:      pc.GuildRank,
			SelectedSkills: pc.SelectedSkills,
			AcquiredSkills: pc.AcquiredSkills,
			UpdatedAt:      parseTimestamp(pc.UpdatedAt),
		}
		if c.SelectedSkills == nil {
			c.SelectedSkills = map[string]int{}
		}
		state.Characters[i] = c
	}
	return state, nil
}

// parseTimestamp accepts RFC 3339 strings and legacy epoch-millisecond
// strings. Anything else normalizes to the zero time; timestamps are
// advisory and excluded from snapshot comparison.
func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts
	}
	if millis, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(millis).UTC()
	}
	return time.Time{}
}
