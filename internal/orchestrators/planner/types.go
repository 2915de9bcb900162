package planner

import (
	"github.com/0xaya/guild-skill-tree-sub000/internal/entities"
	"github.com/0xaya/guild-skill-tree-sub000/internal/skilltree"
)

// Defaults applied when provisioning a character.
const (
	DefaultCharacterName = "Character 1"
	DefaultGuildRank     = 5
)

// LoadInput defines the input for loading the session state
type LoadInput struct{}

// LoadOutput defines the output for loading the session state
type LoadOutput struct {
	State *entities.GlobalState
}

// AdoptStateInput defines the input for adopting an authoritative state
type AdoptStateInput struct {
	State *entities.GlobalState
	// AccountID, when non-empty, routes subsequent edits to the remote
	// store through the debounced writer.
	AccountID string
}

// AdoptStateOutput defines the output for adopting an authoritative state
type AdoptStateOutput struct {
	State *entities.GlobalState
}

// StateInput defines the input for reading the session state
type StateInput struct{}

// StateOutput defines the output for reading the session state
type StateOutput struct {
	State *entities.GlobalState
}

// CreateCharacterInput defines the input for creating a character
type CreateCharacterInput struct {
	Name string
}

// CreateCharacterOutput defines the output for creating a character
type CreateCharacterOutput struct {
	Character *entities.Character
	State     *entities.GlobalState
}

// DeleteCharacterInput defines the input for deleting a character
type DeleteCharacterInput struct {
	CharacterID string
}

// DeleteCharacterOutput defines the output for deleting a character
type DeleteCharacterOutput struct {
	State *entities.GlobalState
}

// SwitchCharacterInput defines the input for switching the current character
type SwitchCharacterInput struct {
	CharacterID string
}

// SwitchCharacterOutput defines the output for switching the current character
type SwitchCharacterOutput struct {
	Character *entities.Character
}

// RenameCharacterInput defines the input for renaming a character
type RenameCharacterInput struct {
	CharacterID string
	Name        string
}

// RenameCharacterOutput defines the output for renaming a character
type RenameCharacterOutput struct {
	Character *entities.Character
}

// SetGuildRankInput defines the input for setting the current character's rank
type SetGuildRankInput struct {
	GuildRank int
}

// SetGuildRankOutput defines the output for setting the current character's rank
type SetGuildRankOutput struct {
	Character *entities.Character
}

// LevelUpInput defines the input for a level-up attempt
type LevelUpInput struct {
	SkillID string
}

// LevelDownInput defines the input for a level-down attempt
type LevelDownInput struct {
	SkillID string
}

// TransitionOutput is the output of a level transition attempt. On denial,
// Selection is the unchanged prior selection and Denial carries the reason.
type TransitionOutput struct {
	Selection skilltree.SelectionMap
	Totals    *entities.CostTotals
	Denial    *skilltree.Denial
}

// ResetTreeInput defines the input for resetting the current character's tree
type ResetTreeInput struct{}

// ResetTreeOutput defines the output for resetting the current character's tree
type ResetTreeOutput struct {
	Selection skilltree.SelectionMap
	Totals    *entities.CostTotals
}

// CostTotalsInput defines the input for recomputing totals
type CostTotalsInput struct{}

// CostTotalsOutput defines the output for recomputing totals
type CostTotalsOutput struct {
	Totals *entities.CostTotals
}
