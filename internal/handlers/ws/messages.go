package ws

import (
	"encoding/json"

	"github.com/0xaya/guild-skill-tree-sub000/internal/entities"
	"github.com/0xaya/guild-skill-tree-sub000/internal/orchestrators/account"
	"github.com/0xaya/guild-skill-tree-sub000/internal/skilltree"
)

// Envelope wraps every frame in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client message types.
const (
	MsgLevelUp         = "levelUp"
	MsgLevelDown       = "levelDown"
	MsgResetTree       = "resetTree"
	MsgCreateCharacter = "createCharacter"
	MsgDeleteCharacter = "deleteCharacter"
	MsgSwitchCharacter = "switchCharacter"
	MsgRenameCharacter = "renameCharacter"
	MsgSetGuildRank    = "setGuildRank"
	MsgCostTotals      = "costTotals"
	MsgSync            = "sync"
	MsgResolveConflict = "resolveConflict"
	MsgFlush           = "flush"
)

// Server message types.
const (
	MsgState      = "state"
	MsgDenied     = "denied"
	MsgSyncResult = "syncResult"
	MsgError      = "error"
)

type skillPayload struct {
	SkillID string `json:"skillId"`
}

type createCharacterPayload struct {
	Name string `json:"name"`
}

type characterPayload struct {
	CharacterID string `json:"characterId"`
}

type renameCharacterPayload struct {
	CharacterID string `json:"characterId"`
	Name        string `json:"name"`
}

type guildRankPayload struct {
	GuildRank int `json:"guildRank"`
}

type syncPayload struct {
	AccountID string `json:"accountId"`
}

type resolveConflictPayload struct {
	UseLocal bool                  `json:"useLocal"`
	Local    *entities.GlobalState `json:"local"`
	Remote   *entities.GlobalState `json:"remote"`
}

// StatePayload carries the full session state after a query or an accepted
// edit.
type StatePayload struct {
	State  *entities.GlobalState `json:"state"`
	Totals *entities.CostTotals  `json:"totals,omitempty"`
}

// DeniedPayload carries a refused transition. The selection is the
// untouched one the denial left in place.
type DeniedPayload struct {
	Denial    *skilltree.Denial `json:"denial"`
	Selection map[string]int    `json:"selection"`
}

// SyncResultPayload carries the outcome of a sync attempt. Local and Remote
// are set only on conflict.
type SyncResultPayload struct {
	Outcome account.Outcome       `json:"outcome"`
	State   *entities.GlobalState `json:"state,omitempty"`
	Local   *entities.GlobalState `json:"local,omitempty"`
	Remote  *entities.GlobalState `json:"remote,omitempty"`
}

// ErrorPayload carries a failed operation.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
