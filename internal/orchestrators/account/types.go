package account

import (
	"github.com/0xaya/guild-skill-tree-sub000/internal/entities"
)

// Outcome is the terminal result of one sync attempt. Exactly one outcome
// is produced per call.
type Outcome string

const (
	// OutcomeLocalToServer: no remote snapshot existed; the local snapshot
	// (or a freshly provisioned default) was written to the remote store.
	OutcomeLocalToServer Outcome = "LOCAL_TO_SERVER"
	// OutcomeServerToLocal: a remote snapshot existed but no local one;
	// the remote snapshot was written into local storage.
	OutcomeServerToLocal Outcome = "SERVER_TO_LOCAL"
	// OutcomeConflict: both snapshots exist and differ. Neither store was
	// touched; the caller must resolve via ResolveConflict.
	OutcomeConflict Outcome = "CONFLICT"
	// OutcomeSynced: both snapshots exist and are equivalent. No writes.
	OutcomeSynced Outcome = "SYNCED"
)

// SyncInput defines the input for a sync attempt
type SyncInput struct {
	AccountID string
}

// SyncOutput defines the output of a sync attempt. State is the
// authoritative snapshot except on conflict, where Local and Remote carry
// both candidates and State is nil.
type SyncOutput struct {
	Outcome Outcome
	State   *entities.GlobalState
	Local   *entities.GlobalState
	Remote  *entities.GlobalState
}

// ResolveConflictInput defines the input for resolving a conflict
type ResolveConflictInput struct {
	AccountID string
	// UseLocal picks the local candidate when true, remote otherwise.
	// The pick is wholesale; there is no field-level merge.
	UseLocal bool
	Local    *entities.GlobalState
	Remote   *entities.GlobalState
}

// ResolveConflictOutput defines the output of conflict resolution
type ResolveConflictOutput struct {
	State *entities.GlobalState
}
