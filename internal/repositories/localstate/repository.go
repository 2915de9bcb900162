// Package localstate provides the interface for the device-local snapshot store
package localstate

//go:generate mockgen -destination=mock/mock_repository.go -package=localstatemock github.com/0xaya/guild-skill-tree-sub000/internal/repositories/localstate Repository

import (
	"context"

	"github.com/0xaya/guild-skill-tree-sub000/internal/entities"
)

// Repository holds the single local snapshot: one serialized GlobalState
// under a fixed key. It is the offline copy that the sync protocol compares
// against the remote store on session start.
type Repository interface {
	// Load reads the local snapshot
	// Returns errors.NotFound if no snapshot has been saved
	// Returns errors.Unavailable for storage failures
	Load(ctx context.Context, input LoadInput) (*LoadOutput, error)

	// Save writes the local snapshot, replacing any previous one
	// Returns errors.InvalidArgument for a nil state
	// Returns errors.Unavailable for storage failures
	Save(ctx context.Context, input SaveInput) (*SaveOutput, error)

	// Clear removes the local snapshot; clearing an absent snapshot is a no-op
	Clear(ctx context.Context, input ClearInput) (*ClearOutput, error)
}

// LoadInput defines the input for loading the snapshot
type LoadInput struct{}

// LoadOutput defines the output for loading the snapshot
type LoadOutput struct {
	State *entities.GlobalState
}

// SaveInput defines the input for saving the snapshot
type SaveInput struct {
	State *entities.GlobalState
}

// SaveOutput defines the output for saving the snapshot
type SaveOutput struct {
	State *entities.GlobalState
}

// ClearInput defines the input for clearing the snapshot
type ClearInput struct{}

// ClearOutput defines the output for clearing the snapshot
type ClearOutput struct{}
