// Package globalstate provides the interface for remote snapshot persistence
package globalstate

//go:generate mockgen -destination=mock/mock_repository.go -package=globalstatemock github.com/0xaya/guild-skill-tree-sub000/internal/repositories/globalstate Repository

import (
	"context"

	"github.com/0xaya/guild-skill-tree-sub000/internal/entities"
)

// Repository defines the remote document store holding one snapshot per
// account. Writes merge into the account document rather than replacing it,
// so fields owned by other features survive.
type Repository interface {
	// Get retrieves the snapshot for an account
	// Returns errors.InvalidArgument for empty account ids
	// Returns errors.NotFound if the account has no snapshot yet
	// Returns errors.Unavailable for storage failures
	Get(ctx context.Context, input GetInput) (*GetOutput, error)

	// Put writes the snapshot for an account, merging into the document
	// Returns errors.InvalidArgument for validation failures
	// Returns errors.Unavailable for storage failures
	Put(ctx context.Context, input PutInput) (*PutOutput, error)

	// Delete removes the snapshot field for an account
	// Returns errors.InvalidArgument for empty account ids
	// Returns errors.Unavailable for storage failures
	Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error)
}

// GetInput defines the input for getting a snapshot
type GetInput struct {
	AccountID string
}

// GetOutput defines the output for getting a snapshot
type GetOutput struct {
	State *entities.GlobalState
}

// PutInput defines the input for writing a snapshot
type PutInput struct {
	AccountID string
	State     *entities.GlobalState
}

// PutOutput defines the output for writing a snapshot
type PutOutput struct {
	State *entities.GlobalState
}

// DeleteInput defines the input for deleting a snapshot
type DeleteInput struct {
	AccountID string
}

// DeleteOutput defines the output for deleting a snapshot
type DeleteOutput struct{}
