// Package account implements the snapshot synchronization protocol that
// reconciles the device-local copy of a user's characters against the
// remote copy when a session authenticates.
package account

//go:generate mockgen -destination=mock/mock_service.go -package=accountmock github.com/0xaya/guild-skill-tree-sub000/internal/orchestrators/account Service

import (
	"context"
	"log/slog"

	"github.com/0xaya/guild-skill-tree-sub000/internal/entities"
	"github.com/0xaya/guild-skill-tree-sub000/internal/errors"
	"github.com/0xaya/guild-skill-tree-sub000/internal/orchestrators/planner"
	"github.com/0xaya/guild-skill-tree-sub000/internal/pkg/clock"
	"github.com/0xaya/guild-skill-tree-sub000/internal/pkg/idgen"
	"github.com/0xaya/guild-skill-tree-sub000/internal/repositories/globalstate"
	"github.com/0xaya/guild-skill-tree-sub000/internal/repositories/localstate"
	"github.com/0xaya/guild-skill-tree-sub000/internal/skilltree"
)

// Service defines the synchronization operations run at session start.
// Callers must serialize Sync attempts per account; the protocol has no
// internal mutual exclusion.
type Service interface {
	// Sync reconciles the local and remote snapshots for an account and
	// returns exactly one terminal outcome.
	Sync(ctx context.Context, input *SyncInput) (*SyncOutput, error)

	// ResolveConflict persists the user's wholesale pick of one conflict
	// candidate to both stores. Idempotent.
	ResolveConflict(ctx context.Context, input *ResolveConflictInput) (*ResolveConflictOutput, error)
}

// Config holds the dependencies for the sync orchestrator
type Config struct {
	Remote      globalstate.Repository
	Local       localstate.Repository
	Clock       clock.Clock
	IDGenerator idgen.Generator
	// RootID is the skill tree root used when provisioning a default
	// character. Defaults to skilltree.DefaultRootID.
	RootID string
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config cannot be nil")
	}

	vb := errors.NewValidationBuilder()
	if c.Remote == nil {
		vb.RequiredField("Remote")
	}
	if c.Local == nil {
		vb.RequiredField("Local")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}
	return vb.Build()
}

type orchestrator struct {
	remote globalstate.Repository
	local  localstate.Repository
	clock  clock.Clock
	idGen  idgen.Generator
	rootID string
}

// NewOrchestrator creates a new sync orchestrator with the provided dependencies
func NewOrchestrator(cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}
	rootID := cfg.RootID
	if rootID == "" {
		rootID = skilltree.DefaultRootID
	}

	return &orchestrator{
		remote: cfg.Remote,
		local:  cfg.Local,
		clock:  c,
		idGen:  cfg.IDGenerator,
		rootID: rootID,
	}, nil
}

func (o *orchestrator) Sync(ctx context.Context, input *SyncInput) (*SyncOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.AccountID == "" {
		return nil, errors.InvalidArgument("account ID cannot be empty")
	}

	remote, err := o.loadRemote(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}
	local, err := o.loadLocal(ctx)
	if err != nil {
		return nil, err
	}

	switch {
	case remote == nil:
		// First authenticated session for this account on any device, or
		// a brand-new user: the local snapshot (possibly a fresh default)
		// becomes the remote truth.
		if local == nil {
			local = o.defaultState()
			if _, err := o.local.Save(ctx, localstate.SaveInput{State: local}); err != nil {
				return nil, err
			}
		}
		if _, err := o.remote.Put(ctx, globalstate.PutInput{AccountID: input.AccountID, State: local}); err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "sync: pushed local snapshot to server",
			"account_id", input.AccountID,
			"characters", len(local.Characters))
		return &SyncOutput{Outcome: OutcomeLocalToServer, State: local}, nil

	case local == nil:
		if _, err := o.local.Save(ctx, localstate.SaveInput{State: remote}); err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "sync: pulled server snapshot to local",
			"account_id", input.AccountID,
			"characters", len(remote.Characters))
		return &SyncOutput{Outcome: OutcomeServerToLocal, State: remote}, nil

	case isDifferent(local, remote):
		// Both copies exist and disagree. Hand both back untouched; any
		// write before the user chooses could discard real edits.
		slog.InfoContext(ctx, "sync: conflict detected",
			"account_id", input.AccountID,
			"local_characters", len(local.Characters),
			"remote_characters", len(remote.Characters))
		return &SyncOutput{Outcome: OutcomeConflict, Local: local, Remote: remote}, nil

	default:
		return &SyncOutput{Outcome: OutcomeSynced, State: remote}, nil
	}
}

func (o *orchestrator) ResolveConflict(ctx context.Context, input *ResolveConflictInput) (*ResolveConflictOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.AccountID == "" {
		return nil, errors.InvalidArgument("account ID cannot be empty")
	}
	if input.Local == nil || input.Remote == nil {
		return nil, errors.InvalidArgument("both conflict candidates are required")
	}

	chosen := input.Remote
	if input.UseLocal {
		chosen = input.Local
	}

	if _, err := o.remote.Put(ctx, globalstate.PutInput{AccountID: input.AccountID, State: chosen}); err != nil {
		return nil, err
	}
	if _, err := o.local.Save(ctx, localstate.SaveInput{State: chosen}); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "sync: conflict resolved",
		"account_id", input.AccountID,
		"use_local", input.UseLocal)

	return &ResolveConflictOutput{State: chosen}, nil
}

// loadRemote maps NotFound to a nil snapshot; other failures propagate.
func (o *orchestrator) loadRemote(ctx context.Context, accountID string) (*entities.GlobalState, error) {
	out, err := o.remote.Get(ctx, globalstate.GetInput{AccountID: accountID})
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return out.State, nil
}

func (o *orchestrator) loadLocal(ctx context.Context) (*entities.GlobalState, error) {
	out, err := o.local.Load(ctx, localstate.LoadInput{})
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return out.State, nil
}

// defaultState provisions the state a brand-new user starts with: a single
// character holding only the root skill.
func (o *orchestrator) defaultState() *entities.GlobalState {
	ch := &entities.Character{
		ID:             o.idGen.Generate(),
		Name:           planner.DefaultCharacterName,
		GuildRank:      planner.DefaultGuildRank,
		SelectedSkills: skilltree.ResetSelection(o.rootID),
		UpdatedAt:      o.clock.Now(),
	}
	return &entities.GlobalState{
		Characters:         []*entities.Character{ch},
		CurrentCharacterID: ch.ID,
	}
}
