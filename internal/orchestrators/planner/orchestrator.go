// Package planner implements the session-level planning operations: character
// management and the level transitions wired to the skill tree engine, local
// persistence, and the debounced remote writer.
package planner

//go:generate mockgen -destination=mock/mock_service.go -package=plannermock github.com/0xaya/guild-skill-tree-sub000/internal/orchestrators/planner Service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/0xaya/guild-skill-tree-sub000/internal/entities"
	"github.com/0xaya/guild-skill-tree-sub000/internal/errors"
	"github.com/0xaya/guild-skill-tree-sub000/internal/pkg/clock"
	"github.com/0xaya/guild-skill-tree-sub000/internal/pkg/idgen"
	"github.com/0xaya/guild-skill-tree-sub000/internal/repositories/localstate"
	"github.com/0xaya/guild-skill-tree-sub000/internal/skilltree"
)

// Service defines the planning operations for one session. Implementations
// serialize access internally; callers may invoke from multiple goroutines.
type Service interface {
	// Load reads the local snapshot into the session, provisioning a
	// default character when no snapshot exists yet.
	Load(ctx context.Context, input *LoadInput) (*LoadOutput, error)

	// AdoptState replaces the session state with an authoritative snapshot
	// (typically the result of a sync) and persists it locally.
	AdoptState(ctx context.Context, input *AdoptStateInput) (*AdoptStateOutput, error)

	// State returns a copy of the current session state.
	State(ctx context.Context, input *StateInput) (*StateOutput, error)

	CreateCharacter(ctx context.Context, input *CreateCharacterInput) (*CreateCharacterOutput, error)
	DeleteCharacter(ctx context.Context, input *DeleteCharacterInput) (*DeleteCharacterOutput, error)
	SwitchCharacter(ctx context.Context, input *SwitchCharacterInput) (*SwitchCharacterOutput, error)
	RenameCharacter(ctx context.Context, input *RenameCharacterInput) (*RenameCharacterOutput, error)
	SetGuildRank(ctx context.Context, input *SetGuildRankInput) (*SetGuildRankOutput, error)

	// LevelUp attempts to raise a skill on the current character. A rule
	// refusal is reported as a Denial in the output, not an error.
	LevelUp(ctx context.Context, input *LevelUpInput) (*TransitionOutput, error)

	// LevelDown attempts to lower a skill on the current character.
	LevelDown(ctx context.Context, input *LevelDownInput) (*TransitionOutput, error)

	// ResetTree returns the current character to the minimal selection.
	ResetTree(ctx context.Context, input *ResetTreeInput) (*ResetTreeOutput, error)

	// CostTotals recomputes cumulative totals for the current character.
	CostTotals(ctx context.Context, input *CostTotalsInput) (*CostTotalsOutput, error)
}

// RemoteSaver schedules debounced remote snapshot writes. Satisfied by the
// sync package's Writer.
type RemoteSaver interface {
	Enqueue(accountID string, state *entities.GlobalState)
}

// Config holds the dependencies for the planner orchestrator
type Config struct {
	Graph       *skilltree.Graph
	Local       localstate.Repository
	Remote      RemoteSaver
	Clock       clock.Clock
	IDGenerator idgen.Generator
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config cannot be nil")
	}

	vb := errors.NewValidationBuilder()
	if c.Graph == nil {
		vb.RequiredField("Graph")
	}
	if c.Local == nil {
		vb.RequiredField("Local")
	}
	if c.Remote == nil {
		vb.RequiredField("Remote")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}
	return vb.Build()
}

type orchestrator struct {
	graph  *skilltree.Graph
	local  localstate.Repository
	remote RemoteSaver
	clock  clock.Clock
	idGen  idgen.Generator

	mu        sync.Mutex
	state     *entities.GlobalState
	accountID string
}

// NewOrchestrator creates a new planner orchestrator with the provided dependencies
func NewOrchestrator(cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}

	return &orchestrator{
		graph:  cfg.Graph,
		local:  cfg.Local,
		remote: cfg.Remote,
		clock:  c,
		idGen:  cfg.IDGenerator,
	}, nil
}

func (o *orchestrator) Load(ctx context.Context, input *LoadInput) (*LoadOutput, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	out, err := o.local.Load(ctx, localstate.LoadInput{})
	switch {
	case err == nil:
		o.state = out.State
	case errors.IsNotFound(err):
		o.state = o.provisionDefault()
		if _, saveErr := o.local.Save(ctx, localstate.SaveInput{State: o.state}); saveErr != nil {
			return nil, saveErr
		}
		slog.InfoContext(ctx, "provisioned default character",
			"character_id", o.state.CurrentCharacterID)
	default:
		return nil, err
	}

	return &LoadOutput{State: o.state.Clone()}, nil
}

func (o *orchestrator) AdoptState(ctx context.Context, input *AdoptStateInput) (*AdoptStateOutput, error) {
	if input == nil || input.State == nil {
		return nil, errors.InvalidArgument("state is required")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.state = input.State.Clone()
	o.accountID = input.AccountID
	if _, err := o.local.Save(ctx, localstate.SaveInput{State: o.state}); err != nil {
		return nil, err
	}
	return &AdoptStateOutput{State: o.state.Clone()}, nil
}

func (o *orchestrator) State(ctx context.Context, input *StateInput) (*StateOutput, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == nil {
		return nil, errors.FailedPrecondition("session state not loaded")
	}
	return &StateOutput{State: o.state.Clone()}, nil
}

func (o *orchestrator) CreateCharacter(ctx context.Context, input *CreateCharacterInput) (*CreateCharacterOutput, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.ensureState()

	name := ""
	if input != nil {
		name = input.Name
	}
	if name == "" {
		name = fmt.Sprintf("Character %d", len(o.state.Characters)+1)
	}

	ch := &entities.Character{
		ID:             o.idGen.Generate(),
		Name:           name,
		GuildRank:      DefaultGuildRank,
		SelectedSkills: skilltree.ResetSelection(o.graph.RootID()),
		UpdatedAt:      o.clock.Now(),
	}
	o.state.Characters = append(o.state.Characters, ch)
	o.state.CurrentCharacterID = ch.ID

	o.persist(ctx)
	slog.InfoContext(ctx, "character created",
		"character_id", ch.ID,
		"name", ch.Name)

	return &CreateCharacterOutput{Character: ch.Clone(), State: o.state.Clone()}, nil
}

func (o *orchestrator) DeleteCharacter(ctx context.Context, input *DeleteCharacterInput) (*DeleteCharacterOutput, error) {
	if input == nil || input.CharacterID == "" {
		return nil, errors.InvalidArgument("character ID cannot be empty")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.ensureState()

	idx := -1
	for i, ch := range o.state.Characters {
		if ch.ID == input.CharacterID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errors.NotFoundf("character %s not found", input.CharacterID)
	}

	o.state.Characters = append(o.state.Characters[:idx], o.state.Characters[idx+1:]...)
	if o.state.CurrentCharacterID == input.CharacterID {
		o.state.CurrentCharacterID = ""
		if len(o.state.Characters) > 0 {
			o.state.CurrentCharacterID = o.state.Characters[0].ID
		}
	}

	o.persist(ctx)
	slog.InfoContext(ctx, "character deleted",
		"character_id", input.CharacterID,
		"remaining", len(o.state.Characters))

	return &DeleteCharacterOutput{State: o.state.Clone()}, nil
}

func (o *orchestrator) SwitchCharacter(ctx context.Context, input *SwitchCharacterInput) (*SwitchCharacterOutput, error) {
	if input == nil || input.CharacterID == "" {
		return nil, errors.InvalidArgument("character ID cannot be empty")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.ensureState()

	ch := o.state.CharacterByID(input.CharacterID)
	if ch == nil {
		return nil, errors.NotFoundf("character %s not found", input.CharacterID)
	}
	o.state.CurrentCharacterID = ch.ID

	o.persist(ctx)
	return &SwitchCharacterOutput{Character: ch.Clone()}, nil
}

func (o *orchestrator) RenameCharacter(ctx context.Context, input *RenameCharacterInput) (*RenameCharacterOutput, error) {
	if input == nil || input.CharacterID == "" {
		return nil, errors.InvalidArgument("character ID cannot be empty")
	}
	if input.Name == "" {
		return nil, errors.InvalidArgument("name cannot be empty")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.ensureState()

	ch := o.state.CharacterByID(input.CharacterID)
	if ch == nil {
		return nil, errors.NotFoundf("character %s not found", input.CharacterID)
	}
	ch.Name = input.Name
	ch.UpdatedAt = o.clock.Now()

	o.persist(ctx)
	return &RenameCharacterOutput{Character: ch.Clone()}, nil
}

func (o *orchestrator) SetGuildRank(ctx context.Context, input *SetGuildRankInput) (*SetGuildRankOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	vb := errors.NewValidationBuilder()
	errors.ValidateRange("guildRank", input.GuildRank, entities.MinGuildRank, entities.MaxGuildRank, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	ch, err := o.currentCharacter()
	if err != nil {
		return nil, err
	}
	ch.GuildRank = input.GuildRank
	ch.UpdatedAt = o.clock.Now()

	o.persist(ctx)
	return &SetGuildRankOutput{Character: ch.Clone()}, nil
}

func (o *orchestrator) LevelUp(ctx context.Context, input *LevelUpInput) (*TransitionOutput, error) {
	if input == nil || input.SkillID == "" {
		return nil, errors.InvalidArgument("skill ID cannot be empty")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	ch, err := o.currentCharacter()
	if err != nil {
		return nil, err
	}

	result, err := o.graph.LevelUp(ch.SelectedSkills, input.SkillID, ch.GuildRank)
	if err != nil {
		return nil, err
	}
	return o.applyTransition(ctx, ch, result), nil
}

func (o *orchestrator) LevelDown(ctx context.Context, input *LevelDownInput) (*TransitionOutput, error) {
	if input == nil || input.SkillID == "" {
		return nil, errors.InvalidArgument("skill ID cannot be empty")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	ch, err := o.currentCharacter()
	if err != nil {
		return nil, err
	}

	result, err := o.graph.LevelDown(ch.SelectedSkills, input.SkillID)
	if err != nil {
		return nil, err
	}
	return o.applyTransition(ctx, ch, result), nil
}

func (o *orchestrator) ResetTree(ctx context.Context, input *ResetTreeInput) (*ResetTreeOutput, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch, err := o.currentCharacter()
	if err != nil {
		return nil, err
	}

	ch.SelectedSkills = skilltree.ResetSelection(o.graph.RootID())
	ch.UpdatedAt = o.clock.Now()

	o.persist(ctx)
	slog.InfoContext(ctx, "skill tree reset", "character_id", ch.ID)

	return &ResetTreeOutput{
		Selection: skilltree.SelectionMap(ch.SelectedSkills).Clone(),
		Totals:    o.graph.CostTotals(ch.SelectedSkills),
	}, nil
}

func (o *orchestrator) CostTotals(ctx context.Context, input *CostTotalsInput) (*CostTotalsOutput, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch, err := o.currentCharacter()
	if err != nil {
		return nil, err
	}
	return &CostTotalsOutput{Totals: o.graph.CostTotals(ch.SelectedSkills)}, nil
}

// applyTransition commits an engine result to the current character. Denied
// transitions leave the character untouched and skip persistence.
func (o *orchestrator) applyTransition(ctx context.Context, ch *entities.Character, result *skilltree.TransitionResult) *TransitionOutput {
	if result.Denial != nil {
		return &TransitionOutput{
			Selection: result.Selection.Clone(),
			Totals:    o.graph.CostTotals(result.Selection),
			Denial:    result.Denial,
		}
	}

	ch.SelectedSkills = result.Selection
	ch.UpdatedAt = o.clock.Now()
	o.persist(ctx)

	return &TransitionOutput{
		Selection: result.Selection.Clone(),
		Totals:    o.graph.CostTotals(result.Selection),
	}
}

// persist saves the session state locally and, when an account is attached,
// schedules a debounced remote write. A local save failure is logged but
// does not fail the edit: the in-memory state stays authoritative and the
// next successful save carries it.
func (o *orchestrator) persist(ctx context.Context) {
	if _, err := o.local.Save(ctx, localstate.SaveInput{State: o.state}); err != nil {
		slog.WarnContext(ctx, "local snapshot save failed", "error", err.Error())
	}
	if o.accountID != "" {
		o.remote.Enqueue(o.accountID, o.state)
	}
}

// currentCharacter returns the character edits apply to. Callers hold o.mu.
func (o *orchestrator) currentCharacter() (*entities.Character, error) {
	if o.state == nil {
		return nil, errors.FailedPrecondition("session state not loaded")
	}
	ch := o.state.CurrentCharacter()
	if ch == nil {
		return nil, errors.FailedPrecondition("no character selected")
	}
	return ch, nil
}

// ensureState lazily initializes an empty state so character creation works
// before Load. Callers hold o.mu.
func (o *orchestrator) ensureState() {
	if o.state == nil {
		o.state = &entities.GlobalState{}
	}
}

func (o *orchestrator) provisionDefault() *entities.GlobalState {
	ch := &entities.Character{
		ID:             o.idGen.Generate(),
		Name:           DefaultCharacterName,
		GuildRank:      DefaultGuildRank,
		SelectedSkills: skilltree.ResetSelection(o.graph.RootID()),
		UpdatedAt:      o.clock.Now(),
	}
	return &entities.GlobalState{
		Characters:         []*entities.Character{ch},
		CurrentCharacterID: ch.ID,
	}
}
