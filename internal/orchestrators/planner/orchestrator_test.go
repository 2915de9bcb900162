package planner_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/0xaya/guild-skill-tree-sub000/internal/entities"
	"github.com/0xaya/guild-skill-tree-sub000/internal/errors"
	"github.com/0xaya/guild-skill-tree-sub000/internal/orchestrators/planner"
	"github.com/0xaya/guild-skill-tree-sub000/internal/pkg/clock"
	"github.com/0xaya/guild-skill-tree-sub000/internal/pkg/idgen"
	"github.com/0xaya/guild-skill-tree-sub000/internal/repositories/localstate"
	"github.com/0xaya/guild-skill-tree-sub000/internal/skilltree"
)

// captureSaver records Enqueue calls instead of touching a remote store.
type captureSaver struct {
	mu    sync.Mutex
	calls []enqueueCall
}

type enqueueCall struct {
	accountID string
	state     *entities.GlobalState
}

func (s *captureSaver) Enqueue(accountID string, state *entities.GlobalState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, enqueueCall{accountID: accountID, state: state.Clone()})
}

func (s *captureSaver) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *captureSaver) last() enqueueCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

type PlannerTestSuite struct {
	suite.Suite
	ctx   context.Context
	graph *skilltree.Graph
	local localstate.Repository
	saver *captureSaver
	clock *clock.Manual
	svc   planner.Service
}

func (s *PlannerTestSuite) SetupTest() {
	s.ctx = context.Background()

	graph, err := skilltree.Build(&skilltree.BuildConfig{
		Records: []entities.SkillRecord{
			{ID: "strike", Level: 1, Name: "Strike 1", RequiredRank: 1, Coins: 10},
			{ID: "strike", Level: 2, Name: "Strike 2", RequiredRank: 1, Coins: 20},
			{ID: "combo", Level: 1, Name: "Combo 1", RequiredRank: 1, Coins: 15,
				Materials: map[string]int{"iron": 2}},
			{ID: "guard", Level: 1, Name: "Guard 1", RequiredRank: 8, Coins: 5},
		},
		ParentEdges: map[string][]string{
			"strike": {"core"},
			"combo":  {"strike"},
			"guard":  {"core"},
		},
	})
	s.Require().NoError(err)
	s.graph = graph

	local, err := localstate.NewFile(&localstate.FileConfig{Dir: s.T().TempDir()})
	s.Require().NoError(err)
	s.local = local

	s.saver = &captureSaver{}
	s.clock = clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	svc, err := planner.NewOrchestrator(&planner.Config{
		Graph:       s.graph,
		Local:       s.local,
		Remote:      s.saver,
		Clock:       s.clock,
		IDGenerator: idgen.NewSequential("char"),
	})
	s.Require().NoError(err)
	s.svc = svc
}

func (s *PlannerTestSuite) load() *entities.GlobalState {
	out, err := s.svc.Load(s.ctx, &planner.LoadInput{})
	s.Require().NoError(err)
	return out.State
}

func TestPlannerSuite(t *testing.T) {
	suite.Run(t, new(PlannerTestSuite))
}

func (s *PlannerTestSuite) TestLoadProvisionsDefaultCharacter() {
	state := s.load()

	s.Require().Len(state.Characters, 1)
	ch := state.Characters[0]
	s.Equal(planner.DefaultCharacterName, ch.Name)
	s.Equal(planner.DefaultGuildRank, ch.GuildRank)
	s.Equal(map[string]int{"core": 1}, ch.SelectedSkills)
	s.Equal(ch.ID, state.CurrentCharacterID)

	// The default must survive a restart.
	loaded, err := s.local.Load(s.ctx, localstate.LoadInput{})
	s.Require().NoError(err)
	s.Equal(ch.ID, loaded.State.CurrentCharacterID)
}

func (s *PlannerTestSuite) TestLoadReadsExistingSnapshot() {
	existing := &entities.GlobalState{
		Characters: []*entities.Character{{
			ID:             "char_keep",
			Name:           "Keeper",
			GuildRank:      9,
			SelectedSkills: map[string]int{"core": 1, "strike": 2},
		}},
		CurrentCharacterID: "char_keep",
	}
	_, err := s.local.Save(s.ctx, localstate.SaveInput{State: existing})
	s.Require().NoError(err)

	state := s.load()
	s.Require().Len(state.Characters, 1)
	s.Equal("Keeper", state.Characters[0].Name)
	s.Equal(2, state.Characters[0].SelectedSkills["strike"])
}

func (s *PlannerTestSuite) TestCreateCharacterSelectsIt() {
	s.load()

	out, err := s.svc.CreateCharacter(s.ctx, &planner.CreateCharacterInput{Name: "Alt"})
	s.Require().NoError(err)

	s.Equal("Alt", out.Character.Name)
	s.Equal(planner.DefaultGuildRank, out.Character.GuildRank)
	s.Equal(map[string]int{"core": 1}, out.Character.SelectedSkills)
	s.Len(out.State.Characters, 2)
	s.Equal(out.Character.ID, out.State.CurrentCharacterID)
}

func (s *PlannerTestSuite) TestCreateCharacterDefaultsName() {
	s.load()

	out, err := s.svc.CreateCharacter(s.ctx, &planner.CreateCharacterInput{})
	s.Require().NoError(err)
	s.Equal("Character 2", out.Character.Name)
}

func (s *PlannerTestSuite) TestDeleteCharacterRepointsCurrent() {
	first := s.load().Characters[0]
	alt, err := s.svc.CreateCharacter(s.ctx, &planner.CreateCharacterInput{Name: "Alt"})
	s.Require().NoError(err)

	out, err := s.svc.DeleteCharacter(s.ctx, &planner.DeleteCharacterInput{
		CharacterID: alt.Character.ID,
	})
	s.Require().NoError(err)

	s.Len(out.State.Characters, 1)
	s.Equal(first.ID, out.State.CurrentCharacterID)
}

func (s *PlannerTestSuite) TestDeleteLastCharacterClearsCurrent() {
	first := s.load().Characters[0]

	out, err := s.svc.DeleteCharacter(s.ctx, &planner.DeleteCharacterInput{CharacterID: first.ID})
	s.Require().NoError(err)
	s.Empty(out.State.Characters)
	s.Empty(out.State.CurrentCharacterID)

	_, err = s.svc.LevelUp(s.ctx, &planner.LevelUpInput{SkillID: "strike"})
	s.Require().Error(err)
	s.Equal(errors.CodeFailedPrecondition, errors.GetCode(err))
}

func (s *PlannerTestSuite) TestDeleteUnknownCharacter() {
	s.load()

	_, err := s.svc.DeleteCharacter(s.ctx, &planner.DeleteCharacterInput{CharacterID: "char_missing"})
	s.Require().Error(err)
	s.True(errors.IsNotFound(err))
}

func (s *PlannerTestSuite) TestSwitchCharacter() {
	first := s.load().Characters[0]
	alt, err := s.svc.CreateCharacter(s.ctx, &planner.CreateCharacterInput{Name: "Alt"})
	s.Require().NoError(err)

	out, err := s.svc.SwitchCharacter(s.ctx, &planner.SwitchCharacterInput{CharacterID: first.ID})
	s.Require().NoError(err)
	s.Equal(first.ID, out.Character.ID)

	state, err := s.svc.State(s.ctx, &planner.StateInput{})
	s.Require().NoError(err)
	s.Equal(first.ID, state.State.CurrentCharacterID)
	s.NotEqual(alt.Character.ID, state.State.CurrentCharacterID)
}

func (s *PlannerTestSuite) TestRenameCharacterStampsUpdatedAt() {
	first := s.load().Characters[0]
	s.clock.Advance(time.Hour)

	out, err := s.svc.RenameCharacter(s.ctx, &planner.RenameCharacterInput{
		CharacterID: first.ID,
		Name:        "Renamed",
	})
	s.Require().NoError(err)
	s.Equal("Renamed", out.Character.Name)
	s.Equal(first.UpdatedAt.Add(time.Hour), out.Character.UpdatedAt)
}

func (s *PlannerTestSuite) TestSetGuildRankRejectsOutOfRange() {
	s.load()

	for _, rank := range []int{0, 16, -3} {
		_, err := s.svc.SetGuildRank(s.ctx, &planner.SetGuildRankInput{GuildRank: rank})
		s.Require().Error(err)
		s.Equal(errors.CodeInvalidArgument, errors.GetCode(err))
	}
}

func (s *PlannerTestSuite) TestSetGuildRankUnblocksGatedSkill() {
	s.load()

	up, err := s.svc.LevelUp(s.ctx, &planner.LevelUpInput{SkillID: "guard"})
	s.Require().NoError(err)
	s.Require().NotNil(up.Denial)
	s.Equal(skilltree.DenialRankTooLow, up.Denial.Reason)

	_, err = s.svc.SetGuildRank(s.ctx, &planner.SetGuildRankInput{GuildRank: 8})
	s.Require().NoError(err)

	up, err = s.svc.LevelUp(s.ctx, &planner.LevelUpInput{SkillID: "guard"})
	s.Require().NoError(err)
	s.Nil(up.Denial)
	s.Equal(1, up.Selection.Level("guard"))
}

func (s *PlannerTestSuite) TestLevelUpPersistsAndTotals() {
	s.load()

	out, err := s.svc.LevelUp(s.ctx, &planner.LevelUpInput{SkillID: "strike"})
	s.Require().NoError(err)
	s.Nil(out.Denial)
	s.Equal(1, out.Selection.Level("strike"))
	s.Equal(10, out.Totals.Coins)

	loaded, err := s.local.Load(s.ctx, localstate.LoadInput{})
	s.Require().NoError(err)
	s.Equal(1, loaded.State.CurrentCharacter().SelectedSkills["strike"])
}

func (s *PlannerTestSuite) TestLevelUpDenialLeavesStateUntouched() {
	s.load()

	out, err := s.svc.LevelUp(s.ctx, &planner.LevelUpInput{SkillID: "combo"})
	s.Require().NoError(err)
	s.Require().NotNil(out.Denial)
	s.Equal(skilltree.DenialLocked, out.Denial.Reason)
	s.Equal([]string{"Strike"}, out.Denial.RequiredParents)
	s.Zero(out.Selection.Level("combo"))

	loaded, err := s.local.Load(s.ctx, localstate.LoadInput{})
	s.Require().NoError(err)
	s.Zero(loaded.State.CurrentCharacter().SelectedSkills["combo"])
}

func (s *PlannerTestSuite) TestLevelUpUnknownSkill() {
	s.load()

	_, err := s.svc.LevelUp(s.ctx, &planner.LevelUpInput{SkillID: "ghost"})
	s.Require().Error(err)
	s.True(errors.IsNotFound(err))
}

func (s *PlannerTestSuite) TestLevelDownRoundTrip() {
	s.load()

	_, err := s.svc.LevelUp(s.ctx, &planner.LevelUpInput{SkillID: "strike"})
	s.Require().NoError(err)

	out, err := s.svc.LevelDown(s.ctx, &planner.LevelDownInput{SkillID: "strike"})
	s.Require().NoError(err)
	s.Nil(out.Denial)
	s.Equal(map[string]int{"core": 1}, map[string]int(out.Selection))
	s.Zero(out.Totals.Coins)
}

func (s *PlannerTestSuite) TestResetTree() {
	s.load()

	_, err := s.svc.LevelUp(s.ctx, &planner.LevelUpInput{SkillID: "strike"})
	s.Require().NoError(err)
	_, err = s.svc.LevelUp(s.ctx, &planner.LevelUpInput{SkillID: "combo"})
	s.Require().NoError(err)

	out, err := s.svc.ResetTree(s.ctx, &planner.ResetTreeInput{})
	s.Require().NoError(err)
	s.Equal(map[string]int{"core": 1}, map[string]int(out.Selection))
	s.Zero(out.Totals.Coins)
	s.Empty(out.Totals.Materials)
}

func (s *PlannerTestSuite) TestCostTotalsCumulative() {
	s.load()

	_, err := s.svc.LevelUp(s.ctx, &planner.LevelUpInput{SkillID: "strike"})
	s.Require().NoError(err)
	_, err = s.svc.LevelUp(s.ctx, &planner.LevelUpInput{SkillID: "strike"})
	s.Require().NoError(err)
	_, err = s.svc.LevelUp(s.ctx, &planner.LevelUpInput{SkillID: "combo"})
	s.Require().NoError(err)

	out, err := s.svc.CostTotals(s.ctx, &planner.CostTotalsInput{})
	s.Require().NoError(err)
	s.Equal(45, out.Totals.Coins)
	s.Equal(map[string]int{"iron": 2}, out.Totals.Materials)
}

func (s *PlannerTestSuite) TestEditsWithoutAccountStayLocal() {
	s.load()

	_, err := s.svc.LevelUp(s.ctx, &planner.LevelUpInput{SkillID: "strike"})
	s.Require().NoError(err)
	s.Zero(s.saver.count())
}

func (s *PlannerTestSuite) TestEditsWithAccountEnqueueRemoteWrite() {
	state := s.load()

	_, err := s.svc.AdoptState(s.ctx, &planner.AdoptStateInput{
		State:     state,
		AccountID: "acct_1",
	})
	s.Require().NoError(err)

	_, err = s.svc.LevelUp(s.ctx, &planner.LevelUpInput{SkillID: "strike"})
	s.Require().NoError(err)

	s.Require().Equal(1, s.saver.count())
	call := s.saver.last()
	s.Equal("acct_1", call.accountID)
	s.Equal(1, call.state.CurrentCharacter().SelectedSkills["strike"])
}

func (s *PlannerTestSuite) TestDeniedEditDoesNotEnqueue() {
	state := s.load()

	_, err := s.svc.AdoptState(s.ctx, &planner.AdoptStateInput{
		State:     state,
		AccountID: "acct_1",
	})
	s.Require().NoError(err)

	out, err := s.svc.LevelUp(s.ctx, &planner.LevelUpInput{SkillID: "combo"})
	s.Require().NoError(err)
	s.NotNil(out.Denial)
	s.Zero(s.saver.count())
}

func (s *PlannerTestSuite) TestStateBeforeLoad() {
	_, err := s.svc.State(s.ctx, &planner.StateInput{})
	s.Require().Error(err)
	s.Equal(errors.CodeFailedPrecondition, errors.GetCode(err))
}
