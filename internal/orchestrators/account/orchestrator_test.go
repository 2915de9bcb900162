package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/0xaya/guild-skill-tree-sub000/internal/entities"
	"github.com/0xaya/guild-skill-tree-sub000/internal/errors"
	"github.com/0xaya/guild-skill-tree-sub000/internal/orchestrators/account"
	"github.com/0xaya/guild-skill-tree-sub000/internal/orchestrators/planner"
	"github.com/0xaya/guild-skill-tree-sub000/internal/pkg/clock"
	"github.com/0xaya/guild-skill-tree-sub000/internal/pkg/idgen"
	"github.com/0xaya/guild-skill-tree-sub000/internal/repositories/globalstate"
	"github.com/0xaya/guild-skill-tree-sub000/internal/repositories/localstate"
	"github.com/0xaya/guild-skill-tree-sub000/internal/testutils"
)

const testAccountID = "acct_42"

type SyncTestSuite struct {
	suite.Suite
	ctx     context.Context
	remote  globalstate.Repository
	local   localstate.Repository
	svc     account.Service
	cleanup func()
}

func (s *SyncTestSuite) SetupTest() {
	s.ctx = context.Background()

	client, cleanup := testutils.CreateTestRedisClient(s.T())
	s.cleanup = cleanup

	remote, err := globalstate.NewRedis(&globalstate.RedisConfig{Client: client})
	s.Require().NoError(err)
	s.remote = remote

	local, err := localstate.NewFile(&localstate.FileConfig{Dir: s.T().TempDir()})
	s.Require().NoError(err)
	s.local = local

	svc, err := account.NewOrchestrator(&account.Config{
		Remote:      s.remote,
		Local:       s.local,
		Clock:       clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		IDGenerator: idgen.NewSequential("char"),
	})
	s.Require().NoError(err)
	s.svc = svc
}

func (s *SyncTestSuite) TearDownTest() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

func (s *SyncTestSuite) stateWith(chars ...*entities.Character) *entities.GlobalState {
	return &entities.GlobalState{
		Characters:         chars,
		CurrentCharacterID: chars[0].ID,
	}
}

func (s *SyncTestSuite) character(id string, selected map[string]int) *entities.Character {
	return &entities.Character{
		ID:             id,
		Name:           "Hero " + id,
		GuildRank:      7,
		SelectedSkills: selected,
		UpdatedAt:      time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *SyncTestSuite) sync() *account.SyncOutput {
	out, err := s.svc.Sync(s.ctx, &account.SyncInput{AccountID: testAccountID})
	s.Require().NoError(err)
	return out
}

func TestSyncSuite(t *testing.T) {
	suite.Run(t, new(SyncTestSuite))
}

func (s *SyncTestSuite) TestFirstRunProvisionsAndPushes() {
	out := s.sync()

	s.Equal(account.OutcomeLocalToServer, out.Outcome)
	s.Require().NotNil(out.State)
	s.Require().Len(out.State.Characters, 1)

	ch := out.State.Characters[0]
	s.Equal(planner.DefaultCharacterName, ch.Name)
	s.Equal(planner.DefaultGuildRank, ch.GuildRank)
	s.Equal(map[string]int{"core": 1}, ch.SelectedSkills)
	s.Equal(ch.ID, out.State.CurrentCharacterID)

	// Both stores now hold the provisioned snapshot.
	remote, err := s.remote.Get(s.ctx, globalstate.GetInput{AccountID: testAccountID})
	s.Require().NoError(err)
	s.Equal(ch.ID, remote.State.CurrentCharacterID)

	local, err := s.local.Load(s.ctx, localstate.LoadInput{})
	s.Require().NoError(err)
	s.Equal(ch.ID, local.State.CurrentCharacterID)
}

func (s *SyncTestSuite) TestLocalOnlyPushesToServer() {
	st := s.stateWith(s.character("char_1", map[string]int{"core": 1, "strike": 2}))
	_, err := s.local.Save(s.ctx, localstate.SaveInput{State: st})
	s.Require().NoError(err)

	out := s.sync()

	s.Equal(account.OutcomeLocalToServer, out.Outcome)
	s.Equal("char_1", out.State.CurrentCharacterID)

	remote, err := s.remote.Get(s.ctx, globalstate.GetInput{AccountID: testAccountID})
	s.Require().NoError(err)
	s.Equal(2, remote.State.Characters[0].SelectedSkills["strike"])
}

func (s *SyncTestSuite) TestRemoteOnlyPullsToLocal() {
	st := s.stateWith(s.character("char_9", map[string]int{"core": 1, "guard": 1}))
	_, err := s.remote.Put(s.ctx, globalstate.PutInput{AccountID: testAccountID, State: st})
	s.Require().NoError(err)

	out := s.sync()

	s.Equal(account.OutcomeServerToLocal, out.Outcome)
	s.Equal("char_9", out.State.CurrentCharacterID)

	local, err := s.local.Load(s.ctx, localstate.LoadInput{})
	s.Require().NoError(err)
	s.Equal(1, local.State.Characters[0].SelectedSkills["guard"])
}

func (s *SyncTestSuite) TestEquivalentSnapshotsAreSynced() {
	// Same content, different timestamps: not a conflict.
	localCh := s.character("char_1", map[string]int{"core": 1, "strike": 1})
	remoteCh := s.character("char_1", map[string]int{"core": 1, "strike": 1})
	remoteCh.UpdatedAt = remoteCh.UpdatedAt.Add(48 * time.Hour)

	_, err := s.local.Save(s.ctx, localstate.SaveInput{State: s.stateWith(localCh)})
	s.Require().NoError(err)
	_, err = s.remote.Put(s.ctx, globalstate.PutInput{AccountID: testAccountID, State: s.stateWith(remoteCh)})
	s.Require().NoError(err)

	out := s.sync()
	s.Equal(account.OutcomeSynced, out.Outcome)
	s.Require().NotNil(out.State)
	s.Equal("char_1", out.State.CurrentCharacterID)
}

func (s *SyncTestSuite) TestDivergedSnapshotsConflictWithoutWrites() {
	localState := s.stateWith(
		s.character("char_1", map[string]int{"core": 1, "strike": 2}),
		s.character("char_2", map[string]int{"core": 1}),
	)
	remoteState := s.stateWith(s.character("char_1", map[string]int{"core": 1}))

	_, err := s.local.Save(s.ctx, localstate.SaveInput{State: localState})
	s.Require().NoError(err)
	_, err = s.remote.Put(s.ctx, globalstate.PutInput{AccountID: testAccountID, State: remoteState})
	s.Require().NoError(err)

	out := s.sync()

	s.Equal(account.OutcomeConflict, out.Outcome)
	s.Nil(out.State)
	s.Require().NotNil(out.Local)
	s.Require().NotNil(out.Remote)
	s.Len(out.Local.Characters, 2)
	s.Len(out.Remote.Characters, 1)

	// Neither store may change until the user picks a side.
	remote, err := s.remote.Get(s.ctx, globalstate.GetInput{AccountID: testAccountID})
	s.Require().NoError(err)
	s.Len(remote.State.Characters, 1)

	local, err := s.local.Load(s.ctx, localstate.LoadInput{})
	s.Require().NoError(err)
	s.Len(local.State.Characters, 2)
}

func (s *SyncTestSuite) TestResolveConflictUseLocal() {
	localState := s.stateWith(
		s.character("char_1", map[string]int{"core": 1, "strike": 2}),
		s.character("char_2", map[string]int{"core": 1}),
	)
	remoteState := s.stateWith(s.character("char_1", map[string]int{"core": 1}))

	_, err := s.local.Save(s.ctx, localstate.SaveInput{State: localState})
	s.Require().NoError(err)
	_, err = s.remote.Put(s.ctx, globalstate.PutInput{AccountID: testAccountID, State: remoteState})
	s.Require().NoError(err)

	conflict := s.sync()
	s.Require().Equal(account.OutcomeConflict, conflict.Outcome)

	resolved, err := s.svc.ResolveConflict(s.ctx, &account.ResolveConflictInput{
		AccountID: testAccountID,
		UseLocal:  true,
		Local:     conflict.Local,
		Remote:    conflict.Remote,
	})
	s.Require().NoError(err)
	s.Len(resolved.State.Characters, 2)

	// Both stores converge on the pick, and the next sync is clean.
	remote, err := s.remote.Get(s.ctx, globalstate.GetInput{AccountID: testAccountID})
	s.Require().NoError(err)
	s.Len(remote.State.Characters, 2)

	out := s.sync()
	s.Equal(account.OutcomeSynced, out.Outcome)
}

func (s *SyncTestSuite) TestResolveConflictUseRemoteIsIdempotent() {
	localState := s.stateWith(s.character("char_1", map[string]int{"core": 1, "strike": 2}))
	remoteState := s.stateWith(s.character("char_1", map[string]int{"core": 1}))

	_, err := s.local.Save(s.ctx, localstate.SaveInput{State: localState})
	s.Require().NoError(err)
	_, err = s.remote.Put(s.ctx, globalstate.PutInput{AccountID: testAccountID, State: remoteState})
	s.Require().NoError(err)

	input := &account.ResolveConflictInput{
		AccountID: testAccountID,
		UseLocal:  false,
		Local:     localState,
		Remote:    remoteState,
	}

	first, err := s.svc.ResolveConflict(s.ctx, input)
	s.Require().NoError(err)
	second, err := s.svc.ResolveConflict(s.ctx, input)
	s.Require().NoError(err)

	s.Equal(first.State.CurrentCharacterID, second.State.CurrentCharacterID)
	s.Zero(second.State.Characters[0].SelectedSkills["strike"])

	local, err := s.local.Load(s.ctx, localstate.LoadInput{})
	s.Require().NoError(err)
	s.Zero(local.State.Characters[0].SelectedSkills["strike"])
}

func (s *SyncTestSuite) TestSyncValidation() {
	_, err := s.svc.Sync(s.ctx, nil)
	s.Require().Error(err)
	s.Equal(errors.CodeInvalidArgument, errors.GetCode(err))

	_, err = s.svc.Sync(s.ctx, &account.SyncInput{})
	s.Require().Error(err)
	s.Equal(errors.CodeInvalidArgument, errors.GetCode(err))
}

func (s *SyncTestSuite) TestResolveConflictValidation() {
	_, err := s.svc.ResolveConflict(s.ctx, &account.ResolveConflictInput{
		AccountID: testAccountID,
		UseLocal:  true,
	})
	s.Require().Error(err)
	s.Equal(errors.CodeInvalidArgument, errors.GetCode(err))
}
