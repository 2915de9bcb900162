package globalstate_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/0xaya/guild-skill-tree-sub000/internal/entities"
	"github.com/0xaya/guild-skill-tree-sub000/internal/errors"
	redisclient "github.com/0xaya/guild-skill-tree-sub000/internal/redis"
	"github.com/0xaya/guild-skill-tree-sub000/internal/repositories/globalstate"
	"github.com/0xaya/guild-skill-tree-sub000/internal/testutils"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	client  redisclient.Client
	cleanup func()
	repo    globalstate.Repository
	ctx     context.Context
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	s.client, s.cleanup = testutils.CreateTestRedisClient(s.T())
	repo, err := globalstate.NewRedis(&globalstate.RedisConfig{Client: s.client})
	s.Require().NoError(err)
	s.repo = repo
	s.ctx = context.Background()
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	s.cleanup()
}

func testState() *entities.GlobalState {
	return &entities.GlobalState{
		Characters: []*entities.Character{{
			ID:             "char_1",
			Name:           "Aya",
			GuildRank:      5,
			SelectedSkills: map[string]int{"core": 1, "strike": 2},
			UpdatedAt:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		}},
		CurrentCharacterID: "char_1",
	}
}

func (s *RedisRepositoryTestSuite) TestPutAndGet() {
	_, err := s.repo.Put(s.ctx, globalstate.PutInput{AccountID: "acc_1", State: testState()})
	s.Require().NoError(err)

	out, err := s.repo.Get(s.ctx, globalstate.GetInput{AccountID: "acc_1"})
	s.Require().NoError(err)
	s.Require().Len(out.State.Characters, 1)
	s.Equal("char_1", out.State.CurrentCharacterID)
	s.Equal(2, out.State.Characters[0].SelectedSkills["strike"])
	s.True(out.State.Characters[0].UpdatedAt.Equal(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)))
}

func (s *RedisRepositoryTestSuite) TestGetMissing() {
	_, err := s.repo.Get(s.ctx, globalstate.GetInput{AccountID: "acc_unknown"})
	s.Require().Error(err)
	s.True(errors.IsNotFound(err))
}

func (s *RedisRepositoryTestSuite) TestPutPreservesSiblingFields() {
	// Another feature owns other fields on the same account document.
	s.Require().NoError(s.client.HSet(s.ctx, "account:acc_1", "walletAddress", "0xabc").Err())

	_, err := s.repo.Put(s.ctx, globalstate.PutInput{AccountID: "acc_1", State: testState()})
	s.Require().NoError(err)

	sibling, err := s.client.HGet(s.ctx, "account:acc_1", "walletAddress").Result()
	s.Require().NoError(err)
	s.Equal("0xabc", sibling)
}

func (s *RedisRepositoryTestSuite) TestDelete() {
	_, err := s.repo.Put(s.ctx, globalstate.PutInput{AccountID: "acc_1", State: testState()})
	s.Require().NoError(err)

	_, err = s.repo.Delete(s.ctx, globalstate.DeleteInput{AccountID: "acc_1"})
	s.Require().NoError(err)

	_, err = s.repo.Get(s.ctx, globalstate.GetInput{AccountID: "acc_1"})
	s.True(errors.IsNotFound(err))
}

func (s *RedisRepositoryTestSuite) TestValidation() {
	s.Run("empty account id", func() {
		_, err := s.repo.Get(s.ctx, globalstate.GetInput{})
		s.True(errors.IsInvalidArgument(err))
	})

	s.Run("nil state", func() {
		_, err := s.repo.Put(s.ctx, globalstate.PutInput{AccountID: "acc_1"})
		s.True(errors.IsInvalidArgument(err))
	})

	s.Run("nil client config", func() {
		_, err := globalstate.NewRedis(&globalstate.RedisConfig{})
		s.True(errors.IsInvalidArgument(err))
	})
}

func TestRedisRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}
