package globalstate

import (
	"context"
	"log/slog"

	redis "github.com/redis/go-redis/v9"

	"github.com/0xaya/guild-skill-tree-sub000/internal/errors"
	redisclient "github.com/0xaya/guild-skill-tree-sub000/internal/redis"
	"github.com/0xaya/guild-skill-tree-sub000/internal/repositories/snapshot"
)

const (
	accountKeyPrefix = "account:"
	// stateField is the document field holding the snapshot. Writing only
	// this field is what gives Put its merge semantics: sibling fields on
	// the account document are untouched.
	stateField = "globalState"

	errAccountIDEmpty = "account ID cannot be empty"
	errStateNil       = "state cannot be nil"
)

type redisRepository struct {
	client redisclient.Client
}

// RedisConfig contains configuration for the Redis snapshot repository.
type RedisConfig struct {
	Client redisclient.Client
}

// Validate validates the RedisConfig.
func (cfg *RedisConfig) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if cfg.Client == nil {
		return errors.InvalidArgument("client cannot be nil")
	}
	return nil
}

// NewRedis creates a new Redis-backed snapshot repository
func NewRedis(cfg *RedisConfig) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &redisRepository{
		client: cfg.Client,
	}, nil
}

func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.AccountID == "" {
		return nil, errors.InvalidArgument(errAccountIDEmpty)
	}

	key := accountKeyPrefix + input.AccountID
	result, err := r.client.HGet(ctx, key, stateField).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("no snapshot for account %s", input.AccountID)
		}
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to get snapshot")
	}

	state, err := snapshot.Unmarshal([]byte(result))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode snapshot for account %s", input.AccountID)
	}

	return &GetOutput{State: state}, nil
}

func (r *redisRepository) Put(ctx context.Context, input PutInput) (*PutOutput, error) {
	if input.AccountID == "" {
		return nil, errors.InvalidArgument(errAccountIDEmpty)
	}
	if input.State == nil {
		return nil, errors.InvalidArgument(errStateNil)
	}

	data, err := snapshot.Marshal(input.State)
	if err != nil {
		return nil, err
	}

	key := accountKeyPrefix + input.AccountID
	if err := r.client.HSet(ctx, key, stateField, data).Err(); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to put snapshot")
	}

	slog.DebugContext(ctx, "wrote remote snapshot",
		"account_id", input.AccountID,
		"characters", len(input.State.Characters))

	return &PutOutput{State: input.State}, nil
}

func (r *redisRepository) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.AccountID == "" {
		return nil, errors.InvalidArgument(errAccountIDEmpty)
	}

	key := accountKeyPrefix + input.AccountID
	if err := r.client.HDel(ctx, key, stateField).Err(); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to delete snapshot")
	}

	return &DeleteOutput{}, nil
}
