package localstate

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/0xaya/guild-skill-tree-sub000/internal/errors"
	"github.com/0xaya/guild-skill-tree-sub000/internal/repositories/snapshot"
)

// snapshotFile is the fixed key the local snapshot lives under.
const snapshotFile = "global_state.json"

type fileRepository struct {
	path string
}

// FileConfig contains configuration for the file-backed local store.
type FileConfig struct {
	// Dir is the directory holding the snapshot file. Created if absent.
	Dir string
}

// Validate validates the FileConfig.
func (cfg *FileConfig) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if cfg.Dir == "" {
		return errors.InvalidArgument("dir cannot be empty")
	}
	return nil
}

// NewFile creates a file-backed local snapshot store.
func NewFile(cfg *FileConfig) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to create local state dir")
	}

	return &fileRepository{
		path: filepath.Join(cfg.Dir, snapshotFile),
	}, nil
}

func (r *fileRepository) Load(ctx context.Context, _ LoadInput) (*LoadOutput, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("no local snapshot")
		}
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to read local snapshot")
	}

	state, err := snapshot.Unmarshal(data)
	if err != nil {
		return nil, err
	}

	return &LoadOutput{State: state}, nil
}

func (r *fileRepository) Save(ctx context.Context, input SaveInput) (*SaveOutput, error) {
	if input.State == nil {
		return nil, errors.InvalidArgument("state cannot be nil")
	}

	data, err := snapshot.Marshal(input.State)
	if err != nil {
		return nil, err
	}

	// Write-then-rename keeps a torn write from corrupting the only copy.
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to write local snapshot")
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to replace local snapshot")
	}

	slog.DebugContext(ctx, "saved local snapshot",
		"path", r.path,
		"characters", len(input.State.Characters))

	return &SaveOutput{State: input.State}, nil
}

func (r *fileRepository) Clear(ctx context.Context, _ ClearInput) (*ClearOutput, error) {
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to clear local snapshot")
	}
	return &ClearOutput{}, nil
}
