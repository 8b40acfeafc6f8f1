package transport

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/illarion/upm/internal/security"
	"github.com/illarion/upm/internal/store"
	"github.com/illarion/upm/internal/syncer"
)

// Dir keeps the remote copy in a directory on the local filesystem
type Dir struct {
	root   string
	logger *zap.Logger
}

func NewDir(root string, logger *zap.Logger) *Dir {
	return &Dir{
		root:   root,
		logger: logger.With(zap.String("transport", "dir"), zap.String("root", root)),
	}
}

func (d *Dir) path(name string) (string, error) {
	p, err := security.JoinName(d.root, name)
	if err != nil {
		return "", fmt.Errorf("invalid remote name: %w", err)
	}
	return p, nil
}

func (d *Dir) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := d.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, syncer.ErrRemoteNotFound
	}
	return data, err
}

func (d *Dir) Push(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := d.path(name)
	if err != nil {
		return err
	}
	if err := store.WriteFile(p, data, store.FileMode); err != nil {
		return err
	}
	d.logger.Debug("stored", zap.String("name", name), zap.Int("bytes", len(data)))
	return nil
}

func (d *Dir) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := d.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Exists reports whether name is present
func (d *Dir) Exists(name string) (bool, error) {
	p, err := d.path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
