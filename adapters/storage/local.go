// Package storage provides Sink implementations for persisting encoded
// outputs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vistaforge/renderpress/core"
	apperrors "github.com/vistaforge/renderpress/errors"
)

// Local writes outputs to the local filesystem.  Directory creation is
// idempotent, so concurrent tasks targeting the same destination tree never
// race; each file lands via a temp-file rename, so a failed task leaves no
// partial output behind.
type Local struct {
	permissions os.FileMode
}

// NewLocal creates a Local sink.  perm 0 selects 0o644.
func NewLocal(perm os.FileMode) *Local {
	if perm == 0 {
		perm = 0o644
	}
	return &Local{permissions: perm}
}

// Save writes data to path atomically, creating intermediate directories as
// needed.
func (l *Local) Save(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.save", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.save.mkdir", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.save.tmp", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.Wrap(apperrors.CategoryStorage, "local.save.write", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.Wrap(apperrors.CategoryStorage, "local.save.close", err)
	}
	if err := os.Chmod(tmpName, l.permissions); err != nil {
		os.Remove(tmpName)
		return apperrors.Wrap(apperrors.CategoryStorage, "local.save.chmod", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return apperrors.Wrap(apperrors.CategoryStorage, "local.save.rename", err)
	}
	return nil
}

// Exists reports whether an output already sits at path.
func (l *Local) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, apperrors.Wrap(apperrors.CategoryStorage, "local.exists", err)
}

// Remove deletes the output at path; a missing file is not an error.
func (l *Local) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperrors.New(apperrors.CategoryStorage, "local.remove",
			fmt.Errorf("remove %s: %w", path, err))
	}
	return nil
}

var _ core.Sink = (*Local)(nil)
