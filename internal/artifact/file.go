package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/IshaanNene/gameharvest/internal/types"
)

// PatchResult describes a completed file patch.
type PatchResult struct {
	Path        string
	BackupPath  string
	Records     int
	BytesBefore int
	BytesAfter  int
	Changed     bool
	Duration    time.Duration
}

// BackupPath returns the backup sibling of path.
func BackupPath(path string) string { return path + ".backup" }

// LockPath returns the lock file guarding path.
func LockPath(path string) string { return path + ".lock" }

// PatchFile patches the artifact at path in place. It holds an exclusive
// lock file for the whole operation, writes a verbatim backup before
// anything else, and replaces the artifact only through a synced temporary
// sibling. If anything fails after the backup exists, the original bytes
// are put back.
func (p *Patcher) PatchFile(ctx context.Context, path string, records []types.TargetGameRecord) (res *PatchResult, err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
			p.logger.Error("artifact patch failed", "path", path, "error", err)
		}
		if p.metrics != nil {
			p.metrics.PatchTotal.WithLabelValues(result).Inc()
		}
	}()

	unlock, err := acquireLock(path)
	if err != nil {
		return nil, &types.PatchError{Stage: "lock", Path: path, Err: err}
	}
	defer func() {
		if uerr := unlock(); uerr != nil {
			p.logger.Warn("could not remove lock file", "path", LockPath(path), "error", uerr)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, &types.PatchError{Stage: "lock", Path: path, Err: err}
	}

	original, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.PatchError{Stage: "read", Path: path, Err: err}
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, &types.PatchError{Stage: "read", Path: path, Err: err}
	}

	backup := BackupPath(path)
	if err := writeFileAtomic(backup, original, info.Mode().Perm()); err != nil {
		return nil, &types.PatchError{Stage: "backup", Path: backup, Err: err}
	}
	p.logger.Info("backup written", "path", backup, "bytes", len(original))

	patched, err := p.Patch(string(original), records)
	if err != nil {
		var pe *types.PatchError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, &types.PatchError{Stage: "write", Path: path, Err: err}
	}

	if err := writeFileAtomic(path, []byte(patched), info.Mode().Perm()); err != nil {
		p.restore(path, original, info.Mode().Perm())
		return nil, &types.PatchError{Stage: "write", Path: path, Err: err}
	}

	written, err := os.ReadFile(path)
	if err == nil && !bytes.Equal(written, []byte(patched)) {
		err = errors.New("artifact content differs from what was written")
	}
	if err != nil {
		p.restore(path, original, info.Mode().Perm())
		return nil, &types.PatchError{Stage: "verify", Path: path, Err: err}
	}

	res = &PatchResult{
		Path:        path,
		BackupPath:  backup,
		Records:     len(records),
		BytesBefore: len(original),
		BytesAfter:  len(patched),
		Changed:     patched != string(original),
		Duration:    time.Since(start),
	}
	p.logger.Info("artifact patched",
		"path", path,
		"records", res.Records,
		"bytes_before", res.BytesBefore,
		"bytes_after", res.BytesAfter,
		"changed", res.Changed,
	)
	return res, nil
}

// Restore copies the backup sibling of path back over path. It holds the
// same lock as PatchFile.
func (p *Patcher) Restore(path string) error {
	unlock, err := acquireLock(path)
	if err != nil {
		return &types.PatchError{Stage: "lock", Path: path, Err: err}
	}
	defer func() {
		if uerr := unlock(); uerr != nil {
			p.logger.Warn("could not remove lock file", "path", LockPath(path), "error", uerr)
		}
	}()

	data, err := os.ReadFile(BackupPath(path))
	if err != nil {
		return &types.PatchError{Stage: "restore", Path: path, Err: err}
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := writeFileAtomic(path, data, mode); err != nil {
		return &types.PatchError{Stage: "restore", Path: path, Err: err}
	}
	return nil
}

func (p *Patcher) restore(path string, original []byte, mode os.FileMode) {
	if err := writeFileAtomic(path, original, mode); err != nil {
		p.logger.Error("could not restore artifact, recover it from the backup",
			"path", path, "backup", BackupPath(path), "error", err)
		return
	}
	p.logger.Warn("artifact restored from original bytes", "path", path)
}

// acquireLock creates the lock file exclusively and returns its release.
// A lock left behind by a process that no longer exists is reclaimed once.
func acquireLock(path string) (func() error, error) {
	lock := LockPath(path)
	release, err := createLock(lock)
	if !errors.Is(err, os.ErrExist) {
		return release, err
	}

	pid, ok := lockOwner(lock)
	if !ok || processAlive(pid) {
		return nil, fmt.Errorf("%w: %s exists", types.ErrArtifactLocked, lock)
	}
	if err := os.Remove(lock); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale lock %s: %w", lock, err)
	}

	release, err = createLock(lock)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%w: %s exists", types.ErrArtifactLocked, lock)
	}
	return release, err
}

func createLock(lock string) (func() error, error) {
	f, err := os.OpenFile(lock, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	_, werr := f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	serr := f.Sync()
	cerr := f.Close()
	if err := errors.Join(werr, serr, cerr); err != nil {
		_ = os.Remove(lock)
		return nil, err
	}
	return func() error { return os.Remove(lock) }, nil
}

// lockOwner reads the pid recorded in a lock file. An unreadable or
// unparsable lock has no known owner.
func lockOwner(lock string) (int, bool) {
	data, err := os.ReadFile(lock)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// writeFileAtomic writes data to a temporary sibling, syncs it and renames
// it over path.
func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
