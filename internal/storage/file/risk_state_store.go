// Package file persists the kill-switch state as a JSON document on local
// disk. It is the default backend for single-host deployments where running
// Postgres just for one row is not worth it.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// DefaultLockTTL bounds how long a crashed process can wedge the state file.
// A lock older than this is considered abandoned and taken over.
const DefaultLockTTL = 30 * time.Second

// RiskStateStore is a file-backed implementation of storage.RiskStateStore.
//
// Writes are atomic (tmp file + fsync + rename, with a best-effort .bak of
// the previous contents) and serialized by an advisory lock file with a TTL.
// A corrupt or missing state file loads as DefaultRiskState rather than
// failing; trading halts are decided by the gate, not by disk mishaps.
type RiskStateStore struct {
	path    string
	lockTTL time.Duration

	mu sync.Mutex // serializes Save within this process
}

// NewRiskStateStore creates a store persisting to path. The parent directory
// must exist.
func NewRiskStateStore(path string) *RiskStateStore {
	return &RiskStateStore{path: path, lockTTL: DefaultLockTTL}
}

// Load reads the current state. Missing, unreadable or insane records yield
// DefaultRiskState with a nil error.
func (s *RiskStateStore) Load(_ context.Context) (*domain.RiskState, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return domain.DefaultRiskState(), nil
	}

	var state domain.RiskState
	if err := json.Unmarshal(b, &state); err != nil {
		return domain.DefaultRiskState(), nil
	}
	if !state.Sane() {
		return domain.DefaultRiskState(), nil
	}
	return &state, nil
}

// Save persists the state under the advisory lock. The write is
// compare-and-swap on Version: if the on-disk record moved since the caller's
// Load, Save returns ErrVersionConflict and the caller must reload.
func (s *RiskStateStore) Save(ctx context.Context, state *domain.RiskState) error {
	if state == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	release, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer release()

	current, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if state.Version != current.Version {
		return storage.ErrVersionConflict
	}

	next := *state
	next.Version++
	next.UpdatedAt = time.Now().UTC()

	b, err := json.MarshalIndent(&next, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal risk state: %w", err)
	}

	// best-effort .bak of the previous contents
	if prev, err := os.ReadFile(s.path); err == nil {
		_ = os.WriteFile(s.path+".bak", prev, 0o600)
	}
	if err := writeFileAtomic(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write risk state: %w", err)
	}

	state.Version = next.Version
	state.UpdatedAt = next.UpdatedAt
	return nil
}

// lockRecord is the advisory lock file payload: who holds it and since when.
type lockRecord struct {
	PID      int       `json:"pid"`
	Acquired time.Time `json:"acquired"`
}

func (s *RiskStateStore) lockPath() string {
	return s.path + ".lock"
}

// acquireLock takes the advisory lock via exclusive create. A lock file older
// than the TTL is treated as abandoned by a dead holder and removed; a fresh
// one returns ErrLockBusy.
func (s *RiskStateStore) acquireLock() (func(), error) {
	lockPath := s.lockPath()

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			rec, _ := json.Marshal(lockRecord{PID: os.Getpid(), Acquired: time.Now().UTC()})
			_, _ = f.Write(rec)
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("acquire state lock: %w", err)
		}

		if !s.lockExpired(lockPath) {
			return nil, storage.ErrLockBusy
		}
		// Stale holder: clear and retry the exclusive create once.
		_ = os.Remove(lockPath)
	}

	return nil, storage.ErrLockBusy
}

func (s *RiskStateStore) lockExpired(lockPath string) bool {
	b, err := os.ReadFile(lockPath)
	if err != nil {
		// Holder may have released between our create attempt and now.
		return true
	}
	var rec lockRecord
	if err := json.Unmarshal(b, &rec); err != nil || rec.Acquired.IsZero() {
		return true
	}
	return time.Since(rec.Acquired) > s.lockTTL
}

// writeFileAtomic writes data to path atomically (tmp file + fsync + rename).
// The parent directory is also fsynced to harden the rename durability.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

var _ storage.RiskStateStore = (*RiskStateStore)(nil)
