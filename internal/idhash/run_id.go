package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ComputeRunID computes a deterministic run_id for a walk-forward run.
// Formula: SHA256(from|to|folds|embargo_days|sorted universe)
// Returns the first 16 hex characters; run IDs appear in file names.
func ComputeRunID(from, to time.Time, folds, embargoDays int, universe []string) string {
	u := make([]string, len(universe))
	copy(u, universe)
	sort.Strings(u)

	data := fmt.Sprintf("%d|%d|%d|%d|%s",
		from.Unix(), to.Unix(), folds, embargoDays, strings.Join(u, ","))
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:16]
}
