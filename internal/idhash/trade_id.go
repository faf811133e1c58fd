package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(run_id|fold_index|symbol|side|engine_tag)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(runID string, foldIndex int, symbol, side, engineTag string) string {
	data := fmt.Sprintf("%s|%d|%s|%s|%s", runID, foldIndex, symbol, side, engineTag)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
