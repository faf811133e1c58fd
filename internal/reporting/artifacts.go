// Package reporting writes run artifacts: CSV trade ledgers per fold plus
// machine-readable JSON fold results and run summary.
package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"equity-backtest-lab/internal/domain"
	"equity-backtest-lab/internal/storage"
)

// Writer materializes a run's outputs into a directory.
type Writer struct {
	ledger storage.TradeLedgerStore
}

// NewWriter creates an artifact writer over the given ledger.
func NewWriter(ledger storage.TradeLedgerStore) *Writer {
	return &Writer{ledger: ledger}
}

// WriteRunArtifacts writes, under dir:
//
//	trades_fold<N>.csv   one per evaluated fold
//	fold_results.json    per-fold statistics including skips
//	summary.json         the full run summary
//
// The directory is created if missing. Skipped folds produce no trade CSV.
func (w *Writer) WriteRunArtifacts(ctx context.Context, dir string, summary *domain.RunSummary) error {
	if summary == nil {
		return storage.ErrInvalidInput
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	for _, fold := range summary.Folds {
		if fold.Skipped {
			continue
		}
		trades, err := w.ledger.GetByFold(ctx, summary.RunID, fold.FoldIndex)
		if err != nil {
			return fmt.Errorf("load fold %d trades: %w", fold.FoldIndex, err)
		}
		name := filepath.Join(dir, fmt.Sprintf("trades_fold%d.csv", fold.FoldIndex))
		if err := os.WriteFile(name, []byte(RenderTradesCSV(trades)), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	if err := writeJSON(filepath.Join(dir, "fold_results.json"), summary.Folds); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, "summary.json"), summary)
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
