// Package folds generates purged, embargoed walk-forward splits over a
// chronological date index.
package folds

import (
	"sort"
	"time"

	"equity-backtest-lab/internal/domain"
)

// fallbackTrainShare is the training share used for the degenerate-data
// single fold when the index is too short for the requested fold count.
const fallbackTrainShare = 0.8

// Generate partitions a date index into n contiguous chronological test
// windows with an embargo trimmed off each training boundary.
//
// The input is sorted and deduplicated. An empty index yields an
// empty slice, never an error: callers must treat it as insufficient data.
// Fewer than n+2 dates yields a single fold over the last 20% of the index.
// Test windows are pairwise non-overlapping and concatenate to the full
// range; the training range of fold k is everything strictly before its test
// window minus embargoDays index entries.
func Generate(dates []time.Time, n int, embargoDays int) []domain.Fold {
	idx := normalize(dates)
	if len(idx) == 0 {
		return []domain.Fold{}
	}
	if n < 1 {
		n = 1
	}
	if embargoDays < 0 {
		embargoDays = 0
	}

	if len(idx) < n+2 {
		cut := int(float64(len(idx)) * fallbackTrainShare)
		if cut >= len(idx) {
			cut = len(idx) - 1
		}
		f := domain.Fold{
			Index:       0,
			TestStart:   idx[cut],
			TestEnd:     idx[len(idx)-1],
			EmbargoDays: embargoDays,
		}
		applyTrainRange(&f, idx, cut, embargoDays)
		return []domain.Fold{f}
	}

	foldSize := len(idx) / n
	out := make([]domain.Fold, 0, n)
	for k := 0; k < n; k++ {
		s := k * foldSize
		e := (k+1)*foldSize - 1
		if k == n-1 {
			e = len(idx) - 1
		}
		f := domain.Fold{
			Index:       k,
			TestStart:   idx[s],
			TestEnd:     idx[e],
			EmbargoDays: embargoDays,
		}
		applyTrainRange(&f, idx, s, embargoDays)
		out = append(out, f)
	}
	return out
}

// applyTrainRange sets the purged training boundary: the last embargoDays
// index entries before the test window are dropped. Fold 0 (or a fully
// embargoed prefix) carries no training range.
func applyTrainRange(f *domain.Fold, idx []time.Time, testStartIdx, embargoDays int) {
	trainEnd := testStartIdx - embargoDays - 1
	if trainEnd < 0 {
		return
	}
	f.TrainStart = idx[0]
	f.TrainEnd = idx[trainEnd]
}

// normalize sorts and deduplicates the incoming dates without mutating the
// caller's slice.
func normalize(dates []time.Time) []time.Time {
	if len(dates) == 0 {
		return nil
	}
	out := make([]time.Time, len(dates))
	copy(out, dates)
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })

	dedup := out[:1]
	for _, d := range out[1:] {
		if !d.Equal(dedup[len(dedup)-1]) {
			dedup = append(dedup, d)
		}
	}
	return dedup
}
