package domain

import "time"

// Fold is one train/test split in a walk-forward evaluation. The embargo is
// applied by trimming the training boundary; test windows partition the date
// index without overlap.
type Fold struct {
	Index       int
	TrainStart  time.Time // zero when the fold has no training data
	TrainEnd    time.Time // zero when the fold has no training data
	TestStart   time.Time
	TestEnd     time.Time
	EmbargoDays int
}

// HasTrainRange reports whether any training dates survived the embargo trim.
func (f *Fold) HasTrainRange() bool {
	return !f.TrainStart.IsZero() && !f.TrainEnd.IsZero()
}
