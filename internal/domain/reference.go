package domain

import "time"

// ReferenceRow carries per-symbol exchange microstructure data used to round
// prices and estimate market impact. Missing rows get the documented defaults
// from ExecutionConfig.
type ReferenceRow struct {
	Symbol        string
	Class         InstrumentClass
	LotSize       int64   // >= 1
	TickSize      float64 // > 0
	AvgDailyValue float64 // trailing average daily traded value, >= 0
	AsOf          time.Time
}

// DailyBar is one OHLCV row for a symbol. Bars are the only market history
// the core consumes; collaborators materialize them ahead of a run.
type DailyBar struct {
	Symbol      string
	Date        time.Time // trading date, midnight UTC
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      int64
	ValueTraded float64 // turnover in rupees
}
