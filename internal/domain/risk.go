package domain

import "time"

// RiskMode is the kill-switch ladder position.
type RiskMode string

// Ladder modes, in escalation order.
const (
	RiskModeNormal    RiskMode = "normal"
	RiskModeTight     RiskMode = "tight"
	RiskModeSevere    RiskMode = "severe"
	RiskModeSuspended RiskMode = "suspended"
)

// ValidRiskMode reports whether m is one of the ladder modes. Unknown modes
// in a persisted record are treated as corruption.
func ValidRiskMode(m RiskMode) bool {
	switch m {
	case RiskModeNormal, RiskModeTight, RiskModeSevere, RiskModeSuspended:
		return true
	}
	return false
}

// EvalOutcome is one evaluation cycle's realized performance.
type EvalOutcome struct {
	At      time.Time `json:"at"`
	WinRate float64   `json:"win_rate"`
	Trades  int       `json:"trades"`
	Bad     bool      `json:"bad"` // win rate below the tier-2 floor
}

// RiskState is the persisted kill-switch record. It is read-modify-written
// atomically per evaluation cycle; a corrupted record resets to defaults.
type RiskState struct {
	Mode           RiskMode      `json:"mode"`
	RollingHistory []EvalOutcome `json:"rolling_history"`
	ConsecutiveBad int           `json:"consecutive_bad"`
	SuspendedUntil *time.Time    `json:"suspended_until"`
	UpdatedAt      time.Time     `json:"updated_at"`

	// Version supports compare-and-swap saves; stores bump it on write.
	Version int64 `json:"version"`
}

// DefaultRiskState is the first-run state.
func DefaultRiskState() *RiskState {
	return &RiskState{
		Mode:           RiskModeNormal,
		RollingHistory: []EvalOutcome{},
	}
}

// AppendOutcome pushes an outcome onto the bounded history ring, dropping the
// oldest entries beyond cap.
func (s *RiskState) AppendOutcome(o EvalOutcome, cap int) {
	s.RollingHistory = append(s.RollingHistory, o)
	if cap > 0 && len(s.RollingHistory) > cap {
		s.RollingHistory = s.RollingHistory[len(s.RollingHistory)-cap:]
	}
}

// Window returns the most recent n outcomes (all of them when fewer exist).
func (s *RiskState) Window(n int) []EvalOutcome {
	if n <= 0 || len(s.RollingHistory) <= n {
		return s.RollingHistory
	}
	return s.RollingHistory[len(s.RollingHistory)-n:]
}

// Sane reports whether a loaded record is structurally usable. Stores treat
// an insane record as corruption and fall back to DefaultRiskState.
func (s *RiskState) Sane() bool {
	if s == nil || !ValidRiskMode(s.Mode) {
		return false
	}
	if s.Mode == RiskModeSuspended && s.SuspendedUntil == nil {
		return false
	}
	return true
}
