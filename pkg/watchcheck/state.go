package watchcheck

import "fmt"

// State is a Checkmk service state. The numeric values are the Checkmk wire
// values, which is what ends up in the rendered agent output.
type State int

const (
	StateOK      State = 0
	StateWarn    State = 1
	StateCrit    State = 2
	StateUnknown State = 3
)

// Severity positions the state in the aggregation order
// OK < WARN < UNKNOWN < CRIT. The wire values put UNKNOWN after CRIT, which
// is the wrong order for folding: a CRIT verdict must always win.
func (s State) Severity() int {
	switch s {
	case StateOK:
		return 0
	case StateWarn:
		return 1
	case StateUnknown:
		return 2
	default:
		return 3
	}
}

func (s State) String() string {
	switch s {
	case StateOK:
		return "OK"
	case StateWarn:
		return "WARN"
	case StateCrit:
		return "CRIT"
	case StateUnknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// WorstState folds states by severity, not by wire value.
func WorstState(states ...State) State {
	worst := StateOK
	for _, s := range states {
		if s.Severity() > worst.Severity() {
			worst = s
		}
	}

	return worst
}
