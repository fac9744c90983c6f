package watchcheck

// Thresholds are the upper warning and critical levels of a metric.
type Thresholds struct {
	Warn float64 `json:"warn"`
	Crit float64 `json:"crit"`
}

// Classify grades a value against the thresholds, treating both as upper
// bounds: v >= Crit is CRIT, v >= Warn is WARN, everything below is OK.
func (t Thresholds) Classify(v float64) State {
	switch {
	case v >= t.Crit:
		return StateCrit
	case v >= t.Warn:
		return StateWarn
	default:
		return StateOK
	}
}

// Boundaries describe the expected value range of a metric. Checkmk uses
// them for graph scaling.
type Boundaries struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Metric is a single measurement attached to a result.
type Metric struct {
	Name       string      `json:"name"`
	Value      float64     `json:"value"`
	Levels     *Thresholds `json:"levels,omitempty"`
	Boundaries *Boundaries `json:"boundaries,omitempty"`
	Unit       string      `json:"unit,omitempty"`
}
