package watchcheck

import (
	"fmt"
	"strings"
)

type builderPart struct {
	state State
	msg   string
}

// Builder accumulates partial verdicts of one check into a single Result.
// The final state is the severity-maximum over all recorded parts, the
// summary is picked by that state, and non-OK messages end up as a bulleted
// details block.
type Builder struct {
	okSummary   string
	failSummary string

	baseDetails      string
	nameSuffix       string
	hostnameOverride string

	parts   []builderPart
	metrics []Metric
}

type BuilderOpt interface {
	apply(*Builder)
}

type builderOptFunc func(*Builder)

func (f builderOptFunc) apply(b *Builder) { f(b) }

// WithBaseDetails puts a leading block before the bulleted messages.
func WithBaseDetails(details string) BuilderOpt {
	return builderOptFunc(func(b *Builder) { b.baseDetails = details })
}

// WithNameSuffix passes a service name suffix through to the final result.
func WithNameSuffix(suffix string) BuilderOpt {
	return builderOptFunc(func(b *Builder) { b.nameSuffix = suffix })
}

// WithHostnameOverride passes a piggyback host through to the final result.
func WithHostnameOverride(hostname string) BuilderOpt {
	return builderOptFunc(func(b *Builder) { b.hostnameOverride = hostname })
}

// NewBuilder creates a result builder. okSummary becomes the summary when
// every recorded part is OK, failSummary otherwise.
func NewBuilder(okSummary, failSummary string, opts ...BuilderOpt) *Builder {
	b := &Builder{okSummary: okSummary, failSummary: failSummary}
	for _, opt := range opts {
		opt.apply(b)
	}

	return b
}

func (b *Builder) OK(msg string) *Builder      { return b.add(StateOK, msg) }
func (b *Builder) Warn(msg string) *Builder    { return b.add(StateWarn, msg) }
func (b *Builder) Crit(msg string) *Builder    { return b.add(StateCrit, msg) }
func (b *Builder) Unknown(msg string) *Builder { return b.add(StateUnknown, msg) }

func (b *Builder) add(state State, msg string) *Builder {
	b.parts = append(b.parts, builderPart{state: state, msg: msg})
	return b
}

// AddMetric attaches a metric to the final result.
func (b *Builder) AddMetric(m Metric) *Builder {
	b.metrics = append(b.metrics, m)
	return b
}

// Finalize folds the accumulated parts into one Result. OK messages appear
// in the details only when no non-OK message exists.
func (b *Builder) Finalize() *Result {
	state := StateOK
	for _, p := range b.parts {
		if p.state.Severity() > state.Severity() {
			state = p.state
		}
	}

	summary := b.okSummary
	if state != StateOK {
		summary = b.failSummary
	}

	var lines []string
	for _, p := range b.parts {
		if p.state != StateOK && p.msg != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", p.state, p.msg))
		}
	}
	if len(lines) == 0 {
		for _, p := range b.parts {
			if p.msg != "" {
				lines = append(lines, "- "+p.msg)
			}
		}
	}

	details := b.baseDetails
	if len(lines) > 0 {
		if details != "" {
			details += "\n"
		}
		details += strings.Join(lines, "\n")
	}

	return &Result{
		State:            state,
		Summary:          summary,
		Details:          details,
		NameSuffix:       b.nameSuffix,
		HostnameOverride: b.hostnameOverride,
		Metrics:          b.metrics,
	}
}
