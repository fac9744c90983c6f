package watchcheck

import (
	"fmt"
	"strings"
)

// Decision tells the engine what to do with one (check, target environment)
// pair. When several strategies disagree, the strictest (largest) decision
// wins.
type Decision int

const (
	// Schedule runs the check, or serves a live cached result.
	Schedule Decision = iota
	// Skip never runs the check but serves a cached result even if it is
	// expired.
	Skip
	// DontSchedule drops the pair entirely: no execution, no result.
	DontSchedule
)

func (d Decision) String() string {
	switch d {
	case Schedule:
		return "SCHEDULE"
	case Skip:
		return "SKIP"
	case DontSchedule:
		return "DONT_SCHEDULE"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// StrictestDecision aggregates under the Schedule < Skip < DontSchedule
// order.
func StrictestDecision(decisions ...Decision) Decision {
	strictest := Schedule
	for _, d := range decisions {
		if d > strictest {
			strictest = d
		}
	}

	return strictest
}

// SchedulingStrategy decides whether a check runs against a target
// environment, given the environment the engine itself runs in.
// Implementations must be pure functions of their inputs.
type SchedulingStrategy interface {
	Decide(c *Check, executionEnv, targetEnv *Environment) Decision
	String() string
}

type execEnvStrategy struct {
	envs []*Environment
}

// MustRunInExecutionEnvironments schedules the check only when the engine
// runs in one of the given environments.
func MustRunInExecutionEnvironments(envs ...*Environment) SchedulingStrategy {
	return &execEnvStrategy{envs: envs}
}

func (s *execEnvStrategy) Decide(_ *Check, executionEnv, _ *Environment) Decision {
	for _, env := range s.envs {
		if env.Name() == executionEnv.Name() {
			return Schedule
		}
	}

	return DontSchedule
}

func (s *execEnvStrategy) String() string {
	return fmt.Sprintf("MustRunInExecutionEnvironments(%s)", joinEnvNames(s.envs))
}

type targetEnvStrategy struct {
	envs []*Environment
}

// MustRunAgainstTargetEnvironments schedules the check only for the given
// target environments.
func MustRunAgainstTargetEnvironments(envs ...*Environment) SchedulingStrategy {
	return &targetEnvStrategy{envs: envs}
}

func (s *targetEnvStrategy) Decide(_ *Check, _, targetEnv *Environment) Decision {
	for _, env := range s.envs {
		if env.Name() == targetEnv.Name() {
			return Schedule
		}
	}

	return DontSchedule
}

func (s *targetEnvStrategy) String() string {
	return fmt.Sprintf("MustRunAgainstTargetEnvironments(%s)", joinEnvNames(s.envs))
}

type sameEnvStrategy struct{}

// MustRunInTargetEnvironment schedules a pair only when the engine runs in
// the environment the check observes.
func MustRunInTargetEnvironment() SchedulingStrategy {
	return sameEnvStrategy{}
}

func (sameEnvStrategy) Decide(_ *Check, executionEnv, targetEnv *Environment) Decision {
	if executionEnv.Name() == targetEnv.Name() {
		return Schedule
	}

	return DontSchedule
}

func (sameEnvStrategy) String() string {
	return "MustRunInTargetEnvironment()"
}

type impossibleCombination struct{}

// DetectImpossibleCombination contributes no runtime decision. It makes the
// startup conflict analysis explicit in a declaration; the engine runs that
// analysis for every check regardless.
func DetectImpossibleCombination() SchedulingStrategy {
	return impossibleCombination{}
}

func (impossibleCombination) Decide(*Check, *Environment, *Environment) Decision {
	return Schedule
}

func (impossibleCombination) String() string {
	return "DetectImpossibleCombination()"
}

func joinEnvNames(envs []*Environment) string {
	names := make([]string, 0, len(envs))
	for _, env := range envs {
		names = append(names, env.Name())
	}

	return strings.Join(names, ", ")
}
