package watchcheck

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStrictestDecision_Ordering(t *testing.T) {
	require.Equal(t, Schedule, StrictestDecision(Schedule, Schedule))
	require.Equal(t, Skip, StrictestDecision(Schedule, Skip))
	require.Equal(t, DontSchedule, StrictestDecision(Skip, DontSchedule, Schedule))
}

func TestStrictestDecision_Empty(t *testing.T) {
	require.Equal(t, Schedule, StrictestDecision())
}

func TestDecision_String(t *testing.T) {
	require.Equal(t, "SCHEDULE", Schedule.String())
	require.Equal(t, "SKIP", Skip.String())
	require.Equal(t, "DONT_SCHEDULE", DontSchedule.String())
}

func TestMustRunInExecutionEnvironments(t *testing.T) {
	prod := NewEnvironment("prod")
	staging := NewEnvironment("staging")

	s := MustRunInExecutionEnvironments(prod)

	require.Equal(t, Schedule, s.Decide(nil, prod, staging))
	require.Equal(t, DontSchedule, s.Decide(nil, staging, staging))
}

func TestMustRunAgainstTargetEnvironments(t *testing.T) {
	prod := NewEnvironment("prod")
	staging := NewEnvironment("staging")

	s := MustRunAgainstTargetEnvironments(staging)

	require.Equal(t, Schedule, s.Decide(nil, prod, staging))
	require.Equal(t, DontSchedule, s.Decide(nil, prod, prod))
}

func TestMustRunInTargetEnvironment(t *testing.T) {
	prod := NewEnvironment("prod")
	staging := NewEnvironment("staging")

	s := MustRunInTargetEnvironment()

	require.Equal(t, Schedule, s.Decide(nil, prod, prod))
	require.Equal(t, DontSchedule, s.Decide(nil, prod, staging))
}

func TestDetectImpossibleCombination_NeutralAtRuntime(t *testing.T) {
	prod := NewEnvironment("prod")
	staging := NewEnvironment("staging")

	s := DetectImpossibleCombination()

	require.Equal(t, Schedule, s.Decide(nil, prod, staging))
}

func TestStrategy_String(t *testing.T) {
	prod := NewEnvironment("prod")
	staging := NewEnvironment("staging")

	require.Equal(t,
		"MustRunInExecutionEnvironments(prod, staging)",
		MustRunInExecutionEnvironments(prod, staging).String())
	require.Equal(t,
		"MustRunAgainstTargetEnvironments(prod)",
		MustRunAgainstTargetEnvironments(prod).String())
	require.Equal(t, "MustRunInTargetEnvironment()", MustRunInTargetEnvironment().String())
	require.Equal(t, "DetectImpossibleCombination()", DetectImpossibleCombination().String())
}
