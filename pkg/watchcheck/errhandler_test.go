package watchcheck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandByHostname(t *testing.T) {
	in := []*ExecutionResult{
		{ServiceName: "db connectivity", State: StateUnknown, Summary: "check failed"},
	}

	out, err := ExpandByHostname("db-1", "db-2", "db-3").
		HandleError(context.Background(), nil, nil, in)
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, "db-1", out[0].PiggybackHost)
	require.Equal(t, "db-2", out[1].PiggybackHost)
	require.Equal(t, "db-3", out[2].PiggybackHost)
	for _, res := range out {
		require.Equal(t, "db connectivity", res.ServiceName)
		require.Equal(t, StateUnknown, res.State)
	}
}

func TestExpandByNameSuffix(t *testing.T) {
	in := []*ExecutionResult{
		{ServiceName: "replication", PiggybackHost: "db-host", State: StateUnknown},
	}

	out, err := ExpandByNameSuffix(" read", " write").
		HandleError(context.Background(), nil, nil, in)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "replication read", out[0].ServiceName)
	require.Equal(t, "replication write", out[1].ServiceName)
	require.Equal(t, "db-host", out[0].PiggybackHost)
}

func TestErrorHandlers_ChainMultiplies(t *testing.T) {
	results := []*ExecutionResult{
		{ServiceName: "sync", State: StateUnknown, Summary: "check failed"},
	}

	handlers := []ErrorHandler{
		ExpandByHostname("node-1", "node-2"),
		ExpandByNameSuffix(" ingest", " digest", " export"),
	}

	var err error
	for _, h := range handlers {
		results, err = h.HandleError(context.Background(), nil, nil, results)
		require.NoError(t, err)
	}

	require.Len(t, results, 6)
	require.Equal(t, "node-1", results[0].PiggybackHost)
	require.Equal(t, "sync ingest", results[0].ServiceName)
	require.Equal(t, "node-2", results[5].PiggybackHost)
	require.Equal(t, "sync export", results[5].ServiceName)
}

func TestErrorHandler_String(t *testing.T) {
	require.Equal(t, "ExpandByHostname(a, b)", ExpandByHostname("a", "b").String())
	require.Equal(t, "ExpandByNameSuffix(x)", ExpandByNameSuffix("x").String())
}
