package watchcheck

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestDetailsText_Nil(t *testing.T) {
	require.Equal(t, "", DetailsText(nil))
}

func TestDetailsText_String(t *testing.T) {
	require.Equal(t, "checked 5 endpoints", DetailsText("checked 5 endpoints"))
}

func TestDetailsText_MapSortedByKey(t *testing.T) {
	details := map[string]string{
		"zone":    "eu-central-1",
		"cluster": "primary",
		"node":    "db-3",
	}

	require.Equal(t, "cluster: primary\nnode: db-3\nzone: eu-central-1", DetailsText(details))
}

func TestDetailsText_Error(t *testing.T) {
	err := errors.New("connection refused")

	text := DetailsText(err)
	require.Contains(t, text, "connection refused")
}

func TestDetailsText_Fallback(t *testing.T) {
	require.Equal(t, "42", DetailsText(42))
}
