package hostname

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoerce_Lowercases(t *testing.T) {
	require.Equal(t, "api.example.com", Coerce("API.Example.COM"))
}

func TestCoerce_FoldsUnicodeToASCII(t *testing.T) {
	require.Equal(t, "muller-cafe", Coerce("Müller Café"))
}

func TestCoerce_ReplacesDisallowedCharacters(t *testing.T) {
	require.Equal(t, "web-01", Coerce("web_01!"))
	require.Equal(t, "a-b-c", Coerce("a b/c"))
}

func TestCoerce_TrimsLabelDashes(t *testing.T) {
	require.Equal(t, "foo.bar", Coerce("-foo-.-bar-"))
}

func TestCoerce_CollapsesEmptyLabels(t *testing.T) {
	require.Equal(t, "a.b", Coerce("a..b"))
	require.Equal(t, "a.b", Coerce(".a.b."))
}

func TestCoerce_TruncatesLongLabels(t *testing.T) {
	coerced := Coerce(strings.Repeat("x", 70) + ".example")
	require.Equal(t, strings.Repeat("x", 63)+".example", coerced)
}

func TestCoerce_TruncatedLabelKeepsNoTrailingDash(t *testing.T) {
	// char 63 of the label is a dash that truncation exposes
	coerced := Coerce(strings.Repeat("x", 62) + "-yyyy")
	require.Equal(t, strings.Repeat("x", 62), coerced)
}

func TestCoerce_ClampsTotalLength(t *testing.T) {
	long := strings.Repeat(strings.Repeat("x", 60)+".", 6)
	coerced := Coerce(long)
	require.LessOrEqual(t, len(coerced), 253)
	require.False(t, strings.HasSuffix(coerced, "."))
	require.False(t, strings.HasSuffix(coerced, "-"))
}

func TestCoerce_AllDisallowedBecomesEmpty(t *testing.T) {
	require.Equal(t, "", Coerce("---"))
	require.Equal(t, "", Coerce("..."))
	require.Equal(t, "", Coerce("!!!"))
	require.Equal(t, "", Coerce(""))
}

func TestCoerce_Idempotent(t *testing.T) {
	inputs := []string{
		"API.Example.COM",
		"Müller Café",
		"-foo-.-bar-",
		strings.Repeat("x", 62) + "-yyyy",
		strings.Repeat(strings.Repeat("x", 60)+".", 6),
		"{bogus}-x",
	}
	for _, input := range inputs {
		once := Coerce(input)
		require.Equal(t, once, Coerce(once), "input %q", input)
	}
}
