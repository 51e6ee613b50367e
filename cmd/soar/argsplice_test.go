package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpliceStdinArgsReplacesBareDash(t *testing.T) {
	out, err := spliceStdinArgs([]string{"install", "-"}, strings.NewReader("a b\nc"))
	require.NoError(t, err)
	require.Equal(t, []string{"install", "a", "b", "c"}, out)
}

func TestSpliceStdinArgsLeavesOthersAlone(t *testing.T) {
	out, err := spliceStdinArgs([]string{"list", "--repo", "main"}, strings.NewReader("unused"))
	require.NoError(t, err)
	require.Equal(t, []string{"list", "--repo", "main"}, out)
}

func TestSpliceStdinArgsReplacesEveryOccurrence(t *testing.T) {
	out, err := spliceStdinArgs([]string{"install", "-", "--force", "-"}, strings.NewReader("a b"))
	require.NoError(t, err)
	require.Equal(t, []string{"install", "a", "b", "--force", "a", "b"}, out)
}
