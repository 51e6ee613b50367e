package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandTilde(t *testing.T) {
	got, err := Expand("~/apps", "/home/alice")
	require.NoError(t, err)
	require.Equal(t, "/home/alice/apps", got)
}

func TestExpandHomeAlwaysComputed(t *testing.T) {
	t.Setenv("HOME", "/somewhere/else")
	got, err := Expand("$HOME/bin", "/home/alice")
	require.NoError(t, err)
	require.Equal(t, "/home/alice/bin", got)
}

func TestExpandEnvVar(t *testing.T) {
	t.Setenv("SOAR_TEST_VAR", "/custom/path")
	got, err := Expand("$SOAR_TEST_VAR/bin", "/home/alice")
	require.NoError(t, err)
	require.Equal(t, "/custom/path/bin", got)
}

func TestExpandUndefinedVarIsFatal(t *testing.T) {
	_, err := Expand("$SOAR_DEFINITELY_UNSET_VAR/x", "/home/alice")
	require.Error(t, err)
}

func TestExpandNoSubstitution(t *testing.T) {
	got, err := Expand("/absolute/path", "/home/alice")
	require.NoError(t, err)
	require.Equal(t, "/absolute/path", got)
}
