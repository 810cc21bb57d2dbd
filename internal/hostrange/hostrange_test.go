package hostrange

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandSimpleRange(t *testing.T) {
	got, err := Expand("node[01-04]")
	require.NoError(t, err)
	require.Equal(t, []string{"node01", "node02", "node03", "node04"}, got)
}

func TestExpandMultiRangeWithSingle(t *testing.T) {
	got, err := Expand("node[01-03,09]")
	require.NoError(t, err)
	require.Equal(t, []string{"node01", "node02", "node03", "node09"}, got)
}

func TestExpandCommaSeparatedSpecs(t *testing.T) {
	got, err := Expand("node[01-02],gateway")
	require.NoError(t, err)
	require.Equal(t, []string{"node01", "node02", "gateway"}, got)
}

func TestExpandPlainHostname(t *testing.T) {
	got, err := Expand("login0")
	require.NoError(t, err)
	require.Equal(t, []string{"login0"}, got)
}

func TestExpandAllConcatenates(t *testing.T) {
	got, err := ExpandAll([]string{"node[01-02]", "login0"})
	require.NoError(t, err)
	require.Equal(t, []string{"node01", "node02", "login0"}, got)
}

func TestExpandRejectsUnbalancedBrackets(t *testing.T) {
	_, err := Expand("node[01-04")
	require.Error(t, err)
}

func TestExpandRejectsInvertedRange(t *testing.T) {
	_, err := Expand("node[04-01]")
	require.Error(t, err)
}
