package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenInputStdin(t *testing.T) {
	stdin := strings.NewReader("line")
	r, closeFn, err := openInput("-", stdin)
	require.NoError(t, err)
	defer closeFn()
	assert.Same(t, stdin, r)
}

func TestOpenInputMissingFile(t *testing.T) {
	_, _, err := openInput("/does/not/exist.jsonl", nil)
	assert.ErrorContains(t, err, "open events")
}

func TestReplayRequiresOneArgument(t *testing.T) {
	rootCmd.SetArgs([]string{CmdReplay})
	err := rootCmd.Execute()
	assert.Error(t, err)
}
