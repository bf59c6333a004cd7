package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		name string
		args []string
	}{
		{"propose P1", "propose", []string{"P1"}},
		{":p  P1   P2 ", "propose", []string{"P1", "P2"}},
		{"Quit", "quit", []string{}},
		{"q", "quit", []string{}},
		{"open abc", "open", []string{"abc"}},
		{"filter", "filter", []string{}},
		{"f red lamp", "filter", []string{"red", "lamp"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cmd, err := ParseCommand(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.name, cmd.Name)
			assert.Equal(t, tt.args, cmd.Args)
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	for _, in := range []string{"", "   ", "dance", "propose", "propose a b c", "open", "logout now"} {
		_, err := ParseCommand(in)
		assert.Error(t, err, in)
	}
}

func TestCommandArgs(t *testing.T) {
	cmd, err := ParseCommand("filter red lamp")
	require.NoError(t, err)
	assert.Equal(t, "red", cmd.Arg(0))
	assert.Equal(t, "", cmd.Arg(5))
	assert.Equal(t, "red lamp", cmd.Rest(0))
	assert.Equal(t, "", cmd.Rest(2))
}
