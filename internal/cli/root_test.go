package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersFlags(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	flags := cmd.PersistentFlags()

	for _, name := range []string{"verbose", "json", "no-progress", "config", "env-file", "provider", "model", "template", "api-key", "timeout", "log-file", "journal-file", "staging-dir"} {
		require.NotNil(t, flags.Lookup(name), "missing flag %s", name)
	}
	require.Equal(t, "0s", flags.Lookup("timeout").DefValue)
	require.Equal(t, "false", flags.Lookup("no-progress").DefValue)
}

func TestRootHelpListsCommands(t *testing.T) {
	t.Parallel()

	stdout, _, err := runCommand(t, []string{"--help"})
	require.NoError(t, err)
	for _, name := range []string{"chart", "session", "history", "templates", "version"} {
		require.Contains(t, stdout, name)
	}
}

func TestSubcommandHelpParsesSuccessfully(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{name: "chart", args: []string{"chart", "--help"}, contains: "Pass - to read the recording from stdin"},
		{name: "session", args: []string{"session", "--help"}, contains: "submit [template]"},
		{name: "history", args: []string{"history", "--help"}, contains: "newest first"},
		{name: "templates", args: []string{"templates", "--help"}, contains: "List chart templates"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewRootCmd()
			out := new(bytes.Buffer)
			cmd.SetOut(out)
			cmd.SetErr(out)
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())
			require.Contains(t, out.String(), tt.contains)
		})
	}
}

func TestCLIArgumentErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		args        []string
		errContains string
	}{
		{name: "unknown command", args: []string{"badcmd"}, errContains: "unknown command"},
		{name: "unknown flag", args: []string{"--badflag"}, errContains: "unknown flag"},
		{name: "chart missing arg", args: []string{"chart"}, errContains: "accepts 1 arg(s)"},
		{name: "chart too many args", args: []string{"chart", "a.wav", "b.wav"}, errContains: "accepts 1 arg(s)"},
		{name: "history positional", args: []string{"history", "today"}, errContains: "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := runCommand(t, tt.args)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestVersionOutput(t *testing.T) {
	t.Parallel()

	stdout, _, err := runCommand(t, []string{"--version"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stdout, "aichart v"), "got: %s", stdout)

	flagOutput := stdout
	stdout, _, err = runCommand(t, []string{"version"})
	require.NoError(t, err)
	require.Equal(t, flagOutput, stdout)
}

func TestTemplatesCommand(t *testing.T) {
	t.Parallel()

	stdout, _, err := runCommand(t, []string{"templates"})
	require.NoError(t, err)
	require.Contains(t, stdout, "NAME")
	require.Contains(t, stdout, "full")
	require.Contains(t, stdout, "minimal")
	require.Contains(t, stdout, "(default)")

	stdout, _, err = runCommand(t, []string{"templates", "--show", "full"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stdout, "# full@v1\n"))
	require.Contains(t, stdout, "C/C")

	_, _, err = runCommand(t, []string{"templates", "--show", "bogus"})
	require.Error(t, err)
}
