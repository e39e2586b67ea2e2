package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI with args and returns stdout, stderr and the error.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer

	rootCmd := newRootCmd()
	rootCmd.SetOut(&outBuf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs(args)

	err = rootCmd.Execute()

	return outBuf.String(), errBuf.String(), err
}

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestCLIHelpAndSubcommands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		wantOut string
		args    []string
		wantErr bool
	}{
		{name: "root help", args: []string{"--help"}, wantOut: "compares two source files as syntax trees"},
		{name: "diff help", args: []string{"diff", "--help"}, wantOut: "--old-rev"},
		{name: "labels help", args: []string{"labels", "--help"}, wantOut: "label table"},
		{name: "version", args: []string{"version"}, wantOut: "codediff "},
		{name: "unknown", args: []string{"unknown"}, wantErr: true},
		{name: "diff needs two files", args: []string{"diff", "a.go"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stdout, _, err := execute(t, tt.args...)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Contains(t, stdout, tt.wantOut)
		})
	}
}

func TestLabelsCommand(t *testing.T) {
	t.Parallel()

	stdout, _, err := execute(t, "labels")
	require.NoError(t, err)
	assert.Contains(t, stdout, "go")
	assert.Contains(t, stdout, "json")
	assert.Contains(t, stdout, "Total: 2 languages")

	stdout, _, err = execute(t, "labels", "Go")
	require.NoError(t, err)
	assert.Contains(t, stdout, "function_declaration")
	assert.Contains(t, stdout, "<named>")

	_, _, err = execute(t, "labels", "cobol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cobol")
}
