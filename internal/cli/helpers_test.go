package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	programsDir  = filepath.Join("..", "..", "testdata", "programs")
	scenariosDir = filepath.Join("..", "..", "testdata", "scenarios")
	merchantFile = filepath.Join("..", "..", "testdata", "merchant.yaml")
)

// writeCUE writes a CUE file into a fresh temp dir and returns the dir.
func writeCUE(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	return dir
}

// runCommand executes cmd with args and returns stdout.
func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out, _, err := runCommandStderr(t, cmd, args...)
	return out, err
}

// runCommandStderr executes cmd with args and returns stdout and stderr.
func runCommandStderr(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// decodeResponse parses a JSON envelope and re-decodes its data into out.
func decodeResponse(t *testing.T, output string, out any) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp), "output: %s", output)
	if out != nil && resp.Data != nil {
		raw, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return resp
}

// rootOpts returns options for a command under test, with its own database.
func rootOpts(t *testing.T, format string) *RootOptions {
	t.Helper()
	return &RootOptions{
		Format: format,
		DB:     filepath.Join(t.TempDir(), "routegraph.db"),
		Logger: zap.NewNop(),
	}
}

// importMerchant loads testdata/merchant.yaml into opts.DB as public/m_1.
func importMerchant(t *testing.T, opts *RootOptions) {
	t.Helper()
	_, err := runCommand(t, NewImportCommand(opts), merchantFile, "--merchant", "m_1")
	require.NoError(t, err)
}
