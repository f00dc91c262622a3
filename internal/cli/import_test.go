package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/routegraph/internal/routing"
	"github.com/roach88/routegraph/internal/store"
)

func TestImportConfig(t *testing.T) {
	opts := rootOpts(t, "json")

	out, err := runCommand(t, NewImportCommand(opts), merchantFile, "--merchant", "m_1")
	require.NoError(t, err)

	var result ImportResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ImportResult{Tenant: "public", Merchant: "m_1", Accounts: 3, Filters: 1}, result)

	st, err := store.Open(opts.DB)
	require.NoError(t, err)
	defer st.Close()

	cfg, err := st.LoadConfig(context.Background(), routing.CacheKey{
		Tenant: "public", Merchant: "m_1", Profile: "pro_1", TransactionType: routing.Payment,
	})
	require.NoError(t, err)
	assert.Len(t, cfg.Accounts, 3)
	require.Len(t, cfg.Filters, 1)
	assert.Equal(t, []string{"DE", "NL"}, cfg.Filters[0].Countries)
}

func TestImportWithPrograms(t *testing.T) {
	opts := rootOpts(t, "json")

	out, err := runCommand(t, NewImportCommand(opts), merchantFile, "--merchant", "m_1", "--programs", programsDir)
	require.NoError(t, err)

	var result ImportResult
	decodeResponse(t, out, &result)
	require.Len(t, result.Programs, 1)
	assert.Equal(t, "checkout", result.Programs[0].Name)
	assert.Len(t, result.Programs[0].Hash, 64)

	// Importing the same program again stores nothing new.
	out, err = runCommand(t, NewImportCommand(opts), merchantFile, "--merchant", "m_1", "--programs", programsDir)
	require.NoError(t, err)
	var again ImportResult
	decodeResponse(t, out, &again)
	assert.Equal(t, result.Programs, again.Programs)
}

func TestImportRejectsContradictoryProgram(t *testing.T) {
	opts := rootOpts(t, "text")
	dir := writeCUE(t, "conflicting.cue", conflictingProgram)

	_, err := runCommand(t, NewImportCommand(opts), merchantFile, "--merchant", "m_1", "--programs", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "CONFLICTING_ASSERTIONS")

	_, statErr := os.Stat(opts.DB)
	assert.True(t, os.IsNotExist(statErr), "nothing is written when a program fails")
}

func TestImportRejectsUnknownFields(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "merchant.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("acounts: []\n"), 0644))

	_, err := runCommand(t, NewImportCommand(rootOpts(t, "text")), cfgFile, "--merchant", "m_1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestImportRejectsUnknownConnector(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "merchant.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
accounts:
  - id: acc_x
    connector: acme
    profile: pro_1
    transaction_type: payment
`), 0644))

	_, err := runCommand(t, NewImportCommand(rootOpts(t, "text")), cfgFile, "--merchant", "m_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeBadInput)
	assert.Contains(t, err.Error(), "acme")
}

func TestImportRequiresMerchant(t *testing.T) {
	_, err := runCommand(t, NewImportCommand(rootOpts(t, "text")), merchantFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--merchant is required")
}

func TestLoadConfigFile(t *testing.T) {
	cfg, err := LoadConfigFile(merchantFile)
	require.NoError(t, err)
	require.Len(t, cfg.Accounts, 3)
	assert.Equal(t, "stripe", cfg.Accounts[0].Connector)
	require.NotNil(t, cfg.Accounts[0].PaymentMethods[0].MinAmount)
	assert.Equal(t, int64(100), *cfg.Accounts[0].PaymentMethods[0].MinAmount)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
