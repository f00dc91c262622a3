package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/routegraph/internal/routing"
)

var merchantKey = []string{"--merchant", "m_1", "--profile", "pro_1"}

func filterArgs(args ...string) []string {
	return append(args, merchantKey...)
}

func TestFilterCardRequest(t *testing.T) {
	opts := rootOpts(t, "json")
	importMerchant(t, opts)

	out, err := runCommand(t, NewFilterCommand(opts), filterArgs(
		"stripe", "adyen", "checkout",
		"--payment-method", "card", "--currency", "USD", "--amount", "500")...)
	require.NoError(t, err)

	var view FilterView
	resp := decodeResponse(t, out, &view)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []routing.ConnectorChoice{{Connector: "stripe"}, {Connector: "checkout"}}, view.Eligible)
	require.Len(t, view.Rejected, 1)
	assert.Equal(t, "adyen", view.Rejected[0].Connector)
	assert.NotEmpty(t, view.Rejected[0].Reason)
	assert.Empty(t, view.Rejected[0].Trace, "trace only with --explain")
}

func TestFilterKeepsAccountIDs(t *testing.T) {
	opts := rootOpts(t, "text")
	importMerchant(t, opts)

	out, err := runCommand(t, NewFilterCommand(opts), filterArgs(
		"checkout:acc_checkout", "--payment-method", "card", "--currency", "USD")...)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ checkout:acc_checkout")
}

func TestFilterNoEligibleConnector(t *testing.T) {
	opts := rootOpts(t, "json")
	importMerchant(t, opts)

	out, err := runCommand(t, NewFilterCommand(opts), filterArgs(
		"stripe", "--payment-method", "card", "--currency", "USD", "--amount", "50", "--explain")...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, routing.ErrNoEligibleConnector)

	var view FilterView
	resp := decodeResponse(t, out, &view)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "NO_ELIGIBLE_CONNECTOR", resp.Error.Code)
	assert.Empty(t, view.Eligible)
	require.Len(t, view.Rejected, 1)
	assert.Equal(t, "stripe", view.Rejected[0].Connector)
	assert.Contains(t, view.Rejected[0].Trace, "connector = stripe")
}

func TestFilterNoEligibleConnectorText(t *testing.T) {
	opts := rootOpts(t, "text")
	importMerchant(t, opts)

	out, err := runCommand(t, NewFilterCommand(opts), filterArgs(
		"adyen", "--payment-method", "card", "--currency", "USD")...)
	require.Error(t, err)
	assert.Contains(t, out, "✗ adyen: ")
	assert.Contains(t, out, "✗ No eligible connector")
}

func TestFilterRequestFile(t *testing.T) {
	opts := rootOpts(t, "json")
	importMerchant(t, opts)

	reqFile := filepath.Join(t.TempDir(), "sepa.yaml")
	require.NoError(t, os.WriteFile(reqFile, []byte(`
payment_method_type: sepa
currency: EUR
billing_country: FR
`), 0644))

	_, err := runCommand(t, NewFilterCommand(opts), filterArgs("adyen", "--request", reqFile)...)
	require.Error(t, err, "sepa from FR is outside the adyen filter")

	out, err := runCommand(t, NewFilterCommand(opts), filterArgs("adyen", "--request", reqFile, "--country", "DE")...)
	require.NoError(t, err, "flags override the request file")

	var view FilterView
	decodeResponse(t, out, &view)
	assert.Equal(t, []routing.ConnectorChoice{{Connector: "adyen"}}, view.Eligible)
}

func TestFilterRequestFileUnknownField(t *testing.T) {
	opts := rootOpts(t, "text")
	importMerchant(t, opts)

	reqFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(reqFile, []byte("paymentmethod: card\n"), 0644))

	_, err := runCommand(t, NewFilterCommand(opts), filterArgs("stripe", "--request", reqFile)...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to parse request")
}

func TestFilterUnknownCurrency(t *testing.T) {
	opts := rootOpts(t, "text")
	importMerchant(t, opts)

	_, err := runCommand(t, NewFilterCommand(opts), filterArgs("stripe", "--payment-method", "card", "--currency", "XYZ")...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeBadInput)
}

func TestFilterMissingDatabase(t *testing.T) {
	_, err := runCommand(t, NewFilterCommand(rootOpts(t, "text")), filterArgs("stripe")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")
}

func TestFilterRequiresMerchant(t *testing.T) {
	_, err := runCommand(t, NewFilterCommand(rootOpts(t, "text")), "stripe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merchant is required")
}

func TestParseCandidates(t *testing.T) {
	got, err := parseCandidates([]string{"stripe", "adyen:acc_1"})
	require.NoError(t, err)
	assert.Equal(t, []routing.ConnectorChoice{
		{Connector: "stripe"},
		{Connector: "adyen", AccountID: "acc_1"},
	}, got)

	_, err = parseCandidates([]string{":acc_1"})
	assert.Error(t, err)
}
