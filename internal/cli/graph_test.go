package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/routegraph/internal/kgraph"
)

func TestGraphDefault(t *testing.T) {
	out, err := runCommand(t, NewGraphCommand(rootOpts(t, "json")))
	require.NoError(t, err)

	var view GraphView
	resp := decodeResponse(t, out, &view)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "default", view.Source)
	assert.Positive(t, view.Nodes)
	assert.NotEmpty(t, view.Edges)
	assert.Equal(t, []string{kgraph.DomainKnowledge}, view.Domains)
	assert.NotEmpty(t, view.Fingerprint)
}

func TestGraphDefaultIsStable(t *testing.T) {
	first, err := runCommand(t, NewGraphCommand(rootOpts(t, "text")))
	require.NoError(t, err)
	second, err := runCommand(t, NewGraphCommand(rootOpts(t, "text")))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "Knowledge graph default")
	assert.Contains(t, first, " -> ")
}

func TestGraphMerchant(t *testing.T) {
	opts := rootOpts(t, "json")
	importMerchant(t, opts)

	out, err := runCommand(t, NewGraphCommand(opts), "--merchant", "m_1", "--profile", "pro_1")
	require.NoError(t, err)

	var view GraphView
	decodeResponse(t, out, &view)
	assert.Equal(t, "routing:graph:public:m_1:pro_1:payment", view.Source)
	assert.Contains(t, view.Domains, kgraph.DomainConnector)
	assert.Contains(t, view.Domains, kgraph.DomainFilters)
	assert.Empty(t, view.Cycles)
}

func TestGraphDomainFilter(t *testing.T) {
	opts := rootOpts(t, "json")
	importMerchant(t, opts)

	out, err := runCommand(t, NewGraphCommand(opts),
		"--merchant", "m_1", "--profile", "pro_1", "--domain", kgraph.DomainFilters)
	require.NoError(t, err)

	var view GraphView
	decodeResponse(t, out, &view)
	require.NotEmpty(t, view.Edges)
	for _, e := range view.Edges {
		assert.Equal(t, kgraph.DomainFilters, e.Domain)
	}
}

func TestGraphMerchantMissingDatabase(t *testing.T) {
	_, err := runCommand(t, NewGraphCommand(rootOpts(t, "text")), "--merchant", "m_1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeDatabase)
}

func TestGraphInvalidTransactionType(t *testing.T) {
	_, err := runCommand(t, NewGraphCommand(rootOpts(t, "text")),
		"--merchant", "m_1", "--transaction-type", "refund")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeBadInput)
	assert.Contains(t, err.Error(), "unknown transaction type")
}
