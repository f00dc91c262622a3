package routing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/routegraph/internal/ir"
)

// ErrNoEligibleConnector is returned when every candidate was rejected.
var ErrNoEligibleConnector = errors.New("no eligible connector")

// Service answers eligibility questions for live payment requests.
type Service struct {
	cache  *GraphCache
	schema *ir.Schema
	logger *zap.Logger
}

// NewService creates a service over cache. A nil logger is replaced by
// zap.NewNop().
func NewService(cache *GraphCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cache: cache, schema: cache.schema, logger: logger}
}

// Eligible returns the candidates the key's knowledge graph accepts for in,
// in input order. Rejected candidates are logged at debug and never fail
// the call on their own; ErrNoEligibleConnector is returned only when no
// candidate survives.
func (s *Service) Eligible(ctx context.Context, key CacheKey, in PaymentInput, candidates []ConnectorChoice) (*FilterResult, error) {
	rctx, err := RequestContext(in, s.schema)
	if err != nil {
		return nil, err
	}
	snap, err := s.cache.GetGraph(ctx, key)
	if err != nil {
		return nil, err
	}

	res := FilterChoices(candidates, rctx, snap.Graph, WithFilterSchema(s.schema))
	for _, r := range res.Rejected {
		s.logger.Debug("connector rejected",
			zap.String("key", key.String()),
			zap.String("connector", r.Choice.Connector),
			zap.String("reason", r.Reason))
	}
	candidateVerdicts.WithLabelValues("eligible").Add(float64(len(res.Eligible)))
	candidateVerdicts.WithLabelValues("rejected").Add(float64(len(res.Rejected)))

	if len(res.Eligible) == 0 {
		return &res, fmt.Errorf("%s: %d candidates rejected: %w", key, len(res.Rejected), ErrNoEligibleConnector)
	}
	return &res, nil
}
