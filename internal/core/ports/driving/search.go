package driving

import (
	"context"

	"github.com/custodia-labs/muallim-cli/internal/core/domain"
)

// Retriever answers queries against one subject partition using hybrid
// dense + sparse retrieval with reciprocal rank fusion.
type Retriever interface {
	// Search returns at most topK committed chunks of the subject, ordered
	// by fused score. If one search leg is unavailable the response is
	// produced from the surviving leg and flagged Degraded.
	Search(ctx context.Context, query, subject string, topK int) (*domain.RetrievalResponse, error)
}
