package driving

import (
	"context"

	"github.com/custodia-labs/muallim-cli/internal/core/domain"
)

// Answer is the outcome of one assisted question.
type Answer struct {
	// Text is the generated answer.
	Text string

	// Sources are the retrieved chunks the answer was grounded on.
	Sources []domain.RetrievedChunk

	// Degraded mirrors the retrieval response's degradation flag.
	Degraded bool
}

// Assistant joins retrieval, context assembly and generation into the
// question-answering flow. Session state is the last three turns, owned by
// the session, evicted oldest-first.
type Assistant interface {
	// Ask retrieves context for the question, assembles the generation
	// prompt with the session's recent turns, generates an answer and
	// records the new turn in the session window.
	Ask(ctx context.Context, question, subject, sessionID string, mode domain.AnswerMode) (*Answer, error)

	// Reset clears a session's conversation window.
	Reset(sessionID string)
}
