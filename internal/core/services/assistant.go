package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/muallim-cli/internal/core/domain"
	"github.com/custodia-labs/muallim-cli/internal/core/ports/driven"
	"github.com/custodia-labs/muallim-cli/internal/core/ports/driving"
	"github.com/custodia-labs/muallim-cli/internal/logger"
)

// Ensure AssistantService implements the interface.
var _ driving.Assistant = (*AssistantService)(nil)

// AssistantService joins retrieval, context assembly and generation into
// the question-answering flow.
type AssistantService struct {
	retriever driving.Retriever
	assembler *Assembler
	generator driven.GenerationService
	sessions  *SessionManager
	genOpts   driven.GenerateOptions
}

// NewAssistantService creates the assistant. The generator may be nil, in
// which case Ask fails with ErrGenerationUnavailable while search commands
// keep working.
func NewAssistantService(
	retriever driving.Retriever,
	assembler *Assembler,
	generator driven.GenerationService,
	sessions *SessionManager,
	genOpts driven.GenerateOptions,
) *AssistantService {
	return &AssistantService{
		retriever: retriever,
		assembler: assembler,
		generator: generator,
		sessions:  sessions,
		genOpts:   genOpts,
	}
}

// Ask answers one question for a session. Retrieval degradation is passed
// through on the answer, not hidden.
func (s *AssistantService) Ask(
	ctx context.Context, question, subject, sessionID string, mode domain.AnswerMode,
) (*driving.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if !domain.ValidAnswerMode(string(mode)) {
		return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, mode)
	}
	if s.generator == nil {
		return nil, domain.ErrGenerationUnavailable
	}

	resp, err := s.retriever.Search(ctx, question, subject, 0)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	turns := s.sessions.Turns(sessionID)
	assembled := s.assembler.Assemble(question, resp.Results, turns, mode)
	logger.Debug("Assembled prompt with %d sources, %d history turns",
		len(assembled.Sources), len(turns))

	text, err := s.generator.Generate(ctx, assembled.Prompt, s.genOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationUnavailable, err)
	}

	s.sessions.Record(sessionID, domain.ConversationTurn{Query: question, Answer: text})

	return &driving.Answer{
		Text:     text,
		Sources:  assembled.Sources,
		Degraded: resp.Degraded,
	}, nil
}

// Reset clears a session's conversation window.
func (s *AssistantService) Reset(sessionID string) {
	s.sessions.Reset(sessionID)
}
