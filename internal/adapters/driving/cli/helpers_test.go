package cli

import (
	"context"

	"github.com/custodia-labs/muallim-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/muallim-cli/internal/core/domain"
	"github.com/custodia-labs/muallim-cli/internal/core/ports/driving"
)

// stubIngestor records calls and returns a canned report.
type stubIngestor struct {
	report     *driving.IngestReport
	fileReport driving.DocumentReport
	err        error
	lastRoot   string
	lastOpts   driving.IngestOptions
}

func (s *stubIngestor) IngestDir(_ context.Context, root string, opts driving.IngestOptions) (*driving.IngestReport, error) {
	s.lastRoot = root
	s.lastOpts = opts
	return s.report, s.err
}

func (s *stubIngestor) IngestFile(_ context.Context, path, subject string) (driving.DocumentReport, error) {
	return s.fileReport, s.err
}

// stubRetriever returns a canned response.
type stubRetriever struct {
	resp      *domain.RetrievalResponse
	err       error
	lastQuery string
	lastTopK  int
}

func (s *stubRetriever) Search(_ context.Context, query, subject string, topK int) (*domain.RetrievalResponse, error) {
	s.lastQuery = query
	s.lastTopK = topK
	return s.resp, s.err
}

// stubAssistant returns a canned answer.
type stubAssistant struct {
	answer   *driving.Answer
	err      error
	lastMode domain.AnswerMode
	resets   []string
}

func (s *stubAssistant) Ask(_ context.Context, question, subject, sessionID string, mode domain.AnswerMode) (*driving.Answer, error) {
	s.lastMode = mode
	return s.answer, s.err
}

func (s *stubAssistant) Reset(sessionID string) {
	s.resets = append(s.resets, sessionID)
}

func retrievedChunk(id string, path []string, text string, score float64) domain.RetrievedChunk {
	return domain.RetrievedChunk{
		Chunk: domain.Chunk{
			ID:      id,
			Subject: "physics",
			Path:    path,
			Text:    text,
			Status:  domain.ChunkCommitted,
		},
		Result: domain.RankedResult{ChunkID: id, Score: score},
	}
}

// setupTestServices wires stub services into the package vars and returns
// a cleanup restoring the uninitialised state.
func setupTestServices() func() {
	ingestor = &stubIngestor{
		report: &driving.IngestReport{
			Documents: []driving.DocumentReport{
				{SourcePath: "/books/physics/currents.pdf", Subject: "physics", Pages: 12, Chunks: 30},
			},
		},
	}
	retriever = &stubRetriever{
		resp: &domain.RetrievalResponse{
			Results: []domain.RetrievedChunk{
				retrievedChunk("c1", []string{"Chapter 1", "Lesson 2"}, "Electric current is the flow of charge.", 0.032),
			},
		},
	}
	assistant = &stubAssistant{
		answer: &driving.Answer{
			Text: "Current is the flow of electric charge.",
			Sources: []domain.RetrievedChunk{
				retrievedChunk("c1", []string{"Chapter 1"}, "Electric current.", 0.032),
			},
		},
	}
	docStore = memory.NewDocumentStore()

	return func() {
		ingestor = nil
		retriever = nil
		assistant = nil
		docStore = nil
	}
}
