package services

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/custodia-labs/muallim-cli/internal/config"
	"github.com/custodia-labs/muallim-cli/internal/core/domain"
	"github.com/custodia-labs/muallim-cli/internal/logger"
)

// modeInstructions maps each answer mode to its generation instruction.
// The curriculum corpus is Arabic-first, so instructions are bilingual and
// direct the model to answer in the question's language.
var modeInstructions = map[domain.AnswerMode]string{
	domain.ModeAnswer: "You are a helpful curriculum tutor. Answer the student's question using ONLY the curriculum excerpts below. If the excerpts do not contain the answer, say so. Answer in the same language as the question.\n" +
		"أنت معلم مساعد. أجب عن سؤال الطالب باستخدام مقتطفات المنهج أدناه فقط. إذا لم تحتوِ المقتطفات على الإجابة فقل ذلك. أجب بنفس لغة السؤال.",
	domain.ModeQuiz: "You are a curriculum tutor. Write multiple-choice questions (with 4 options each and an answer key) that test the material in the curriculum excerpts below. Use the same language as the excerpts.\n" +
		"أنت معلم. اكتب أسئلة اختيار من متعدد (بأربعة خيارات لكل سؤال مع مفتاح الإجابة) تختبر المادة الواردة في مقتطفات المنهج أدناه. استخدم نفس لغة المقتطفات.",
	domain.ModeExplain: "You are a curriculum tutor. Explain the topic of the student's question step by step, using ONLY the curriculum excerpts below, in simple language suitable for a school student. Answer in the same language as the question.\n" +
		"أنت معلم. اشرح موضوع سؤال الطالب خطوة بخطوة باستخدام مقتطفات المنهج أدناه فقط وبلغة بسيطة تناسب طالب المدرسة. أجب بنفس لغة السؤال.",
}

// AssembledContext is a generation-ready prompt with the chunks that
// survived the token budget.
type AssembledContext struct {
	Prompt  string
	Sources []domain.RetrievedChunk
}

// Assembler builds generation prompts from retrieved chunks and recent
// conversation turns, bounded by a token budget.
type Assembler struct {
	budget int
	enc    *tiktoken.Tiktoken
}

// NewAssembler creates an assembler. Token counting uses the cl100k_base
// encoding, which is close enough across the local models we target. The
// encoding is loaded from the embedded dictionary so startup needs no
// network access.
func NewAssembler(cfg config.AssemblerConfig) (*Assembler, error) {
	tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load token encoding: %w", err)
	}
	return &Assembler{budget: cfg.TokenBudget, enc: enc}, nil
}

// Assemble renders the prompt for a question. Chunks arrive best-first;
// when the prompt exceeds the token budget the lowest-ranked chunks are
// dropped until it fits. The conversation history and the question itself
// are never dropped.
func (a *Assembler) Assemble(
	question string,
	results []domain.RetrievedChunk,
	turns []domain.ConversationTurn,
	mode domain.AnswerMode,
) AssembledContext {
	kept := results
	for {
		prompt := a.render(question, kept, turns, mode)
		if a.countTokens(prompt) <= a.budget || len(kept) == 0 {
			if len(kept) < len(results) {
				logger.Debug("Token budget dropped %d of %d chunks",
					len(results)-len(kept), len(results))
			}
			return AssembledContext{Prompt: prompt, Sources: kept}
		}
		kept = kept[:len(kept)-1]
	}
}

func (a *Assembler) render(
	question string,
	results []domain.RetrievedChunk,
	turns []domain.ConversationTurn,
	mode domain.AnswerMode,
) string {
	var b strings.Builder

	instruction, ok := modeInstructions[mode]
	if !ok {
		instruction = modeInstructions[domain.ModeAnswer]
	}
	b.WriteString(instruction)
	b.WriteString("\n\n")

	if len(results) > 0 {
		b.WriteString("Curriculum excerpts:\n")
		for i, r := range results {
			b.WriteString(fmt.Sprintf("[%d]", i+1))
			if len(r.Chunk.Path) > 0 {
				b.WriteString(" ")
				b.WriteString(strings.Join(r.Chunk.Path, " > "))
			}
			b.WriteString("\n")
			b.WriteString(r.Chunk.Text)
			b.WriteString("\n\n")
		}
	}

	if len(turns) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, t := range turns {
			b.WriteString("Student: ")
			b.WriteString(t.Query)
			b.WriteString("\nTutor: ")
			b.WriteString(t.Answer)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Student question: ")
	b.WriteString(question)
	b.WriteString("\nTutor:")
	return b.String()
}

func (a *Assembler) countTokens(text string) int {
	return len(a.enc.Encode(text, nil, nil))
}
