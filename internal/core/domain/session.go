package domain

// AnswerMode selects the generation style for assembled context.
type AnswerMode string

const (
	// ModeAnswer answers a question directly from retrieved context.
	ModeAnswer AnswerMode = "answer"

	// ModeQuiz generates multiple-choice questions from retrieved context.
	ModeQuiz AnswerMode = "quiz"

	// ModeExplain explains a topic using retrieved context.
	ModeExplain AnswerMode = "explain"
)

// ValidAnswerMode reports whether s names a known answer mode.
func ValidAnswerMode(s string) bool {
	switch AnswerMode(s) {
	case ModeAnswer, ModeQuiz, ModeExplain:
		return true
	}
	return false
}

// ConversationTurn is one user question and its generated answer.
type ConversationTurn struct {
	Query  string
	Answer string
}

// ConversationWindow is a bounded ordered sequence of turns. The oldest
// turn is evicted on overflow. Owned by a single session; sessions are
// single-writer so the window itself needs no locking.
type ConversationWindow struct {
	turns    []ConversationTurn
	capacity int
}

// NewConversationWindow creates a window holding at most capacity turns.
func NewConversationWindow(capacity int) *ConversationWindow {
	if capacity <= 0 {
		capacity = 3
	}
	return &ConversationWindow{capacity: capacity}
}

// Add appends a turn, evicting the oldest when the window is full.
func (w *ConversationWindow) Add(turn ConversationTurn) {
	w.turns = append(w.turns, turn)
	if len(w.turns) > w.capacity {
		w.turns = w.turns[len(w.turns)-w.capacity:]
	}
}

// Turns returns a copy of the window contents, oldest first.
func (w *ConversationWindow) Turns() []ConversationTurn {
	out := make([]ConversationTurn, len(w.turns))
	copy(out, w.turns)
	return out
}

// Len returns the number of stored turns.
func (w *ConversationWindow) Len() int {
	return len(w.turns)
}

// Clear removes all turns.
func (w *ConversationWindow) Clear() {
	w.turns = nil
}
