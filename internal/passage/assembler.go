// Package passage builds the reference context placed in a prompt, either cut
// out of a question that embeds its own passage or fetched from a retriever.
package passage

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mcqrouter/internal/logging"
	"github.com/fyrsmithlabs/mcqrouter/internal/question"
	"github.com/fyrsmithlabs/mcqrouter/internal/strategy"
)

const (
	// EmbeddedMarker opens a passage carried inside the question text.
	EmbeddedMarker = "Đoạn thông tin"

	// QuestionMarker separates an embedded passage from the actual question.
	QuestionMarker = "Câu hỏi:"

	// NoContext is substituted into prompts when the context is empty.
	NoContext = "Không có thông tin tham khảo cụ thể."

	separator = "\n\n"
)

// Passage is one retrieved document.
type Passage struct {
	Text   string
	Score  float64
	Source string
}

// Retriever returns passages relevant to text, best first. It may return
// fewer than k.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]Passage, error)
}

// Source tells where a context came from.
type Source string

const (
	SourceNone      Source = "none"
	SourceEmbedded  Source = "embedded"
	SourceRetrieved Source = "retrieved"
)

// Assembled is the context and effective question text for one prompt.
type Assembled struct {
	Context  string
	Question string
	Source   Source
}

// Assembler applies the context precedence: embedded passage, then
// retrieval when the strategy asks for it, then nothing.
type Assembler struct {
	retriever Retriever
	logger    *logging.Logger
}

// NewAssembler creates an Assembler. retriever may be nil when no strategy
// uses retrieval.
func NewAssembler(retriever Retriever, logger *logging.Logger) *Assembler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Assembler{retriever: retriever, logger: logger}
}

// Assemble never fails. A retrieval error is logged and yields an empty
// context.
func (a *Assembler) Assemble(ctx context.Context, q question.Question, s strategy.Strategy) Assembled {
	text := q.Question

	if strings.Contains(text, EmbeddedMarker) {
		parts := strings.Split(text, QuestionMarker)
		if len(parts) > 1 {
			return Assembled{
				Context:  strings.TrimSpace(parts[0]),
				Question: strings.TrimSpace(parts[len(parts)-1]),
				Source:   SourceEmbedded,
			}
		}
		// The passage is in the text but not separable; the whole text
		// stays the question and retrieval is still skipped.
		return Assembled{Question: text, Source: SourceNone}
	}

	if !s.Retrieves() || a.retriever == nil {
		return Assembled{Question: text, Source: SourceNone}
	}

	passages, err := a.retriever.Query(ctx, text, s.TopKDocs)
	if err != nil {
		a.logger.Warn(ctx, "retrieval failed, answering without context",
			zap.String("qid", q.QID),
			zap.Error(err),
		)
		return Assembled{Question: text, Source: SourceNone}
	}
	if len(passages) > s.TopKDocs {
		passages = passages[:s.TopKDocs]
	}

	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		texts = append(texts, p.Text)
	}
	ctxText := strings.Join(texts, separator)
	if ctxText == "" {
		return Assembled{Question: text, Source: SourceNone}
	}
	return Assembled{Context: ctxText, Question: text, Source: SourceRetrieved}
}

// ContextOrPlaceholder returns the context, or NoContext when it is empty.
func (a Assembled) ContextOrPlaceholder() string {
	if a.Context == "" {
		return NoContext
	}
	return a.Context
}
