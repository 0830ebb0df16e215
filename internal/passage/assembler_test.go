package passage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/mcqrouter/internal/logging"
	"github.com/fyrsmithlabs/mcqrouter/internal/question"
	"github.com/fyrsmithlabs/mcqrouter/internal/strategy"
)

type stubRetriever struct {
	passages []Passage
	err      error
	calls    int
	lastK    int
}

func (s *stubRetriever) Query(_ context.Context, _ string, k int) ([]Passage, error) {
	s.calls++
	s.lastK = k
	return s.passages, s.err
}

func retrieving(k int) strategy.Strategy {
	return strategy.Strategy{UseRAG: true, TopKDocs: k}
}

func TestAssemble_EmbeddedPassageSkipsRetrieval(t *testing.T) {
	r := &stubRetriever{passages: []Passage{{Text: "never used"}}}
	a := NewAssembler(r, nil)

	q := question.Question{
		QID:      "q1",
		Question: "Đoạn thông tin: Nội dung...\nCâu hỏi: 2+2?",
		Choices:  []string{"3", "4", "5"},
	}
	got := a.Assemble(context.Background(), q, retrieving(5))

	assert.Equal(t, "Đoạn thông tin: Nội dung...", got.Context)
	assert.Equal(t, "2+2?", got.Question)
	assert.Equal(t, SourceEmbedded, got.Source)
	assert.Zero(t, r.calls)
}

func TestAssemble_MarkerWithoutQuestionMarker(t *testing.T) {
	r := &stubRetriever{passages: []Passage{{Text: "p"}}}
	a := NewAssembler(r, nil)

	text := "Đoạn thông tin: một đoạn văn dài không có câu hỏi tách riêng"
	got := a.Assemble(context.Background(), question.Question{QID: "q", Question: text}, retrieving(3))

	assert.Equal(t, text, got.Question)
	assert.Empty(t, got.Context)
	assert.Zero(t, r.calls)
}

func TestAssemble_Retrieval(t *testing.T) {
	r := &stubRetriever{passages: []Passage{{Text: "one"}, {Text: "two"}, {Text: "three"}}}
	a := NewAssembler(r, nil)

	got := a.Assemble(context.Background(), question.Question{QID: "q", Question: "Ai?"}, retrieving(2))

	assert.Equal(t, "one\n\ntwo", got.Context)
	assert.Equal(t, "Ai?", got.Question)
	assert.Equal(t, SourceRetrieved, got.Source)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, 2, r.lastK)
}

func TestAssemble_FewerPassagesThanRequested(t *testing.T) {
	r := &stubRetriever{passages: []Passage{{Text: "only"}}}
	got := NewAssembler(r, nil).Assemble(context.Background(), question.Question{Question: "x"}, retrieving(5))
	assert.Equal(t, "only", got.Context)
}

func TestAssemble_NoRetrieval(t *testing.T) {
	r := &stubRetriever{passages: []Passage{{Text: "p"}}}
	a := NewAssembler(r, nil)

	tests := []struct {
		name string
		s    strategy.Strategy
	}{
		{"rag disabled", strategy.Strategy{UseRAG: false, TopKDocs: 3}},
		{"zero k", strategy.Strategy{UseRAG: true, TopKDocs: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Assemble(context.Background(), question.Question{Question: "x"}, tt.s)
			assert.Empty(t, got.Context)
			assert.Equal(t, NoContext, got.ContextOrPlaceholder())
		})
	}
	assert.Zero(t, r.calls)

	nilRetriever := NewAssembler(nil, nil).Assemble(context.Background(), question.Question{Question: "x"}, retrieving(3))
	assert.Equal(t, SourceNone, nilRetriever.Source)
}

func TestAssemble_RetrievalErrorIsEmptyContext(t *testing.T) {
	tl := logging.NewTestLogger()
	r := &stubRetriever{err: errors.New("index offline")}

	got := NewAssembler(r, tl.Logger).Assemble(context.Background(), question.Question{QID: "q9", Question: "x"}, retrieving(3))

	assert.Empty(t, got.Context)
	assert.Equal(t, "x", got.Question)
	tl.AssertLogged(t, zapcore.WarnLevel, "retrieval failed")
	tl.AssertField(t, "retrieval failed", "qid", "q9")
}
