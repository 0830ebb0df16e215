package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/mcqrouter/internal/logging"
	"github.com/fyrsmithlabs/mcqrouter/internal/question"
)

func fourChoices(qid string) question.Question {
	return question.Question{QID: qid, Choices: []string{"a", "b", "c", "d"}}
}

func TestMatchers(t *testing.T) {
	tests := []struct {
		name    string
		matcher Matcher
		text    string
		want    string
		ok      bool
	}{
		{"cue dap an", CueMatcher(), "Đáp án: B", "B", true},
		{"cue lowercase word", CueMatcher(), "đáp án - C.", "C", true},
		{"cue chon", CueMatcher(), "Tôi chọn D vì...", "D", true},
		{"cue tra loi", CueMatcher(), "Trả lời: A.", "A", true},
		{"cue ket qua", CueMatcher(), "Kết quả:C", "C", true},
		{"cue start of text", CueMatcher(), "B. 30 kPa", "B", true},
		{"cue bare letter", CueMatcher(), "C", "C", true},
		{"cue lowercase letter", CueMatcher(), "đáp án: b", "B", true},
		{"cue chon lowercase letter", CueMatcher(), "Tôi chọn c", "C", true},
		{"cue ket qua lowercase letter", CueMatcher(), "Kết quả: d.", "D", true},
		{"cue inside word", CueMatcher(), "ABC", "", false},
		{"line", LineMatcher(), "Suy luận...\nB\n", "B", true},
		{"line none", LineMatcher(), "B is right", "", false},
		{"standalone", StandaloneMatcher(), "(B)", "B", true},
		{"standalone skips words", StandaloneMatcher(), "OK so (C)", "C", true},
		{"standalone vietnamese neighbour", StandaloneMatcher(), "ĐA", "", false},
		{"standalone none", StandaloneMatcher(), "không biết", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.matcher.Match(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_Cascade(t *testing.T) {
	e := New(nil)
	ctx := context.Background()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"cue wins", "Đáp án: C", "C"},
		{"cue lowercase", "Đáp án: b", "B"},
		{"line", "Tôi nghĩ là\nD", "D"},
		{"standalone", "(B)", "B"},
		{"nothing", "không rõ", "A"},
		{"empty", "", "A"},
		{"out of range", "Đáp án: F", "A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Extract(ctx, tt.raw, fourChoices("q")))
		})
	}
}

func TestExtract_LogsValidationFailure(t *testing.T) {
	tl := logging.NewTestLogger()
	e := New(tl.Logger)

	got := e.Extract(context.Background(), "Đáp án: E", fourChoices("q42"))

	assert.Equal(t, "A", got)
	tl.AssertLogged(t, zapcore.WarnLevel, "invalid answer")
	tl.AssertField(t, "invalid answer", "qid", "q42")
	tl.AssertField(t, "invalid answer", "reason", string(ReasonOutOfRange))
}

func TestExtract_AlwaysInRange(t *testing.T) {
	e := New(nil)
	replies := []string{"Z", "Đáp án: Q", "B", "\nJ\n", "x y z", "1", "A B C D E F G"}
	for n := 1; n <= question.MaxChoices; n++ {
		q := question.Question{QID: "q", Choices: make([]string, n)}
		for _, raw := range replies {
			got := e.Extract(context.Background(), raw, q)
			require.True(t, question.InRange(got, q.MaxLetter()), "n=%d raw=%q got=%q", n, raw, got)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		in     string
		max    byte
		want   string
		reason Reason
	}{
		{"B", 'D', "B", ReasonNone},
		{"D", 'D', "D", ReasonNone},
		{"E", 'D', "A", ReasonOutOfRange},
		{"b", 'D', "A", ReasonNotLetter},
		{"1", 'D', "A", ReasonNotLetter},
		{"", 'D', "A", ReasonNotLetter},
		{"AB", 'D', "A", ReasonNotLetter},
	}
	for _, tt := range tests {
		got, reason := Validate(tt.in, tt.max)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.reason, reason, tt.in)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	for max := byte('A'); max <= 'Z'; max++ {
		for c := byte('A'); c <= 'Z'; c++ {
			once, _ := Validate(string(c), max)
			twice, reason := Validate(once, max)
			assert.Equal(t, once, twice)
			assert.Equal(t, ReasonNone, reason)
		}
	}
}

func TestExtractWithReason(t *testing.T) {
	e := New(nil)
	ctx := context.Background()
	q := fourChoices("q")

	got, reason := e.ExtractWithReason(ctx, "Đáp án: B", q)
	assert.Equal(t, "B", got)
	assert.Equal(t, ReasonNone, reason)

	got, reason = e.ExtractWithReason(ctx, "", q)
	assert.Equal(t, "A", got)
	assert.Equal(t, ReasonNoMatch, reason)

	got, reason = e.ExtractWithReason(ctx, "Chọn G", q)
	assert.Equal(t, "A", got)
	assert.Equal(t, ReasonOutOfRange, reason)
}
