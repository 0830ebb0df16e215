package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBatch_Parsed(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		repaired bool
	}{
		{"plain", `{"1": "B", "2": "Z"}`, false},
		{"fenced", "```json\n{\"1\": \"B\", \"2\": \"Z\"}\n```", false},
		{"prose around", "Đây là kết quả: {\"1\": \"B\", \"2\": \"Z\"} Hết.", true},
		{"trailing comma", "{\"1\": \"B\", \"2\": \"Z\",\n}", true},
		{"single quotes", `{'1': 'B', '2': 'Z'}`, true},
		{"unquoted keys", `{1: "B", 2: "Z"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ParseBatch(tt.raw)
			p, ok := out.(Parsed)
			require.True(t, ok, "got %#v", out)
			assert.Equal(t, tt.repaired, p.Repaired)

			got, reason := p.AnswerAt(1, 'D')
			assert.Equal(t, "B", got)
			assert.Equal(t, ReasonNone, reason)

			got, reason = p.AnswerAt(2, 'D')
			assert.Equal(t, "A", got, "Z is outside A-D")
			assert.Equal(t, ReasonOutOfRange, reason)
		})
	}
}

func TestParseBatch_Failed(t *testing.T) {
	for _, raw := range []string{"", "B", "Câu 1: B, Câu 2: C", `["A", "B"]`, "null", `{"1": "A"`} {
		out := ParseBatch(raw)
		f, ok := out.(Failed)
		require.True(t, ok, "raw=%q got %#v", raw, out)
		assert.ErrorIs(t, f.Reason, ErrMalformedBatch)
		assert.NotEmpty(t, f.Error())
	}
}

func TestParsed_AnswerAt(t *testing.T) {
	p := Parsed{Answers: map[string]any{
		"1": "C",
		"2": " D ",
		"3": 4.0,
		"4": "b",
		"5": "Đáp án A",
	}}

	tests := []struct {
		index  int
		want   string
		reason Reason
	}{
		{1, "C", ReasonNone},
		{2, "D", ReasonNone},
		{3, "A", ReasonNotLetter},
		{4, "A", ReasonNotLetter},
		{5, "A", ReasonNotLetter},
		{6, "A", ReasonMissingKey},
	}
	for _, tt := range tests {
		got, reason := p.AnswerAt(tt.index, 'D')
		assert.Equal(t, tt.want, got, "index %d", tt.index)
		assert.Equal(t, tt.reason, reason, "index %d", tt.index)
	}
}

func TestRepairJSON_NoChange(t *testing.T) {
	assert.Equal(t, "B", repairJSON("B"))
}
