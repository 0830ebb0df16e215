package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/mcqrouter/internal/question"
)

// ErrMalformedBatch is wrapped by Failed when a batch reply is not a JSON
// object even after repair.
var ErrMalformedBatch = errors.New("malformed batch reply")

// BatchOutcome is the result of parsing one batch reply: either Parsed or
// Failed.
type BatchOutcome interface {
	isBatchOutcome()
}

// Parsed holds the decoded index-to-answer object.
type Parsed struct {
	Answers  map[string]any
	Repaired bool
}

// Failed means the reply could not be used at all.
type Failed struct {
	Reason error
}

func (Parsed) isBatchOutcome() {}
func (Failed) isBatchOutcome() {}

func (f Failed) Error() string {
	if f.Reason == nil {
		return ErrMalformedBatch.Error()
	}
	return f.Reason.Error()
}

// ParseBatch decodes a batch reply after removing code fences. A reply that
// does not decode gets one repair pass first. A reply the repair fixes is
// Parsed, so it never triggers the per-question fallback; only output that is
// still malformed after repair is Failed.
func ParseBatch(raw string) BatchOutcome {
	cleaned := stripFences(raw)

	answers, err := decodeObject(cleaned)
	if err == nil {
		return Parsed{Answers: answers}
	}

	repaired := repairJSON(cleaned)
	if repaired == cleaned {
		return Failed{Reason: fmt.Errorf("%w: %v", ErrMalformedBatch, err)}
	}
	answers, rerr := decodeObject(repaired)
	if rerr != nil {
		return Failed{Reason: fmt.Errorf("%w: still invalid after repair: %v", ErrMalformedBatch, rerr)}
	}
	return Parsed{Answers: answers, Repaired: true}
}

// AnswerAt returns the validated answer for the 1-based in-batch index.
func (p Parsed) AnswerAt(index int, max byte) (string, Reason) {
	v, ok := p.Answers[strconv.Itoa(index)]
	if !ok {
		return question.DefaultAnswer, ReasonMissingKey
	}
	s, ok := v.(string)
	if !ok {
		return question.DefaultAnswer, ReasonNotLetter
	}
	return Validate(strings.TrimSpace(s), max)
}

func decodeObject(s string) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("reply is null")
	}
	return out, nil
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

var unquotedKey = regexp.MustCompile(`([{,])\s*([A-Za-z0-9_]+)\s*:`)

// repairJSON applies conservative fixes for common model formatting slips:
// prose around the object, trailing commas, unquoted keys and single quotes.
// It returns s unchanged when nothing applies.
func repairJSON(s string) string {
	repaired := s

	if start, end := strings.Index(repaired, "{"), strings.LastIndex(repaired, "}"); start >= 0 && end > start {
		repaired = repaired[start : end+1]
	}

	repaired = strings.ReplaceAll(repaired, ",\n}", "\n}")
	repaired = strings.ReplaceAll(repaired, ",\r\n}", "\r\n}")
	repaired = strings.ReplaceAll(repaired, ", }", " }")
	repaired = strings.ReplaceAll(repaired, ",}", "}")

	if !strings.Contains(repaired, `"`) && strings.Contains(repaired, `'`) {
		repaired = strings.ReplaceAll(repaired, `'`, `"`)
	}

	repaired = unquotedKey.ReplaceAllString(repaired, `$1"$2":`)

	return strings.TrimSpace(repaired)
}
