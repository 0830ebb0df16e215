// Package question defines the input data model: questions, the closed set of
// answering domains, and the letter range a question's choices allow.
package question

import (
	"errors"
	"fmt"
	"strconv"
)

// MaxChoices is the number of letters available for labelling choices.
const MaxChoices = 26

// DefaultAnswer is emitted whenever extraction or validation fails.
const DefaultAnswer = "A"

var (
	// ErrEmptyInput is returned when an input file holds no questions.
	ErrEmptyInput = errors.New("no questions in input")

	// ErrInvalidQuestion is returned for questions that break the data model.
	ErrInvalidQuestion = errors.New("invalid question")

	// ErrChoiceCount marks a question with no choices or more choices than
	// letters. Such a question is still answerable.
	ErrChoiceCount = errors.New("unusual choice count")
)

// Question is one multiple-choice item. It is not modified after loading.
type Question struct {
	QID      string   `json:"qid"`
	Question string   `json:"question"`
	Choices  []string `json:"choices"`
}

// Validate checks that the question can be keyed by qid.
func (q Question) Validate() error {
	if q.QID == "" {
		return fmt.Errorf("%w: empty qid", ErrInvalidQuestion)
	}
	return nil
}

// CheckChoices reports a choice count outside 1..26. MaxLetter and Label
// still give such a question a usable letter range and labels.
func (q Question) CheckChoices() error {
	if len(q.Choices) == 0 || len(q.Choices) > MaxChoices {
		return fmt.Errorf("%w: %s has %d choices (want 1..%d)", ErrChoiceCount, q.QID, len(q.Choices), MaxChoices)
	}
	return nil
}

// MaxLetter returns the highest valid answer letter for this question.
func (q Question) MaxLetter() byte {
	return MaxLetter(len(q.Choices))
}

// MaxLetter returns 'A'+n-1, clamped to the A..Z range.
func MaxLetter(n int) byte {
	switch {
	case n < 1:
		return 'A'
	case n > MaxChoices:
		return 'Z'
	default:
		return byte('A' + n - 1)
	}
}

// Label returns the display label of the i-th (0-based) choice. Indexes past
// the alphabet fall back to the decimal index.
func Label(i int) string {
	if i >= 0 && i < MaxChoices {
		return string(rune('A' + i))
	}
	return strconv.Itoa(i)
}

// IsLetter reports whether s is a single uppercase Latin letter.
func IsLetter(s string) bool {
	return len(s) == 1 && s[0] >= 'A' && s[0] <= 'Z'
}

// InRange reports whether s is a letter no greater than max.
func InRange(s string, max byte) bool {
	return IsLetter(s) && s[0] <= max
}
