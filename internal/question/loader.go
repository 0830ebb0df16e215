package question

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mcqrouter/internal/logging"
)

// Decode reads a JSON array of questions. Empty and duplicate qids are
// rejected because results are keyed by qid. A question with an unusual
// choice count is kept and logged; its answers are clamped to the letters
// it allows. logger may be nil.
func Decode(r io.Reader, logger *logging.Logger) ([]Question, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	var qs []Question
	if err := json.NewDecoder(r).Decode(&qs); err != nil {
		return nil, fmt.Errorf("failed to decode questions: %w", err)
	}
	if len(qs) == 0 {
		return nil, ErrEmptyInput
	}

	seen := make(map[string]struct{}, len(qs))
	for i, q := range qs {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		if _, dup := seen[q.QID]; dup {
			return nil, fmt.Errorf("%w: duplicate qid %s", ErrInvalidQuestion, q.QID)
		}
		seen[q.QID] = struct{}{}

		if err := q.CheckChoices(); errors.Is(err, ErrChoiceCount) {
			logger.Warn(context.Background(), "question has an unusual choice count",
				zap.String("qid", q.QID),
				zap.Int("choices", len(q.Choices)),
				zap.String("max_letter", string(q.MaxLetter())),
			)
		}
	}
	return qs, nil
}

// LoadFile reads questions from a JSON file.
func LoadFile(path string, logger *logging.Logger) ([]Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f, logger)
}
