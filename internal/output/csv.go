// Package output writes answer tables and publishes per-answer events.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Row is one answered question.
type Row struct {
	QID     string
	Answer  string
	Seconds float64
}

// WriteAnswers writes a "qid,answer" table in row order.
func WriteAnswers(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"qid", "answer"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.QID, r.Answer}); err != nil {
			return fmt.Errorf("write row %s: %w", r.QID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTimings writes a "qid,answer,time" table with times rounded to four
// decimal places.
func WriteTimings(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"qid", "answer", "time"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.QID, r.Answer, FormatSeconds(r.Seconds)}); err != nil {
			return fmt.Errorf("write row %s: %w", r.QID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatSeconds renders a duration in seconds with four decimals.
func FormatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 4, 64)
}

// WriteFile writes a table to path through a temporary file in the same
// directory, so a failed run never leaves a truncated table behind.
func WriteFile(path string, rows []Row, write func(io.Writer, []Row) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := write(tmp, rows); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
