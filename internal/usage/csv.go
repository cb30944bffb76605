package usage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

const TimestampLayout = "2006-01-02 15:04:05"

var csvHeader = []string{
	"Timestamp",
	"Property ID",
	"Process Name",
	"Model",
	"Execution Time (s)",
	"Prompt Tokens",
	"Candidate Tokens",
	"Total Tokens",
}

// CSVSink appends records to a CSV file, writing the header only when the
// file does not exist yet.
type CSVSink struct {
	path string
	mu   sync.Mutex
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

func (s *CSVSink) Path() string {
	return s.path
}

func (s *CSVSink) Write(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create csv directory: %w", err)
		}
	}

	_, statErr := os.Stat(s.path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write csv header: %w", err)
		}
	}
	if err := w.Write(csvRow(rec)); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}

	w.Flush()
	return w.Error()
}

func csvRow(rec Record) []string {
	return []string{
		rec.Timestamp.Format(TimestampLayout),
		rec.PropertyID,
		rec.Process,
		rec.Model,
		strconv.FormatFloat(roundSeconds(rec.Elapsed.Seconds()), 'f', -1, 64),
		strconv.Itoa(rec.PromptTokens),
		strconv.Itoa(rec.CandidateTokens),
		strconv.Itoa(rec.TotalTokens),
	}
}

func roundSeconds(s float64) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(s, 'f', 3, 64), 64)
	return v
}
