package testdata

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed corpus.json
var corpusJSON []byte

// CorpusEntry is a labeled comment for classifier validation.
type CorpusEntry struct {
	Text            string   `json:"text"`
	ExpectedFlagged bool     `json:"expected_flagged"`
	ExpectedReasons []string `json:"expected_reasons"`
	Description     string   `json:"description"`
}

// LoadCorpus parses the embedded corpus.json and returns all entries.
func LoadCorpus() ([]CorpusEntry, error) {
	var entries []CorpusEntry
	if err := json.Unmarshal(corpusJSON, &entries); err != nil {
		return nil, fmt.Errorf("parse corpus.json: %w", err)
	}
	return entries, nil
}
