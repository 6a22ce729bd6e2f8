package onnx

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// vocab is a WordPiece vocabulary. A token's ID is its 0-indexed line number.
type vocab struct {
	ids map[string]int64

	pad int64
	unk int64
	cls int64
	sep int64
}

func loadVocab(path string) (*vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	defer f.Close()

	v := &vocab{ids: make(map[string]int64, 32000)}
	scanner := bufio.NewScanner(f)
	var n int64
	for scanner.Scan() {
		v.ids[scanner.Text()] = n
		n++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vocab: read %s: %w", path, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("vocab: file is empty: %s", path)
	}

	for tok, dst := range map[string]*int64{
		"[PAD]": &v.pad, "[UNK]": &v.unk, "[CLS]": &v.cls, "[SEP]": &v.sep,
	} {
		id, ok := v.ids[tok]
		if !ok {
			return nil, fmt.Errorf("vocab: missing special token %s", tok)
		}
		*dst = id
	}
	return v, nil
}

func (v *vocab) id(token string) int64 {
	if id, ok := v.ids[token]; ok {
		return id
	}
	return v.unk
}

func (v *vocab) has(token string) bool {
	_, ok := v.ids[token]
	return ok
}

func (v *vocab) size() int { return len(v.ids) }

// loadLabels reads one class label per line, skipping blank lines.
func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("labels: %w", err)
	}
	var labels []string
	for _, line := range strings.Split(string(data), "\n") {
		if l := strings.TrimSpace(line); l != "" {
			labels = append(labels, l)
		}
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels: file is empty: %s", path)
	}
	return labels, nil
}
