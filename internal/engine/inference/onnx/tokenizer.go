package onnx

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	defaultMaxSeqLen = 256
	maxWordRunes     = 200
)

// batch is a padded, flattened set of encoded texts. Every slice has
// length size*seqLen.
type batch struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	size          int64
	seqLen        int64
}

// wordPiece is an uncased BERT tokenizer: basic splitting followed by
// greedy longest-match WordPiece.
type wordPiece struct {
	vocab  *vocab
	maxLen int
}

func newWordPiece(v *vocab, maxLen int) *wordPiece {
	if maxLen < 3 {
		maxLen = defaultMaxSeqLen
	}
	return &wordPiece{vocab: v, maxLen: maxLen}
}

// encode returns [CLS] tokens... [SEP], truncated to maxLen ids.
func (w *wordPiece) encode(text string) []int64 {
	ids := make([]int64, 0, w.maxLen)
	ids = append(ids, w.vocab.cls)
	limit := w.maxLen - 1
	for _, word := range splitWords(text) {
		for _, piece := range w.pieces(word) {
			if len(ids) == limit {
				return append(ids, w.vocab.sep)
			}
			ids = append(ids, w.vocab.id(piece))
		}
	}
	return append(ids, w.vocab.sep)
}

// encodeBatch encodes texts and pads them to the longest sequence.
func (w *wordPiece) encodeBatch(texts []string) batch {
	if len(texts) == 0 {
		return batch{}
	}

	encoded := make([][]int64, len(texts))
	longest := 0
	for i, t := range texts {
		encoded[i] = w.encode(t)
		longest = max(longest, len(encoded[i]))
	}

	b := batch{size: int64(len(texts)), seqLen: int64(longest)}
	total := len(texts) * longest
	b.inputIDs = make([]int64, total)
	b.attentionMask = make([]int64, total)
	b.tokenTypeIDs = make([]int64, total)
	for i, ids := range encoded {
		row := i * longest
		for j, id := range ids {
			b.inputIDs[row+j] = id
			b.attentionMask[row+j] = 1
		}
		for j := len(ids); j < longest; j++ {
			b.inputIDs[row+j] = w.vocab.pad
		}
	}
	return b
}

// pieces splits one word into WordPiece sub-tokens, or [UNK] when no
// decomposition exists.
func (w *wordPiece) pieces(word string) []string {
	runes := []rune(word)
	if len(runes) > maxWordRunes {
		return []string{"[UNK]"}
	}

	var out []string
	for start := 0; start < len(runes); {
		end := len(runes)
		var match string
		for ; end > start; end-- {
			cand := string(runes[start:end])
			if start > 0 {
				cand = "##" + cand
			}
			if w.vocab.has(cand) {
				match = cand
				break
			}
		}
		if match == "" {
			return []string{"[UNK]"}
		}
		out = append(out, match)
		start = end
	}
	return out
}

// splitWords performs BERT basic tokenization in a single pass: drop control
// characters, lowercase, strip accents, split on whitespace, and emit each
// punctuation mark and CJK ideograph as its own word.
func splitWords(text string) []string {
	text = norm.NFD.String(strings.ToLower(text))

	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}

	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || isControl(r):
		case unicode.Is(unicode.Mn, r):
		case isSpace(r):
			flush()
		case isPunct(r) || isCJK(r):
			flush()
			words = append(words, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

// isPunct treats all non-alphanumeric ASCII symbols as punctuation, as BERT does.
func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han) && r >= 0x3400
}
