package onnx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testVocabTokens is a tiny vocabulary; IDs are line numbers.
var testVocabTokens = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]", // 0-3
	"click", "here", "for", "deals", // 4-7
	"!", ".", ":", "/", // 8-11
	"spam", "##my", "cafe", "un", "##believ", "##able", // 12-17
	"日", "本", // 18-19
}

func writeVocab(t *testing.T, tokens []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(tokens, "\n")+"\n"), 0o644))
	return path
}

func testTokenizer(t *testing.T, maxLen int) *wordPiece {
	t.Helper()
	v, err := loadVocab(writeVocab(t, testVocabTokens))
	require.NoError(t, err)
	return newWordPiece(v, maxLen)
}

func TestLoadVocab(t *testing.T) {
	v, err := loadVocab(writeVocab(t, testVocabTokens))
	require.NoError(t, err)

	assert.Equal(t, len(testVocabTokens), v.size())
	assert.Equal(t, int64(0), v.pad)
	assert.Equal(t, int64(1), v.unk)
	assert.Equal(t, int64(2), v.cls)
	assert.Equal(t, int64(3), v.sep)
	assert.Equal(t, int64(1), v.id("missing"))
}

func TestLoadVocabErrors(t *testing.T) {
	_, err := loadVocab(filepath.Join(t.TempDir(), "none.txt"))
	assert.Error(t, err)

	_, err = loadVocab(writeVocab(t, []string{"[PAD]", "[UNK]", "[CLS]"}))
	assert.ErrorContains(t, err, "[SEP]")
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"", nil},
		{"Click HERE", []string{"click", "here"}},
		{"deals!!", []string{"deals", "!", "!"}},
		{"http://bit.ly", []string{"http", ":", "/", "/", "bit", ".", "ly"}},
		{"Café\tRÉSUMÉ", []string{"cafe", "resume"}},
		{"a\x00b", []string{"ab"}},
		{"日本語", []string{"日", "本", "語"}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, splitWords(tt.text))
		})
	}
}

func TestEncode(t *testing.T) {
	tok := testTokenizer(t, 0)

	tests := []struct {
		name string
		text string
		want []int64
	}{
		{"empty", "", []int64{2, 3}},
		{"words", "Click here for deals!", []int64{2, 4, 5, 6, 7, 8, 3}},
		{"subwords", "spammy unbelievable", []int64{2, 12, 13, 15, 16, 17, 3}},
		{"unknown word", "zebra", []int64{2, 1, 3}},
		{"accents", "CAFÉ", []int64{2, 14, 3}},
		{"cjk", "日本", []int64{2, 18, 19, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tok.encode(tt.text))
		})
	}
}

func TestEncodeTruncates(t *testing.T) {
	tok := testTokenizer(t, 5)

	ids := tok.encode("click here for deals click here")
	assert.Equal(t, []int64{2, 4, 5, 6, 3}, ids)
}

func TestEncodeLongWordIsUnknown(t *testing.T) {
	tok := testTokenizer(t, 0)
	assert.Equal(t, []int64{2, 1, 3}, tok.encode(strings.Repeat("a", maxWordRunes+1)))
}

func TestEncodeBatch(t *testing.T) {
	tok := testTokenizer(t, 0)

	b := tok.encodeBatch([]string{"click", "click here for deals"})
	require.Equal(t, int64(2), b.size)
	require.Equal(t, int64(6), b.seqLen)

	assert.Equal(t, []int64{
		2, 4, 3, 0, 0, 0,
		2, 4, 5, 6, 7, 3,
	}, b.inputIDs)
	assert.Equal(t, []int64{
		1, 1, 1, 0, 0, 0,
		1, 1, 1, 1, 1, 1,
	}, b.attentionMask)
	assert.Equal(t, make([]int64, 12), b.tokenTypeIDs)

	assert.Equal(t, batch{}, tok.encodeBatch(nil))
}
