package ner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTokenizerFile(t *testing.T, vocab map[string]int, lowercase bool) string {
	t.Helper()
	payload := map[string]any{
		"model":      map[string]any{"vocab": vocab},
		"normalizer": map[string]any{"lowercase": lowercase},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "tokenizer.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func testVocab(extra ...string) map[string]int {
	vocab := map[string]int{"[UNK]": 0, "[CLS]": 1, "[SEP]": 2}
	for _, w := range extra {
		vocab[w] = len(vocab)
	}
	return vocab
}

func TestSplitWordsOffsets(t *testing.T) {
	words := splitWords("My name is John Smith.")
	require.Len(t, words, 5)
	require.Equal(t, wordSpan{Text: "John", Start: 11, End: 15}, words[3])
	require.Equal(t, wordSpan{Text: "Smith", Start: 16, End: 21}, words[4])
}

func TestSplitWordsEmptyAndPunctuation(t *testing.T) {
	require.Empty(t, splitWords(""))
	require.Empty(t, splitWords("... !!! ---"))
}

func TestTokenizerMissingSpecials(t *testing.T) {
	path := writeTokenizerFile(t, map[string]int{"hello": 0}, true)
	_, err := newTokenizer(path)
	require.ErrorContains(t, err, "missing")
}

func TestTokenizerEmptyVocab(t *testing.T) {
	path := writeTokenizerFile(t, map[string]int{}, true)
	_, err := newTokenizer(path)
	require.ErrorContains(t, err, "empty vocab")
}

func TestEncodeFramesSequence(t *testing.T) {
	path := writeTokenizerFile(t, testVocab("hello", "world"), true)
	tok, err := newTokenizer(path)
	require.NoError(t, err)

	enc := tok.Encode("Hello World")
	require.Equal(t, []int64{1, 3, 4, 2}, enc.InputIDs)
	require.Equal(t, []int64{1, 1, 1, 1}, enc.AttentionMask)
	require.Equal(t, []int{-1, 0, 1, -1}, enc.WordIndex)
	require.Len(t, enc.Words, 2)
}

func TestEncodeWordPieces(t *testing.T) {
	vocab := testVocab("play", "##ing")
	path := writeTokenizerFile(t, vocab, true)
	tok, err := newTokenizer(path)
	require.NoError(t, err)

	enc := tok.Encode("playing")
	// [CLS] play ##ing [SEP]; both pieces map to word 0.
	require.Equal(t, []int64{1, int64(vocab["play"]), int64(vocab["##ing"]), 2}, enc.InputIDs)
	require.Equal(t, []int{-1, 0, 0, -1}, enc.WordIndex)
}

func TestEncodeUnknownWord(t *testing.T) {
	path := writeTokenizerFile(t, testVocab("known"), true)
	tok, err := newTokenizer(path)
	require.NoError(t, err)

	enc := tok.Encode("zzzz known")
	require.Equal(t, []int64{1, 0, 3, 2}, enc.InputIDs)
}

func TestEncodeTruncatesAtMaxSeqLen(t *testing.T) {
	path := writeTokenizerFile(t, testVocab("hello"), true)
	tok, err := newTokenizer(path)
	require.NoError(t, err)

	enc := tok.Encode(strings.TrimSpace(strings.Repeat("hello ", 600)))
	require.Len(t, enc.InputIDs, maxSeqLen)
	require.Len(t, enc.AttentionMask, maxSeqLen)
	require.Len(t, enc.TypeIDs, maxSeqLen)
	require.Len(t, enc.WordIndex, maxSeqLen)
	// The sequence still ends with [SEP] mapped to no word.
	require.Equal(t, int64(2), enc.InputIDs[maxSeqLen-1])
	require.Equal(t, -1, enc.WordIndex[maxSeqLen-1])
	// 510 word tokens fit between [CLS] and [SEP].
	require.Equal(t, maxSeqLen-2-1, enc.WordIndex[maxSeqLen-2])
}

func TestEncodeOverlongWordCollapsesToUNK(t *testing.T) {
	path := writeTokenizerFile(t, testVocab("a"), true)
	tok, err := newTokenizer(path)
	require.NoError(t, err)

	enc := tok.Encode(strings.Repeat("a", maxWordLen+50))
	// [CLS] [UNK] [SEP]: the word is never pieced, despite a matching vocab entry.
	require.Equal(t, []int64{1, 0, 2}, enc.InputIDs)
	require.Equal(t, []int{-1, 0, -1}, enc.WordIndex)
}

func TestEncodeRespectsCase(t *testing.T) {
	path := writeTokenizerFile(t, testVocab("Paris"), false)
	tok, err := newTokenizer(path)
	require.NoError(t, err)

	enc := tok.Encode("Paris")
	require.Equal(t, []int64{1, 3, 2}, enc.InputIDs)
}
