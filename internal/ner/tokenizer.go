package ner

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"
)

const (
	maxSeqLen  = 512
	maxWordLen = 100
)

// wordSpan is a whitespace/punctuation-delimited word with byte offsets into
// the original text.
type wordSpan struct {
	Text       string
	Start, End int
}

// Encoding is the model-ready form of one input text. WordIndex maps each
// sub-token position back to its word in Words; special tokens map to -1.
type Encoding struct {
	InputIDs      []int64
	AttentionMask []int64
	TypeIDs       []int64
	WordIndex     []int
	Words         []wordSpan
}

// tokenizer is a WordPiece tokenizer configured from a HuggingFace
// tokenizer.json file.
type tokenizer struct {
	vocab      map[string]int
	contPrefix string
	lowercase  bool
	unkID      int
	clsID      int
	sepID      int
}

type tokenizerFile struct {
	Model struct {
		Vocab                   map[string]int `json:"vocab"`
		ContinuingSubwordPrefix string         `json:"continuing_subword_prefix"`
	} `json:"model"`
	Normalizer struct {
		Lowercase *bool `json:"lowercase"`
	} `json:"normalizer"`
}

func newTokenizer(path string) (*tokenizer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tf tokenizerFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		return nil, fmt.Errorf("parse tokenizer.json: %w", err)
	}
	if len(tf.Model.Vocab) == 0 {
		return nil, fmt.Errorf("tokenizer.json has an empty vocab")
	}
	t := &tokenizer{
		vocab:      tf.Model.Vocab,
		contPrefix: tf.Model.ContinuingSubwordPrefix,
		lowercase:  true,
	}
	if t.contPrefix == "" {
		t.contPrefix = "##"
	}
	if tf.Normalizer.Lowercase != nil {
		t.lowercase = *tf.Normalizer.Lowercase
	}
	for name, dst := range map[string]*int{"[UNK]": &t.unkID, "[CLS]": &t.clsID, "[SEP]": &t.sepID} {
		id, ok := t.vocab[name]
		if !ok {
			return nil, fmt.Errorf("tokenizer vocab is missing %s", name)
		}
		*dst = id
	}
	return t, nil
}

// Encode splits text into words, expands each word into WordPiece ids and
// frames the sequence with [CLS] and [SEP]. Sequences are truncated to the
// model's maximum length.
func (t *tokenizer) Encode(text string) *Encoding {
	words := splitWords(text)
	enc := &Encoding{
		InputIDs:      []int64{int64(t.clsID)},
		AttentionMask: []int64{1},
		TypeIDs:       []int64{0},
		WordIndex:     []int{-1},
		Words:         words,
	}
	for wi, w := range words {
		for _, id := range t.pieces(w.Text) {
			if len(enc.InputIDs) >= maxSeqLen-1 {
				break
			}
			enc.InputIDs = append(enc.InputIDs, int64(id))
			enc.AttentionMask = append(enc.AttentionMask, 1)
			enc.TypeIDs = append(enc.TypeIDs, 0)
			enc.WordIndex = append(enc.WordIndex, wi)
		}
		if len(enc.InputIDs) >= maxSeqLen-1 {
			break
		}
	}
	enc.InputIDs = append(enc.InputIDs, int64(t.sepID))
	enc.AttentionMask = append(enc.AttentionMask, 1)
	enc.TypeIDs = append(enc.TypeIDs, 0)
	enc.WordIndex = append(enc.WordIndex, -1)
	return enc
}

// pieces runs greedy longest-match-first WordPiece over a single word. A word
// that cannot be fully covered by the vocab collapses to [UNK].
func (t *tokenizer) pieces(word string) []int {
	if t.lowercase {
		word = strings.ToLower(word)
	}
	runes := []rune(word)
	if len(runes) == 0 || len(runes) > maxWordLen {
		return []int{t.unkID}
	}
	if id, ok := t.vocab[string(runes)]; ok {
		return []int{id}
	}
	ids := make([]int, 0, 4)
	for start := 0; start < len(runes); {
		match := -1
		end := len(runes)
		for ; end > start; end-- {
			piece := string(runes[start:end])
			if start > 0 {
				piece = t.contPrefix + piece
			}
			if id, ok := t.vocab[piece]; ok {
				match = id
				break
			}
		}
		if match == -1 {
			return []int{t.unkID}
		}
		ids = append(ids, match)
		start = end
	}
	return ids
}

// splitWords breaks text into runs of letters and digits, keeping byte
// offsets so entity spans can be mapped back to the original input.
func splitWords(text string) []wordSpan {
	words := make([]wordSpan, 0, 16)
	start := -1
	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			words = append(words, wordSpan{Text: text[start:i], Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		words = append(words, wordSpan{Text: text[start:], Start: start, End: len(text)})
	}
	return words
}
