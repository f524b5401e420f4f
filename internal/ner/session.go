package ner

import "context"

// session runs the token-classification model over one encoded sequence and
// returns per-token logits, shape [seq_len][num_labels].
type session interface {
	Run(ctx context.Context, inputIDs, attentionMask, typeIDs []int64) ([][]float32, error)
	Close() error
}
