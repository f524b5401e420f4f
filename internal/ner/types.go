package ner

import "context"

// Entity is one grouped entity produced by the pipeline. Start and End are
// byte offsets into the input text; Word is the surface text of the span.
type Entity struct {
	Word  string  `json:"word"`
	Group string  `json:"entity_group"`
	Score float64 `json:"score"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

// Pipeline maps raw text to grouped entity predictions.
type Pipeline interface {
	Entities(ctx context.Context, text string) ([]Entity, error)
}
