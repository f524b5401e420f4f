package ner

import (
	"context"
	"sync"
)

// Extractor owns a lazily-opened Pipeline and reduces its predictions to the
// surface words. The pipeline is opened once on first use and reused for
// every subsequent call; an open failure is not retried.
type Extractor struct {
	open func() (Pipeline, error)

	once sync.Once
	p    Pipeline
	err  error
}

// NewExtractor returns an Extractor that obtains its pipeline from open on
// first use.
func NewExtractor(open func() (Pipeline, error)) *Extractor {
	return &Extractor{open: open}
}

// Words returns the surface text of each grouped entity the pipeline detects
// in text, in pipeline order. Pipeline errors propagate unmodified.
func (e *Extractor) Words(ctx context.Context, text string) ([]string, error) {
	entities, err := e.Entities(ctx, text)
	if err != nil {
		return nil, err
	}
	words := make([]string, len(entities))
	for i, ent := range entities {
		words[i] = ent.Word
	}
	return words, nil
}

// Entities runs the pipeline on text, opening it first if needed.
func (e *Extractor) Entities(ctx context.Context, text string) ([]Entity, error) {
	e.once.Do(func() {
		e.p, e.err = e.open()
	})
	if e.err != nil {
		return nil, e.err
	}
	return e.p.Entities(ctx, text)
}
