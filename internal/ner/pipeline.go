package ner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrModelUnavailable is returned when the model assets cannot be loaded.
// The underlying cause is logged once at load time and cached.
var ErrModelUnavailable = errors.New("ner model unavailable")

// PipelineConfig configures a ModelPipeline. Zero values take defaults.
type PipelineConfig struct {
	// ModelDir holds model.onnx, labels.json and tokenizer.json.
	ModelDir string
	// MaxBytes caps the input size; longer texts yield no entities.
	MaxBytes int
	// Logger receives load and timing events. Defaults to zap.NewNop().
	Logger *zap.Logger
}

// ModelPipeline is a Pipeline backed by a local ONNX token-classification
// model. Assets load on first use and the load result is cached, including
// failure.
type ModelPipeline struct {
	cfg PipelineConfig
	log *zap.Logger

	once    sync.Once
	loadErr error
	labels  map[int]string
	tok     *tokenizer
	sess    session
}

// NewModelPipeline returns an unloaded pipeline for the model in
// cfg.ModelDir.
func NewModelPipeline(cfg PipelineConfig) *ModelPipeline {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 32 * 1024
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &ModelPipeline{cfg: cfg, log: log}
}

func (p *ModelPipeline) load() error {
	p.once.Do(func() {
		p.loadErr = p.loadOnce()
		if p.loadErr != nil {
			p.log.Warn("ner model load failed", zap.String("dir", p.cfg.ModelDir), zap.Error(p.loadErr))
		}
	})
	return p.loadErr
}

func (p *ModelPipeline) loadOnce() error {
	dir := p.cfg.ModelDir
	modelPath := filepath.Join(dir, "model.onnx")
	if _, err := os.Stat(modelPath); err != nil {
		return fmt.Errorf("model missing: %w", err)
	}
	labels, err := loadLabels(filepath.Join(dir, "labels.json"))
	if err != nil {
		return fmt.Errorf("load labels: %w", err)
	}
	tok, err := newTokenizer(filepath.Join(dir, "tokenizer.json"))
	if err != nil {
		return fmt.Errorf("load tokenizer: %w", err)
	}
	sess, err := openSession(modelPath)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	p.labels = labels
	p.tok = tok
	p.sess = sess
	p.log.Info("ner model loaded", zap.String("dir", dir), zap.Int("labels", len(labels)))
	return nil
}

// Entities tokenizes text, runs the model and merges the BIO predictions
// into grouped entities in input order.
func (p *ModelPipeline) Entities(ctx context.Context, text string) ([]Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(text) == 0 || len(text) > p.cfg.MaxBytes {
		return nil, nil
	}
	if err := p.load(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	enc := p.tok.Encode(text)
	if len(enc.Words) == 0 {
		return nil, nil
	}

	start := time.Now()
	logits, err := p.sess.Run(ctx, enc.InputIDs, enc.AttentionMask, enc.TypeIDs)
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}
	wordLabels, wordScores := decode(enc, logits, p.labels)
	entities := groupEntities(text, enc.Words, wordLabels, wordScores)
	p.log.Debug("ner inference",
		zap.Int("words", len(enc.Words)),
		zap.Int("entities", len(entities)),
		zap.Duration("took", time.Since(start)))
	return entities, nil
}

// Close releases the inference session if one was loaded.
func (p *ModelPipeline) Close() error {
	if p.sess == nil {
		return nil
	}
	return p.sess.Close()
}

// loadLabels reads a labels.json mapping of class index to BIO label, keyed
// by stringified index as exported by the HuggingFace config.
func loadLabels(path string) (map[int]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var byName map[string]string
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil, fmt.Errorf("parse labels.json: %w", err)
	}
	if len(byName) == 0 {
		return nil, fmt.Errorf("labels.json is empty")
	}
	labels := make(map[int]string, len(byName))
	for k, v := range byName {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("labels.json key %q is not an index", k)
		}
		labels[idx] = v
	}
	return labels, nil
}
