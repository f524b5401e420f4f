package ner

import "math"

// softmax converts one row of logits into probabilities, shifted by the max
// logit for numerical stability.
func softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	probs := make([]float64, len(logits))
	sum := 0.0
	for i, v := range logits {
		probs[i] = math.Exp(float64(v - max))
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// decode reduces per-token logits to one label and confidence per word. The
// first sub-token of each word decides; continuation pieces and the special
// tokens are skipped.
func decode(enc *Encoding, logits [][]float32, labels map[int]string) ([]string, []float64) {
	wordLabels := make([]string, len(enc.Words))
	wordScores := make([]float64, len(enc.Words))
	for i := range wordLabels {
		wordLabels[i] = "O"
	}
	seen := make(map[int]bool, len(enc.Words))
	for pos, wi := range enc.WordIndex {
		if wi < 0 || seen[wi] || pos >= len(logits) {
			continue
		}
		seen[wi] = true
		probs := softmax(logits[pos])
		best, bestProb := 0, 0.0
		for k, p := range probs {
			if p > bestProb {
				best, bestProb = k, p
			}
		}
		if label, ok := labels[best]; ok {
			wordLabels[wi] = label
		}
		wordScores[wi] = bestProb
	}
	return wordLabels, wordScores
}
