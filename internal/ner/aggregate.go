package ner

import "strings"

// groupEntities merges per-word BIO labels into grouped entities. A B- label
// opens a group, an I- label of the same type extends it, and anything else
// closes the open group. A bare I- with no open group of its type starts one,
// matching the lenient grouping of common NER pipelines. Group scores are the
// mean of the member word scores, and the word text is the span of the
// original input covering the group.
func groupEntities(text string, words []wordSpan, labels []string, scores []float64) []Entity {
	entities := make([]Entity, 0, 4)
	var open *Entity
	var sum float64
	var n int

	flush := func() {
		if open == nil {
			return
		}
		open.Word = text[open.Start:open.End]
		open.Score = sum / float64(n)
		entities = append(entities, *open)
		open, sum, n = nil, 0, 0
	}

	for i := range words {
		prefix, group, ok := splitBIO(labels[i])
		if !ok {
			flush()
			continue
		}
		if prefix == "I" && open != nil && open.Group == group {
			open.End = words[i].End
			sum += scores[i]
			n++
			continue
		}
		flush()
		open = &Entity{Group: group, Start: words[i].Start, End: words[i].End}
		sum, n = scores[i], 1
	}
	flush()
	return entities
}

// splitBIO parses a "B-PER" style label. "O", empty, and malformed labels
// report ok=false.
func splitBIO(label string) (prefix, group string, ok bool) {
	prefix, group, found := strings.Cut(label, "-")
	if !found || group == "" {
		return "", "", false
	}
	if prefix != "B" && prefix != "I" {
		return "", "", false
	}
	return prefix, canonicalGroup(group), true
}

// canonicalGroup normalizes the label-set spelling differences between model
// checkpoints (PER vs PERSON, LOC vs GPE).
func canonicalGroup(g string) string {
	switch strings.ToUpper(g) {
	case "PER", "PERSON":
		return "PER"
	case "ORG":
		return "ORG"
	case "LOC", "GPE":
		return "LOC"
	case "MISC":
		return "MISC"
	default:
		return strings.ToUpper(g)
	}
}
