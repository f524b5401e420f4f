package ner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupEntitiesMergesBIO(t *testing.T) {
	text := "John Smith of Acme"
	words := splitWords(text)
	labels := []string{"B-PER", "I-PER", "O", "B-ORG"}
	scores := []float64{0.9, 0.7, 0.99, 0.85}

	entities := groupEntities(text, words, labels, scores)
	require.Len(t, entities, 2)

	require.Equal(t, "John Smith", entities[0].Word)
	require.Equal(t, "PER", entities[0].Group)
	require.Equal(t, 0, entities[0].Start)
	require.Equal(t, 10, entities[0].End)
	require.InDelta(t, 0.8, entities[0].Score, 1e-9)

	require.Equal(t, "Acme", entities[1].Word)
	require.Equal(t, "ORG", entities[1].Group)
}

func TestGroupEntitiesBareContinuationOpensGroup(t *testing.T) {
	text := "visit Berlin"
	words := splitWords(text)
	entities := groupEntities(text, words, []string{"O", "I-LOC"}, []float64{0.9, 0.8})
	require.Len(t, entities, 1)
	require.Equal(t, "Berlin", entities[0].Word)
	require.Equal(t, "LOC", entities[0].Group)
}

func TestGroupEntitiesAdjacentBStartsNewGroup(t *testing.T) {
	text := "Cupertino California"
	words := splitWords(text)
	entities := groupEntities(text, words, []string{"B-LOC", "B-LOC"}, []float64{0.9, 0.9})
	require.Len(t, entities, 2)
	require.Equal(t, "Cupertino", entities[0].Word)
	require.Equal(t, "California", entities[1].Word)
}

func TestGroupEntitiesTypeChangeSplitsGroup(t *testing.T) {
	text := "Jane Acme"
	words := splitWords(text)
	entities := groupEntities(text, words, []string{"B-PER", "I-ORG"}, []float64{0.9, 0.9})
	require.Len(t, entities, 2)
	require.Equal(t, "PER", entities[0].Group)
	require.Equal(t, "ORG", entities[1].Group)
}

func TestGroupEntitiesNoEntities(t *testing.T) {
	text := "nothing here"
	words := splitWords(text)
	entities := groupEntities(text, words, []string{"O", "O"}, []float64{0.9, 0.9})
	require.Empty(t, entities)
}

func TestSplitBIO(t *testing.T) {
	cases := []struct {
		label  string
		prefix string
		group  string
		ok     bool
	}{
		{"B-PER", "B", "PER", true},
		{"I-ORG", "I", "ORG", true},
		{"B-PERSON", "B", "PER", true},
		{"I-GPE", "I", "LOC", true},
		{"O", "", "", false},
		{"", "", "", false},
		{"X-PER", "", "", false},
		{"B-", "", "", false},
	}
	for _, c := range cases {
		prefix, group, ok := splitBIO(c.label)
		require.Equal(t, c.ok, ok, "label %q", c.label)
		if c.ok {
			require.Equal(t, c.prefix, prefix, "label %q", c.label)
			require.Equal(t, c.group, group, "label %q", c.label)
		}
	}
}
