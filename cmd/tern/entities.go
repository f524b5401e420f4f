package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tern/internal/ner"
)

var flagMinScore float64

var entitiesCmd = &cobra.Command{
	Use:   "entities [text]",
	Short: "Show every detected entity with label, span and score",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runEntities,
}

func init() {
	entitiesCmd.Flags().Float64Var(&flagMinScore, "min-score", -1, "drop entities below this confidence (default from config)")
}

func runEntities(cmd *cobra.Command, args []string) error {
	text, err := inputText(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	entities, err := newExtractor().Entities(ctx, text)
	if err != nil {
		return describeModelError(err)
	}

	minScore := cfg.MinScore
	if flagMinScore >= 0 {
		minScore = flagMinScore
	}
	if minScore > 0 {
		kept := entities[:0]
		for _, e := range entities {
			if e.Score >= minScore {
				kept = append(kept, e)
			}
		}
		entities = kept
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entities)
	}

	if len(entities) == 0 {
		fmt.Println("no entities found")
		return nil
	}
	printEntityTable(entities)
	return nil
}

func printEntityTable(entities []ner.Entity) {
	fmt.Printf("%-4s %-8s %-30s %-6s %-6s %s\n", "#", "GROUP", "WORD", "START", "END", "SCORE")
	for i, e := range entities {
		word := e.Word
		if len(word) > 28 {
			word = word[:25] + "..."
		}
		fmt.Printf("%-4d %-8s %-30s %-6d %-6d %.2f\n", i+1, e.Group, word, e.Start, e.End, e.Score)
	}
}
