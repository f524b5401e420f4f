package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tern/internal/ner"
)

var extractCmd = &cobra.Command{
	Use:   "extract [text]",
	Short: "Print the words of each entity found in the text",
	Long: `Run the NER pipeline over the given text (or stdin when no argument is
given) and print the surface text of each grouped entity, in pipeline
order.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	text, err := inputText(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	words, err := newExtractor().Words(ctx, text)
	if err != nil {
		return describeModelError(err)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(words)
	}
	if len(words) == 0 {
		fmt.Println("no entities found")
		return nil
	}
	fmt.Printf("found entities: %s\n", strings.Join(words, ", "))
	return nil
}

// inputText takes the positional argument or falls back to stdin.
func inputText(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func describeModelError(err error) error {
	if errors.Is(err, ner.ErrModelUnavailable) {
		name := cfg.Model
		if n, nameErr := resolveModelName(); nameErr == nil {
			name = n
		}
		return fmt.Errorf("%w\n\nThe configured model %q is not installed or failed to load.\nRun 'tern model download %s' to install it, or pass --model-dir.", err, name, name)
	}
	return err
}
