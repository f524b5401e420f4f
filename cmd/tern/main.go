package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tern/internal/config"
	"tern/internal/logging"
	"tern/internal/models"
	"tern/internal/ner"
)

var version = "dev"

var (
	flagConfig   string
	flagLogLevel string
	flagModelDir string
	flagJSON     bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "tern",
	Short:         "Extract named entities from text with a local ONNX model",
	Long: `tern runs a pretrained token-classification model over natural-language
text and reports the grouped named entities it finds, in the order the
model produced them.

Examples:
  tern extract "Apple was founded by Steve Jobs in Cupertino, California."
  echo "Ada Lovelace worked with Charles Babbage." | tern extract
  tern entities --json "Grace Hopper joined the Navy."
  tern model download ner_en`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagLogLevel != "" {
			cfg.LogLevel = flagLogLevel
		}
		logger, err = logging.New(cfg.LogLevel, cfg.LogFile)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tern:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.tern/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override configured log level")
	rootCmd.PersistentFlags().StringVar(&flagModelDir, "model-dir", "", "model directory (overrides registry lookup)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit JSON output")
	rootCmd.AddCommand(extractCmd, entitiesCmd, modelCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tern version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("tern", version)
	},
}

// resolveModelDir picks the model directory: explicit flag first, then the
// configured models root joined with the resolved model name.
func resolveModelDir() (string, error) {
	if flagModelDir != "" {
		return flagModelDir, nil
	}
	root := cfg.ModelsDir
	if root == "" {
		r, err := models.DefaultRoot()
		if err != nil {
			return "", err
		}
		root = r
	}
	name, err := resolveModelName()
	if err != nil {
		return "", err
	}
	return models.InstallPath(root, name), nil
}

// resolveModelName returns the configured model, falling back to the
// registry's default entry when none is configured.
func resolveModelName() (string, error) {
	if cfg.Model != "" {
		return cfg.Model, nil
	}
	reg, err := models.LoadRegistry()
	if err != nil {
		return "", err
	}
	m, ok := reg.DefaultModel()
	if !ok {
		return "", fmt.Errorf("model registry is empty")
	}
	return m.Name, nil
}

// newExtractor builds the lazily-opened extractor shared by the text
// commands. The pipeline is constructed once on first use.
func newExtractor() *ner.Extractor {
	return ner.NewExtractor(func() (ner.Pipeline, error) {
		dir, err := resolveModelDir()
		if err != nil {
			return nil, err
		}
		return ner.NewModelPipeline(ner.PipelineConfig{
			ModelDir: dir,
			MaxBytes: cfg.MaxBytes,
			Logger:   logger,
		}), nil
	})
}
