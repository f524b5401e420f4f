package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tern/internal/models"
	"tern/internal/ner"
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Manage NER model assets",
}

var flagDownloadAll bool
var flagRemoveYes bool

func init() {
	modelDownloadCmd.Flags().BoolVar(&flagDownloadAll, "all", false, "download every default model")
	modelRemoveCmd.Flags().BoolVarP(&flagRemoveYes, "yes", "y", false, "skip the confirmation prompt")
	modelCmd.AddCommand(modelListCmd, modelInfoCmd, modelDownloadCmd, modelRemoveCmd, modelVerifyCmd)
}

// modelEnv loads the registry and resolves the install root.
func modelEnv() (models.Registry, string, error) {
	reg, err := models.LoadRegistry()
	if err != nil {
		return models.Registry{}, "", err
	}
	root := cfg.ModelsDir
	if root == "" {
		root, err = models.DefaultRoot()
		if err != nil {
			return models.Registry{}, "", err
		}
	}
	return reg, root, nil
}

var modelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available models and their install status",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, root, err := modelEnv()
		if err != nil {
			return err
		}
		fmt.Printf("%-10s %-6s %-8s %-14s %s\n", "NAME", "LANG", "SIZE", "STATUS", "TYPES")
		installed := 0
		for _, m := range reg.Models {
			status := "not installed"
			if models.IsInstalled(root, m) {
				status = "installed"
				installed++
			}
			fmt.Printf("%-10s %-6s %-8s %-14s %s\n", m.Name, m.Language, humanBytes(m.SizeBytes), status, strings.Join(m.EntityTypes, ", "))
		}
		fmt.Printf("\nInstalled: %d/%d models (root: %s)\n", installed, len(reg.Models), root)
		return nil
	},
}

var modelInfoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show the registry entry for a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, root, err := modelEnv()
		if err != nil {
			return err
		}
		m, ok := reg.Find(args[0])
		if !ok {
			return fmt.Errorf("model %q not found in registry", args[0])
		}
		status := "not installed"
		if models.IsInstalled(root, m) {
			status = "installed"
		}
		fmt.Printf("%s (%s)\n", m.DisplayName, m.Name)
		fmt.Printf("  Status:        %s\n", status)
		fmt.Printf("  Version:       %s\n", m.Version)
		fmt.Printf("  Language:      %s\n", m.Language)
		fmt.Printf("  Size:          %s\n", humanBytes(m.SizeBytes))
		fmt.Printf("  Location:      %s\n", models.InstallPath(root, m.Name))
		fmt.Printf("  Entity types:  %s\n", strings.Join(m.EntityTypes, ", "))
		fmt.Printf("  Architecture:  %s\n", m.Architecture)
		fmt.Printf("  License:       %s\n", m.License)
		fmt.Printf("  URL:           %s\n", m.URL)
		fmt.Printf("  Checksum:      %s\n", m.Checksum)
		return nil
	},
}

var modelDownloadCmd = &cobra.Command{
	Use:   "download [name]",
	Short: "Download and install a model",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, root, err := modelEnv()
		if err != nil {
			return err
		}
		var selected []models.Spec
		switch {
		case flagDownloadAll:
			for _, m := range reg.Models {
				if m.Default {
					selected = append(selected, m)
				}
			}
		case len(args) == 1:
			m, ok := reg.Find(args[0])
			if !ok {
				return fmt.Errorf("model %q not found in registry", args[0])
			}
			selected = append(selected, m)
		default:
			return fmt.Errorf("usage: tern model download <name> or tern model download --all")
		}

		dl := models.NewDownloader(logger)
		for _, m := range selected {
			fmt.Printf("Downloading %s v%s from %s\n", m.Name, m.Version, m.URL)
			lastUpdate := time.Time{}
			err := dl.Install(cmd.Context(), m, root, func(p models.Progress) {
				if time.Since(lastUpdate) < 120*time.Millisecond && p.Total > 0 {
					return
				}
				lastUpdate = time.Now()
				pct := 0.0
				if p.Total > 0 {
					pct = float64(p.Downloaded) * 100 / float64(p.Total)
				}
				fmt.Printf("\r%6.2f%% | %s / %s | %.2f MB/s | ETA %s   ", pct, humanBytes(p.Downloaded), humanBytes(p.Total), p.SpeedMBps, p.ETA.Truncate(time.Second))
			})
			fmt.Println()
			if err != nil {
				return err
			}
			if err := checkModelLoads(cmd.Context(), models.InstallPath(root, m.Name)); err != nil {
				return fmt.Errorf("installed model failed validation: %w", err)
			}
			fmt.Printf("Model %s installed\n", m.Name)
		}
		return nil
	},
}

var modelRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete an installed model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, root, err := modelEnv()
		if err != nil {
			return err
		}
		m, ok := reg.Find(args[0])
		if !ok {
			return fmt.Errorf("model %q not found in registry", args[0])
		}
		loc := models.InstallPath(root, m.Name)
		if _, err := os.Stat(loc); errors.Is(err, os.ErrNotExist) {
			fmt.Printf("Model %s is not installed\n", m.Name)
			return nil
		}
		if !flagRemoveYes {
			fmt.Printf("Remove model %s (%s) at %s? (y/N): ", m.Name, humanBytes(m.SizeBytes), loc)
			r := bufio.NewReader(os.Stdin)
			resp, _ := r.ReadString('\n')
			resp = strings.TrimSpace(strings.ToLower(resp))
			if resp != "y" && resp != "yes" {
				fmt.Println("cancelled")
				return nil
			}
		}
		if err := os.RemoveAll(loc); err != nil {
			return err
		}
		fmt.Printf("Model %s removed\n", m.Name)
		return nil
	},
}

var modelVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify checksums and loadability of installed models",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, root, err := modelEnv()
		if err != nil {
			return err
		}
		installed, failures := 0, 0
		for _, m := range reg.Models {
			if !models.IsInstalled(root, m) {
				continue
			}
			installed++
			dir := models.InstallPath(root, m.Name)
			fmt.Println(m.Name)
			if data, err := os.ReadFile(dir + "/.checksum"); err == nil {
				if strings.TrimSpace(string(data)) == m.Checksum {
					fmt.Println("  checksum  ok")
				} else {
					fmt.Println("  checksum  MISMATCH with registry")
					failures++
				}
			} else {
				fmt.Println("  checksum  unknown (no install metadata)")
			}
			if err := models.ValidateDir(dir); err != nil {
				fmt.Printf("  files     MISSING (%v)\n", err)
				failures++
				continue
			}
			fmt.Println("  files     ok")
			if err := checkModelLoads(cmd.Context(), dir); err != nil {
				fmt.Printf("  loadable  FAILED (%v)\n", err)
				failures++
				continue
			}
			fmt.Println("  loadable  ok")
		}
		if installed == 0 {
			fmt.Println("no installed models found")
			return nil
		}
		if failures > 0 {
			return fmt.Errorf("%d check(s) failed", failures)
		}
		fmt.Println("\nall models verified")
		return nil
	},
}

// checkModelLoads opens the pipeline on a short probe sentence.
func checkModelLoads(ctx context.Context, dir string) error {
	p := ner.NewModelPipeline(ner.PipelineConfig{ModelDir: dir, Logger: logger})
	defer p.Close()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err := p.Entities(ctx, "Ada Lovelace met Charles Babbage in London.")
	return err
}

func humanBytes(n int64) string {
	switch {
	case n <= 0:
		return "0 B"
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%d MB", n/(1<<20))
	default:
		return fmt.Sprintf("%d KB", n/(1<<10))
	}
}
