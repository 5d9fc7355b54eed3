package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/glamour"

	"github.com/schmogen/protocol-converter-mvp/internal/bridge"
	"github.com/schmogen/protocol-converter-mvp/internal/config"
	"github.com/schmogen/protocol-converter-mvp/internal/llm"
	"github.com/schmogen/protocol-converter-mvp/internal/logger"
	"github.com/schmogen/protocol-converter-mvp/internal/pipeline"
)

var Logger = logger.GetLogger("protoconv")

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a YAML config file")
	file := flag.String("file", "", "convert a single PDF instead of the input directory")
	input := flag.String("input", "", "input directory (overrides config)")
	output := flag.String("output", "", "output directory (overrides config)")
	preview := flag.Bool("preview", false, "render the resulting protocol in the terminal (single file only)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if *input != "" {
		cfg.InputDir = *input
	}
	if *output != "" {
		cfg.OutputDir = *output
	}
	if *debug {
		cfg.Log.Debug = true
	}
	if err := logger.Configure(logger.Options{Debug: cfg.Log.Debug, File: cfg.Log.File, Color: cfg.Log.Color}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer logger.Close()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	ruleset, err := os.ReadFile(cfg.Ruleset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "missing ruleset %s: %v\n", cfg.Ruleset, err)
		return 2
	}
	paths, err := inputs(cfg, *file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	client, err := llm.New(cfg.LLM)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	runner := pipeline.New(cfg, pipeline.Deps{
		Preflight: bridge.Preflight,
		Rewriter:  client,
		Tables:    client,
		Flagger:   client,
		Ruleset:   string(ruleset),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Found %d PDFs. Batch: convert=%s, vision=%s\n", len(paths), cfg.LLM.Model, cfg.LLM.VisionModel)
	logs := runner.RunBatch(ctx, paths)
	failed := 0
	for _, l := range logs {
		if l.Status == pipeline.StatusSuccess {
			fmt.Printf("[OK] %s -> %s (%.2fs)\n", l.PDF, l.Output, l.ElapsedSeconds)
			continue
		}
		failed++
		fmt.Printf("[FAIL] %s: %s\n", l.PDF, l.Error)
	}

	if *preview {
		if len(logs) != 1 || logs[0].Status != pipeline.StatusSuccess {
			Logger.Warn("preview needs a single successful conversion", "files", len(logs))
		} else if err := showPreview(logs[0].Output); err != nil {
			Logger.Warn("preview failed", "error", err)
		}
	}
	if failed > 0 {
		return 1
	}
	return 0
}

func inputs(cfg *config.Config, file string) ([]string, error) {
	if file != "" {
		if _, err := os.Stat(file); err != nil {
			return nil, fmt.Errorf("file not found: %s", file)
		}
		return []string{file}, nil
	}
	paths, err := pipeline.FindInputs(cfg.InputDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.New("no PDFs found in " + cfg.InputDir)
	}
	return paths, nil
}

func showPreview(path string) error {
	md, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return err
	}
	out, err := r.Render(string(md))
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
