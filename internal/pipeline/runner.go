package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/schmogen/protocol-converter-mvp/internal/config"
	"github.com/schmogen/protocol-converter-mvp/internal/logger"
	"github.com/schmogen/protocol-converter-mvp/internal/markdown"
	"github.com/schmogen/protocol-converter-mvp/internal/reassemble"
	"github.com/schmogen/protocol-converter-mvp/internal/render"
	"github.com/schmogen/protocol-converter-mvp/internal/vision"
)

var Logger = logger.GetLogger("pipeline")

var errNoRewriter = errors.New("no rewriter configured")

const (
	StatusStarted = "started"
	StatusSuccess = "success"
	StatusError   = "error"

	lowTextChars   = 500
	lowTextWarning = "Very low extracted text. PDF may be scanned/image-only."
)

type Rewriter interface {
	Rewrite(ctx context.Context, ruleset, cleaned string) (string, error)
}

type Flagger interface {
	Flag(ctx context.Context, cleaned, protocol string) (string, error)
}

// Deps are the collaborators of a Runner. Open defaults to OpenPDF. A nil
// Preflight skips structural validation, a nil Tables drops corrupted tables and
// a nil Flagger skips the review pass. Ruleset is the contract text handed to
// the rewriter.
type Deps struct {
	Open      Opener
	Preflight func(path string) error
	Rewriter  Rewriter
	Tables    vision.TableExtractor
	Flagger   Flagger
	Ruleset   string
}

type Runner struct {
	cfg  *config.Config
	deps Deps
}

func New(cfg *config.Config, deps Deps) *Runner {
	if deps.Open == nil {
		deps.Open = OpenPDF
	}
	return &Runner{cfg: cfg, deps: deps}
}

func (r *Runner) extractor() vision.TableExtractor {
	if !r.cfg.Vision.Enabled || r.deps.Tables == nil {
		return nil
	}
	return r.deps.Tables
}

// RunLog is written to run_log.json for every document, whatever the outcome.
type RunLog struct {
	PDF            string  `json:"pdf"`
	StartedAt      string  `json:"started_at"`
	ModelConvert   string  `json:"model_convert"`
	ModelVision    string  `json:"model_vision,omitempty"`
	Status         string  `json:"status"`
	Error          string  `json:"error,omitempty"`
	Warning        string  `json:"warning,omitempty"`
	Output         string  `json:"output,omitempty"`
	RawChars       int     `json:"raw_chars"`
	CleanedChars   int     `json:"cleaned_chars"`
	Tables         int     `json:"tables"`
	Corrupted      int     `json:"corrupted"`
	Repaired       int     `json:"repaired"`
	Dropped        int     `json:"dropped"`
	Resolved       int     `json:"resolved"`
	Inserted       int     `json:"inserted"`
	Fallback       int     `json:"fallback"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// RunDocument converts one PDF into <output>/<stem>/. Diagnostic artifacts are
// written as soon as they exist; protocol outputs only when every step succeeded.
func (r *Runner) RunDocument(ctx context.Context, path string) RunLog {
	start := time.Now()
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := &artifacts{dir: filepath.Join(r.cfg.OutputDir, stem)}
	log := RunLog{
		PDF:          filepath.Base(path),
		StartedAt:    start.Format("2006-01-02 15:04:05"),
		ModelConvert: r.cfg.LLM.Model,
		Status:       StatusStarted,
	}
	if r.extractor() != nil {
		log.ModelVision = r.cfg.LLM.VisionModel
	}
	Logger.Info("converting", "pdf", log.PDF)

	if err := r.convert(ctx, path, stem, out, &log); err != nil {
		log.Status = StatusError
		log.Error = err.Error()
		Logger.Error("conversion failed", "pdf", log.PDF, "error", err)
	} else {
		log.Status = StatusSuccess
	}
	log.ElapsedSeconds = math.Round(time.Since(start).Seconds()*100) / 100

	if err := out.writeJSON("run_log.json", log); err != nil {
		Logger.Warn("could not write run log", "pdf", log.PDF, "error", err)
	}
	return log
}

func (r *Runner) convert(ctx context.Context, path, stem string, out *artifacts, log *RunLog) error {
	if err := os.MkdirAll(out.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if r.deps.Preflight != nil {
		if err := r.deps.Preflight(path); err != nil {
			return err
		}
	}

	src, err := r.deps.Open(path)
	if err != nil {
		return err
	}
	scan, err := r.scanAndClose(ctx, src)
	if err != nil {
		return err
	}
	log.Corrupted, log.Repaired, log.Dropped = scan.Stats.Corrupted, scan.Stats.Repaired, scan.Stats.Dropped

	raw, tables := reassemble.Linearize(scan.Pages)
	log.Tables, log.RawChars = len(tables), utf8.RuneCountInString(raw)
	if err := out.write("raw_extracted.txt", raw); err != nil {
		return err
	}
	if err := out.writeJSON("tables.json", tables); err != nil {
		return err
	}

	cleaned := reassemble.Clean(raw)
	log.CleanedChars = utf8.RuneCountInString(cleaned)
	if err := out.write("cleaned.txt", cleaned); err != nil {
		return err
	}
	if log.CleanedChars < lowTextChars {
		log.Warning = lowTextWarning
		Logger.Warn("low extracted text", "pdf", log.PDF, "chars", log.CleanedChars)
	}

	if r.deps.Rewriter == nil {
		return errNoRewriter
	}
	rewritten, err := r.deps.Rewriter.Rewrite(ctx, r.deps.Ruleset, cleaned)
	if err != nil {
		return fmt.Errorf("rewrite: %w", err)
	}
	if err := out.write("model_output_debug.txt", rewritten); err != nil {
		return err
	}

	blocks, report := reassemble.Reinsert(markdown.Parse(normalizeLabels(rewritten)), tables)
	log.Resolved, log.Inserted, log.Fallback = report.Resolved, report.Inserted, report.Fallback
	Logger.Info("tables reinserted", "pdf", log.PDF, "resolved", report.Resolved, "inserted", report.Inserted,
		"fallback", report.Fallback, "duplicates", report.Duplicates, "unknown", report.Unknown)
	blocks = withChecklist(blocks)
	if err := out.writeJSON("blocks.json", blocks); err != nil {
		return err
	}

	if r.cfg.Flags.Enabled && r.deps.Flagger != nil {
		flags, err := r.deps.Flagger.Flag(ctx, cleaned, markdown.Format(blocks))
		if err != nil {
			return fmt.Errorf("flag: %w", err)
		}
		flags = normalizeLabels(flags)
		if err := out.write("flags.md", flags); err != nil {
			return err
		}
		blocks = withFlags(blocks, flags)
	}

	files := map[string][]byte{"protocol.md": []byte(markdown.Format(blocks))}
	if r.cfg.WantsFormat("pdf") {
		var buf bytes.Buffer
		if err := render.Render(blocks, render.NewPDF(&buf, render.PDFOptions{FontSize: r.cfg.Render.FontSize, Title: stem}), nil); err != nil {
			return fmt.Errorf("render pdf: %w", err)
		}
		files["protocol.pdf"] = buf.Bytes()
	}
	if r.cfg.WantsFormat("txt") {
		var buf bytes.Buffer
		if err := render.Render(blocks, render.NewText(&buf), nil); err != nil {
			return fmt.Errorf("render text: %w", err)
		}
		files["protocol.txt"] = buf.Bytes()
	}
	for _, name := range []string{"protocol.md", "protocol.pdf", "protocol.txt"} {
		data, ok := files[name]
		if !ok {
			continue
		}
		if err := out.writeBytes(name, data); err != nil {
			return err
		}
	}
	log.Output = filepath.Join(out.dir, "protocol.md")
	return nil
}

func (r *Runner) scanAndClose(ctx context.Context, src Source) (*ScanResult, error) {
	defer func() {
		if err := src.Close(); err != nil {
			Logger.Warn("close pdf", "error", err)
		}
	}()
	return r.Scan(ctx, src)
}

type artifacts struct {
	dir string
}

func (a *artifacts) write(name, content string) error {
	return a.writeBytes(name, []byte(content))
}

func (a *artifacts) writeBytes(name string, data []byte) error {
	if err := os.WriteFile(filepath.Join(a.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (a *artifacts) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return a.writeBytes(name, append(data, '\n'))
}
