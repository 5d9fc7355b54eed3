package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// RunBatch converts documents concurrently, at most Batch.Concurrency at a time.
// A failed document never stops the others. Logs come back in input order.
func (r *Runner) RunBatch(ctx context.Context, paths []string) []RunLog {
	logs := make([]RunLog, len(paths))
	var g errgroup.Group
	g.SetLimit(max(r.cfg.Batch.Concurrency, 1))
	for i, path := range paths {
		g.Go(func() error {
			logs[i] = r.RunDocument(ctx, path)
			return nil
		})
	}
	_ = g.Wait()
	return logs
}

// FindInputs lists the PDFs directly inside dir, sorted by name.
func FindInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
