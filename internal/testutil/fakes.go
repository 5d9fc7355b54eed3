package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/schmogen/protocol-converter-mvp/internal/bridge"
)

// FakeRenderer returns a fixed image and counts render calls per page.
type FakeRenderer struct {
	mu    sync.Mutex
	Image []byte
	Err   error
	Calls map[int]int
}

func (f *FakeRenderer) RenderJPEG(page int, _ float64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Calls == nil {
		f.Calls = make(map[int]int)
	}
	f.Calls[page]++
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Image == nil {
		return []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil
	}
	return f.Image, nil
}

// FakeTableExtractor answers every vision request with Response.
type FakeTableExtractor struct {
	mu       sync.Mutex
	Response string
	Err      error
	Calls    int
}

func (f *FakeTableExtractor) ExtractTables(ctx context.Context, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.Response, f.Err
}

// FakeRewriter returns the input unchanged unless Fn is set.
type FakeRewriter struct {
	mu     sync.Mutex
	Fn     func(cleaned string) string
	Err    error
	Inputs []string
}

func (f *FakeRewriter) Rewrite(_ context.Context, _ string, cleaned string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Inputs = append(f.Inputs, cleaned)
	if f.Err != nil {
		return "", f.Err
	}
	if f.Fn != nil {
		return f.Fn(cleaned), nil
	}
	return cleaned, nil
}

type FakeFlagger struct {
	Report string
	Err    error
}

func (f *FakeFlagger) Flag(_ context.Context, _, _ string) (string, error) {
	return f.Report, f.Err
}

// FakeSource is an in-memory document built from synthetic pages.
type FakeSource struct {
	FakeRenderer
	Pages  []*bridge.RawPageData
	Closed bool
}

func (s *FakeSource) NumPages() int { return len(s.Pages) }

func (s *FakeSource) ReadRawPage(n int) (*bridge.RawPageData, error) {
	if n < 1 || n > len(s.Pages) {
		return nil, fmt.Errorf("page %d out of range 1..%d", n, len(s.Pages))
	}
	return s.Pages[n-1], nil
}

func (s *FakeSource) Close() error {
	if s.Closed {
		return errors.New("already closed")
	}
	s.Closed = true
	return nil
}

// Sources maps paths to fake documents for a pipeline Opener.
type Sources map[string]*FakeSource

func (s Sources) Open(path string) (*FakeSource, error) {
	src, ok := s[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such fake document", path)
	}
	return src, nil
}
