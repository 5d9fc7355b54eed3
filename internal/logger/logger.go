package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorWhite  = "\033[37m"
	colorGray   = "\033[90m"
)

// Options controls where log records go. Loggers handed out by GetLogger before
// Configure is called pick up the new settings.
type Options struct {
	Debug bool
	File  string
	Color bool
}

var (
	rootLogger *slog.Logger
	current    atomic.Pointer[slog.Handler]

	mu      sync.Mutex
	logFile *os.File
)

func init() {
	debugEnabled, _ := strconv.ParseBool(os.Getenv("PROTOCONV_DEBUG"))
	install(newStdoutHandler(levelFor(debugEnabled), true))
	rootLogger = slog.New(&switchHandler{})
}

// Configure swaps the active handler. A non-empty File adds a plain-text sink that
// always records debug output.
func Configure(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	stdout := newStdoutHandler(levelFor(opts.Debug), opts.Color)
	if opts.File == "" {
		closeLogFile()
		install(stdout)
		return nil
	}

	file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	closeLogFile()
	logFile = file

	fileHandler := &customHandler{
		w:     file,
		level: slog.LevelDebug,
	}
	install(&multiHandler{handlers: []slog.Handler{fileHandler, stdout}})
	return nil
}

// Close releases the log file, if one was configured.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLogFile()
}

// GetLogger returns a logger with the given prefix for easier filtering
func GetLogger(prefix string) *slog.Logger {
	return rootLogger.With("module", prefix)
}

// NewHandler builds the formatted handler used for stdout, exposed for tests and
// for callers that want the same format on another writer.
func NewHandler(w io.Writer, level slog.Level, withColors bool) slog.Handler {
	return &customHandler{w: w, level: level, withColors: withColors}
}

func levelFor(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func newStdoutHandler(level slog.Level, withColors bool) slog.Handler {
	return &customHandler{w: os.Stdout, level: level, withColors: withColors}
}

func install(h slog.Handler) { current.Store(&h) }

func closeLogFile() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// switchHandler resolves the installed handler on every call so that package-level
// loggers created during init follow Configure.
type switchHandler struct {
	attrs []slog.Attr
	group string
}

func (h *switchHandler) base() slog.Handler {
	base := *current.Load()
	if len(h.attrs) > 0 {
		base = base.WithAttrs(h.attrs)
	}
	if h.group != "" {
		base = base.WithGroup(h.group)
	}
	return base
}

func (h *switchHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return (*current.Load()).Enabled(ctx, level)
}

func (h *switchHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.base().Handle(ctx, record)
}

func (h *switchHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)
	return &switchHandler{attrs: newAttrs, group: h.group}
}

func (h *switchHandler) WithGroup(name string) slog.Handler {
	return &switchHandler{attrs: h.attrs, group: name}
}

type customHandler struct {
	w          io.Writer
	level      slog.Level
	attrs      []slog.Attr
	group      string
	withColors bool
}

func (h *customHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *customHandler) Handle(_ context.Context, record slog.Record) error {
	var color string
	var levelStr string

	switch record.Level {
	case slog.LevelDebug:
		color = colorWhite
		levelStr = "DEBUG"
	case slog.LevelInfo:
		color = colorBlue
		levelStr = "INFO"
	case slog.LevelWarn:
		color = colorYellow
		levelStr = "WARNING"
	case slog.LevelError:
		color = colorRed
		levelStr = "ERROR"
	default:
		color = colorWhite
		levelStr = record.Level.String()
	}

	timeStr := record.Time.Format("15:04:05")

	var modulePrefix string
	var args []string
	collect := func(a slog.Attr) {
		if a.Key == "module" {
			modulePrefix = a.Value.String()
			return
		}
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		args = append(args, fmt.Sprintf("%s=%v", key, a.Value))
	}
	for _, a := range h.attrs {
		collect(a)
	}
	record.Attrs(func(a slog.Attr) bool {
		collect(a)
		return true
	})

	var argsStr string
	for i, a := range args {
		if i == 0 {
			argsStr = " ("
		} else {
			argsStr += ", "
		}
		argsStr += a
	}
	if len(args) > 0 {
		argsStr += ")"
	}

	// Format: [module] <LEVEL>: <msg> (<args>) [HH:MM:SS]
	var prefix string
	if modulePrefix != "" {
		if h.withColors {
			prefix = fmt.Sprintf("%s[%s]%s ", colorGray, modulePrefix, colorReset)
		} else {
			prefix = fmt.Sprintf("[%s] ", modulePrefix)
		}
	}

	if h.withColors {
		_, err := fmt.Fprintf(h.w, "%s%s%s%s: %s%s [%s]\n",
			prefix,
			color, levelStr, colorReset,
			record.Message,
			argsStr,
			timeStr)
		return err
	}
	_, err := fmt.Fprintf(h.w, "%s%s: %s%s [%s]\n",
		prefix,
		levelStr,
		record.Message,
		argsStr,
		timeStr)
	return err
}

func (h *customHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)
	return &customHandler{
		w:          h.w,
		level:      h.level,
		attrs:      newAttrs,
		group:      h.group,
		withColors: h.withColors,
	}
}

func (h *customHandler) WithGroup(name string) slog.Handler {
	return &customHandler{
		w:          h.w,
		level:      h.level,
		attrs:      h.attrs,
		group:      name,
		withColors: h.withColors,
	}
}

type multiHandler struct {
	handlers []slog.Handler
}

func (mh *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range mh.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (mh *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, h := range mh.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (mh *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(mh.handlers))
	for i, h := range mh.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (mh *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(mh.handlers))
	for i, h := range mh.handlers {
		next[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}
