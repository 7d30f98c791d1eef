package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	charmlog "github.com/charmbracelet/log"
	"golang.org/x/term"
)

// PrefixStyle renders the optional prefix (usually the app name).
var PrefixStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("212")) // Pink

// ConsoleHandler renders records through charmbracelet/log for humans
// watching launcherd in a terminal.
type ConsoleHandler struct {
	logger *charmlog.Logger
	opts   ConsoleHandlerOptions
	attrs  []slog.Attr
	groups []string
}

// ConsoleHandlerOptions configures the console handler.
type ConsoleHandlerOptions struct {
	// Level is the minimum level to log. A *slog.LevelVar allows changes at runtime.
	Level slog.Leveler
	// NoColor disables the styled level badges.
	NoColor bool
	// TimeFormat is the format for timestamps.
	TimeFormat string
	// ShowCaller adds the calling function and line.
	ShowCaller bool
	// Prefix is prepended to all log messages.
	Prefix string
}

func applyConsoleStyles(logger *charmlog.Logger) {
	styles := charmlog.DefaultStyles()

	styles.Levels[charmlog.DebugLevel] = lipgloss.NewStyle().
		SetString("DEBUG").
		Bold(true).
		Foreground(lipgloss.Color("63")) // Purple

	styles.Levels[charmlog.InfoLevel] = lipgloss.NewStyle().
		SetString("INFO ").
		Bold(true).
		Foreground(lipgloss.Color("42")) // Green

	styles.Levels[charmlog.WarnLevel] = lipgloss.NewStyle().
		SetString("WARN ").
		Bold(true).
		Foreground(lipgloss.Color("214")) // Orange

	styles.Levels[charmlog.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR").
		Bold(true).
		Foreground(lipgloss.Color("196")) // Red

	styles.Key = lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")). // Cyan
		Bold(true)
	styles.Value = lipgloss.NewStyle().
		Foreground(lipgloss.Color("252"))
	styles.Separator = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))
	styles.Timestamp = lipgloss.NewStyle().
		Foreground(lipgloss.Color("243"))
	styles.Prefix = PrefixStyle

	logger.SetStyles(styles)
}

// NewConsoleHandler creates a new charm-based console handler.
func NewConsoleHandler(w io.Writer, opts *ConsoleHandlerOptions) *ConsoleHandler {
	if opts == nil {
		opts = &ConsoleHandlerOptions{}
	}
	o := *opts
	if o.Level == nil {
		o.Level = slog.LevelInfo
	}
	if o.TimeFormat == "" {
		o.TimeFormat = "15:04:05"
	}

	// Level filtering happens in Enabled so the charm logger accepts everything.
	logger := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      o.TimeFormat,
		Prefix:          o.Prefix,
		Level:           charmlog.DebugLevel,
	})
	if !o.NoColor && isTerminal(w) {
		applyConsoleStyles(logger)
	}

	return &ConsoleHandler{logger: logger, opts: o}
}

// Enabled implements slog.Handler.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

// Handle implements slog.Handler.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	kvs := make([]interface{}, 0, (len(h.attrs)+r.NumAttrs()+1)*2)

	for _, attr := range h.attrs {
		if k, v := h.formatAttr(attr); k != "" {
			kvs = append(kvs, k, v)
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		if k, v := h.formatAttr(a); k != "" {
			kvs = append(kvs, k, v)
		}
		return true
	})

	if h.opts.ShowCaller && r.PC != 0 {
		frame := getFrame(r.PC)
		kvs = append(kvs, "caller", fmt.Sprintf("%s:%d", shortFuncName(frame.Function), frame.Line))
	}

	switch {
	case r.Level >= slog.LevelError:
		h.logger.Error(r.Message, kvs...)
	case r.Level >= slog.LevelWarn:
		h.logger.Warn(r.Message, kvs...)
	case r.Level >= slog.LevelInfo:
		h.logger.Info(r.Message, kvs...)
	default:
		h.logger.Debug(r.Message, kvs...)
	}

	return nil
}

// formatAttr flattens groups into dotted keys.
func (h *ConsoleHandler) formatAttr(attr slog.Attr) (string, interface{}) {
	if attr.Key == "" {
		return "", nil
	}

	key := attr.Key
	if len(h.groups) > 0 {
		key = strings.Join(h.groups, ".") + "." + key
	}

	if attr.Value.Kind() == slog.KindGroup {
		groupAttrs := attr.Value.Group()
		if len(groupAttrs) == 0 {
			return "", nil
		}
		var parts []string
		for _, ga := range groupAttrs {
			k, v := h.formatAttr(ga)
			if k != "" {
				parts = append(parts, fmt.Sprintf("%s=%v", k, v))
			}
		}
		return key, strings.Join(parts, " ")
	}

	return key, formatSlogValue(attr.Value)
}

// WithAttrs implements slog.Handler.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := h.clone()
	nh.attrs = append(nh.attrs, attrs...)
	return nh
}

// WithGroup implements slog.Handler.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := h.clone()
	nh.groups = append(nh.groups, name)
	return nh
}

// clone shares the underlying charm logger, which is safe for concurrent use.
func (h *ConsoleHandler) clone() *ConsoleHandler {
	return &ConsoleHandler{
		logger: h.logger,
		opts:   h.opts,
		attrs:  append([]slog.Attr{}, h.attrs...),
		groups: append([]string{}, h.groups...),
	}
}

func formatSlogValue(v slog.Value) interface{} {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		val := v.Any()
		if err, ok := val.(error); ok {
			return err.Error()
		}
		return val
	case slog.KindGroup:
		return "[group]"
	default:
		return v.Any()
	}
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

func getFrame(pc uintptr) runtime.Frame {
	frames := runtime.CallersFrames([]uintptr{pc})
	frame, _ := frames.Next()
	return frame
}

// shortFuncName turns "launcher/internal/catalog.(*Refresher).Refresh" into
// "catalog.(*Refresher).Refresh".
func shortFuncName(name string) string {
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
