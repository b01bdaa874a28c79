package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// palette holds the styles used by the pretty handlers. Styles are bound to
// a renderer for the handler's output so that colors are dropped when the
// output is not a terminal.
type palette struct {
	key, str, num, yes, no, dur, when, null lipgloss.Style
	trace, debug, info, warn, fail          lipgloss.Style
}

func newPalette(w io.Writer) *palette {
	r := lipgloss.NewRenderer(w)
	fg := func(c string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(c))
	}

	return &palette{
		key:   fg("8"),
		str:   fg("6"),
		num:   fg("3"),
		yes:   fg("2"),
		no:    fg("1"),
		dur:   fg("5"),
		when:  fg("4"),
		null:  fg("8"),
		trace: fg("8"),
		debug: fg("4"),
		info:  fg("2").Bold(true),
		warn:  fg("3").Bold(true),
		fail:  fg("1").Bold(true),
	}
}

func (p *palette) level(l slog.Level) string {
	s := strings.ToUpper(Level(l).String())

	switch {
	case l >= slog.LevelError:
		return p.fail.Render(s)
	case l >= slog.LevelWarn:
		return p.warn.Render(s)
	case l >= slog.LevelInfo:
		return p.info.Render(s)
	case l >= slog.LevelDebug:
		return p.debug.Render(s)
	default:
		return p.trace.Render(s)
	}
}

func (p *palette) value(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return p.str.Render(v.String())
	case slog.KindInt64:
		return p.num.Render(strconv.FormatInt(v.Int64(), 10))
	case slog.KindUint64:
		return p.num.Render(strconv.FormatUint(v.Uint64(), 10))
	case slog.KindFloat64:
		return p.num.Render(strconv.FormatFloat(v.Float64(), 'g', -1, 64))
	case slog.KindBool:
		if v.Bool() {
			return p.yes.Render("true")
		}

		return p.no.Render("false")
	case slog.KindDuration:
		return p.dur.Render(v.Duration().String())
	case slog.KindTime:
		return p.when.Render(v.Time().String())
	case slog.KindAny:
		switch a := v.Any().(type) {
		case nil:
			return p.null.Render("null")
		case slog.Level:
			return p.level(a)
		case error:
			return p.no.Render(a.Error())
		}
	}

	return p.str.Render(v.String())
}

// prettyBase carries the state shared by both pretty handlers.
type prettyBase struct {
	opts       slog.HandlerOptions
	formatTime FormatTime
	style      *palette
	mu         *sync.Mutex
	w          io.Writer
	prefix     string
	attrs      []slog.Attr
}

func newPrettyBase(
	w io.Writer,
	opts *slog.HandlerOptions,
	formatTime FormatTime,
) prettyBase {
	return prettyBase{
		opts:       *opts,
		formatTime: formatTime,
		style:      newPalette(w),
		mu:         &sync.Mutex{},
		w:          w,
	}
}

func (b prettyBase) enabled(level slog.Level) bool {
	floor := slog.LevelInfo
	if b.opts.Level != nil {
		floor = b.opts.Level.Level()
	}

	return level >= floor
}

// withAttrs returns a copy of b that prepends attrs, qualified by any open
// groups, to every record.
func (b prettyBase) withAttrs(attrs []slog.Attr) prettyBase {
	qualified := make([]slog.Attr, 0, len(b.attrs)+len(attrs))
	qualified = append(qualified, b.attrs...)

	for _, a := range attrs {
		a.Key = b.prefix + a.Key
		qualified = append(qualified, a)
	}

	b.attrs = qualified

	return b
}

func (b prettyBase) withGroup(name string) prettyBase {
	if name != "" {
		b.prefix += name + "."
	}

	return b
}

// fields flattens the header and attributes of r into ordered key/value
// pairs. Group values are expanded into dotted keys.
func (b prettyBase) fields(r slog.Record) []slog.Attr {
	out := make([]slog.Attr, 0, 4+len(b.attrs)+r.NumAttrs())

	if !r.Time.IsZero() && b.formatTime != nil {
		if s := b.formatTime(r.Time); s != "" {
			out = append(out, slog.String(slog.TimeKey, s))
		}
	}

	out = append(out, slog.Any(slog.LevelKey, r.Level))

	if b.opts.AddSource {
		if src := r.Source(); src != nil && src.File != "" {
			out = append(out, slog.String(slog.SourceKey,
				fmt.Sprintf("%s:%d", src.File, src.Line)))
		}
	}

	out = append(out, slog.String(slog.MessageKey, r.Message))

	for _, a := range b.attrs {
		out = flatten(out, "", a)
	}

	r.Attrs(func(a slog.Attr) bool {
		out = flatten(out, b.prefix, a)

		return true
	})

	return out
}

func flatten(out []slog.Attr, prefix string, a slog.Attr) []slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Equal(slog.Attr{}) {
		return out
	}

	if a.Value.Kind() != slog.KindGroup {
		a.Key = prefix + a.Key

		return append(out, a)
	}

	if a.Key != "" {
		prefix += a.Key + "."
	}

	for _, g := range a.Value.Group() {
		out = flatten(out, prefix, g)
	}

	return out
}

func (b prettyBase) write(buf *bytes.Buffer) error {
	buf.WriteByte('\n')

	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.w.Write(buf.Bytes())

	return err
}

// prettyTextHandler writes one key=value line per record with unquoted,
// colorized values.
type prettyTextHandler struct{ prettyBase }

func newPrettyTextHandler(
	w io.Writer,
	opts *slog.HandlerOptions,
	formatTime FormatTime,
) *prettyTextHandler {
	return &prettyTextHandler{newPrettyBase(w, opts, formatTime)}
}

func (h *prettyTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.enabled(level)
}

func (h *prettyTextHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	for i, a := range h.fields(r) {
		if i > 0 {
			buf.WriteByte(' ')
		}

		buf.WriteString(h.style.key.Render(a.Key))
		buf.WriteByte('=')
		buf.WriteString(h.style.value(a.Value))
	}

	return h.write(&buf)
}

func (h *prettyTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &prettyTextHandler{h.withAttrs(attrs)}
}

func (h *prettyTextHandler) WithGroup(name string) slog.Handler {
	return &prettyTextHandler{h.withGroup(name)}
}

// prettyJSONHandler writes an indented, colorized JSON-like object per
// record. String values are left unquoted.
type prettyJSONHandler struct{ prettyBase }

func newPrettyJSONHandler(
	w io.Writer,
	opts *slog.HandlerOptions,
	formatTime FormatTime,
) *prettyJSONHandler {
	return &prettyJSONHandler{newPrettyBase(w, opts, formatTime)}
}

func (h *prettyJSONHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.enabled(level)
}

func (h *prettyJSONHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	buf.WriteString("{")

	for i, a := range h.fields(r) {
		if i > 0 {
			buf.WriteByte(',')
		}

		buf.WriteString("\n  ")
		buf.WriteString(h.style.key.Render(a.Key))
		buf.WriteString(": ")
		buf.WriteString(h.style.value(a.Value))
	}

	buf.WriteString("\n}")

	return h.write(&buf)
}

func (h *prettyJSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &prettyJSONHandler{h.withAttrs(attrs)}
}

func (h *prettyJSONHandler) WithGroup(name string) slog.Handler {
	return &prettyJSONHandler{h.withGroup(name)}
}
