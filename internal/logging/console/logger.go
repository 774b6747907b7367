// Package console writes one logfmt line per entry. It is the default
// provider, so hydrated HTML piped to stdout is never interleaved with logs.
package console

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-listbind/internal/logging"
	"github.com/goliatone/go-listbind/pkg/interfaces"
)

// Options configures the provider. Writer defaults to stderr.
type Options struct {
	Writer   io.Writer
	TimeFunc func() time.Time
	MinLevel logging.Level
}

type provider struct {
	mu       sync.Mutex
	out      io.Writer
	now      func() time.Time
	minLevel logging.Level
}

// NewProvider returns a provider whose loggers share one writer.
func NewProvider(opts Options) interfaces.LoggerProvider {
	p := &provider{out: opts.Writer, now: opts.TimeFunc, minLevel: opts.MinLevel}
	if p.out == nil {
		p.out = os.Stderr
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

func (p *provider) GetLogger(name string) interfaces.Logger {
	return &logger{p: p, fields: map[string]any{"logger": name}}
}

func (p *provider) write(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.out, line)
}

type logger struct {
	p      *provider
	fields map[string]any
	ctx    context.Context
}

var (
	_ interfaces.Logger       = (*logger)(nil)
	_ interfaces.FieldsLogger = (*logger)(nil)
)

func (l *logger) Trace(msg string, args ...any) { l.log(logging.LevelTrace, msg, args) }
func (l *logger) Debug(msg string, args ...any) { l.log(logging.LevelDebug, msg, args) }
func (l *logger) Info(msg string, args ...any)  { l.log(logging.LevelInfo, msg, args) }
func (l *logger) Warn(msg string, args ...any)  { l.log(logging.LevelWarn, msg, args) }
func (l *logger) Error(msg string, args ...any) { l.log(logging.LevelError, msg, args) }
func (l *logger) Fatal(msg string, args ...any) { l.log(logging.LevelFatal, msg, args) }

func (l *logger) WithFields(fields map[string]any) interfaces.Logger {
	if len(fields) == 0 {
		return l
	}
	merged := maps.Clone(l.fields)
	maps.Copy(merged, fields)
	return &logger{p: l.p, fields: merged, ctx: l.ctx}
}

func (l *logger) WithContext(ctx context.Context) interfaces.Logger {
	return &logger{p: l.p, fields: l.fields, ctx: ctx}
}

func (l *logger) log(level logging.Level, msg string, args []any) {
	if level < l.p.minLevel {
		return
	}
	fields := maps.Clone(l.fields)
	maps.Copy(fields, logging.ContextFields(l.ctx))
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if i+1 == len(args) || !ok || key == "" {
			key = "field_" + strconv.Itoa(i/2)
		}
		if i+1 == len(args) {
			fields[key] = args[i]
			break
		}
		fields[key] = args[i+1]
	}

	var b strings.Builder
	b.WriteString(l.p.now().UTC().Format(time.RFC3339Nano))
	b.WriteByte(' ')
	b.WriteString(level.String())
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		b.WriteByte(' ')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(logfmtValue(fields[key]))
	}
	b.WriteByte('\n')
	l.p.write(b.String())
}

func logfmtValue(value any) string {
	var text string
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		text = v
	case error:
		text = v.Error()
	default:
		text = fmt.Sprint(v)
	}
	if text == "" {
		return `""`
	}
	if strings.ContainsFunc(text, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(text)
	}
	return text
}
