// Package gologger adapts go-logger to the listbind logger contracts for
// deployments that want JSON or pretty output.
package gologger

import (
	"context"
	"fmt"
	"maps"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-listbind/internal/logging"
	"github.com/goliatone/go-listbind/pkg/interfaces"
)

// Config mirrors the logging block of the listbind configuration.
type Config struct {
	Level     logging.Level
	Format    string
	AddSource bool
}

// Provider hands out named go-logger children.
type Provider struct {
	root *glog.BaseLogger
}

var levels = map[logging.Level]string{
	logging.LevelTrace: glog.Trace,
	logging.LevelDebug: glog.Debug,
	logging.LevelInfo:  glog.Info,
	logging.LevelWarn:  glog.Warn,
	logging.LevelError: glog.Error,
	logging.LevelFatal: glog.Fatal,
}

// NewProvider builds the root logger. Format is one of json (default),
// console or pretty.
func NewProvider(cfg Config) (*Provider, error) {
	var format glog.Option
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "json":
		format = glog.WithLoggerTypeJSON()
	case "console":
		format = glog.WithLoggerTypeConsole()
	case "pretty":
		format = glog.WithLoggerTypePretty()
	default:
		return nil, fmt.Errorf("logging: unsupported go-logger format %q", cfg.Format)
	}
	level, ok := levels[cfg.Level]
	if !ok {
		level = glog.Info
	}
	root := glog.NewLogger(format, glog.WithLevel(level), glog.WithAddSource(cfg.AddSource))
	return &Provider{root: root}, nil
}

// GetLogger returns the child logger for a listbind module.
func (p *Provider) GetLogger(name string) interfaces.Logger {
	if p == nil || p.root == nil {
		return logging.NoOp()
	}
	if name = strings.TrimSpace(name); name == "" {
		return wrap(p.root)
	}
	return wrap(p.root.GetLogger(name))
}

func wrap(inner glog.Logger) interfaces.Logger {
	if inner == nil {
		return logging.NoOp()
	}
	return &adapter{inner: inner}
}

type adapter struct {
	inner glog.Logger
}

func (a *adapter) Trace(msg string, args ...any) { a.inner.Trace(msg, args...) }
func (a *adapter) Debug(msg string, args ...any) { a.inner.Debug(msg, args...) }
func (a *adapter) Info(msg string, args ...any)  { a.inner.Info(msg, args...) }
func (a *adapter) Warn(msg string, args ...any)  { a.inner.Warn(msg, args...) }
func (a *adapter) Error(msg string, args ...any) { a.inner.Error(msg, args...) }
func (a *adapter) Fatal(msg string, args ...any) { a.inner.Fatal(msg, args...) }

// WithFields is a no-op when the child does not carry fields.
func (a *adapter) WithFields(fields map[string]any) interfaces.Logger {
	with, ok := a.inner.(glog.FieldsLogger)
	if !ok || len(fields) == 0 {
		return a
	}
	return wrap(with.WithFields(maps.Clone(fields)))
}

func (a *adapter) WithContext(ctx context.Context) interfaces.Logger {
	if ctx == nil {
		return a
	}
	return wrap(a.inner.WithContext(ctx))
}
