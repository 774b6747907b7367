package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-listbind/pkg/interfaces"
)

const (
	rootModule    = "listbind"
	clientModule  = "listbind.client"
	runtimeModule = "listbind.runtime"
	filtersModule = "listbind.filters"
	mediaModule   = "listbind.media"
	httpModule    = "listbind.http"
)

const (
	fieldListID    = "list_id"
	fieldProgramID = "program_id"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The returned logger attaches
// the module identifier as structured context.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// ClientLogger returns the logger namespace reserved for the catalog API client.
func ClientLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, clientModule)
}

// RuntimeLogger returns the logger namespace reserved for the list orchestrator.
func RuntimeLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, runtimeModule)
}

// FiltersLogger returns the logger namespace reserved for filter controls.
func FiltersLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, filtersModule)
}

// MediaLogger returns the logger namespace reserved for media resolution.
func MediaLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, mediaModule)
}

// HTTPLogger returns the logger namespace reserved for the preview server.
func HTTPLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, httpModule)
}

// WithListContext enriches the logger with the list and program identifiers.
// Empty values are ignored.
func WithListContext(logger interfaces.Logger, listID, programID string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(listID); trimmed != "" {
		fields[fieldListID] = trimmed
	}
	if trimmed := strings.TrimSpace(programID); trimmed != "" {
		fields[fieldProgramID] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every log entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
