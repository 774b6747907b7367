// Package listbind hydrates HTML documents whose list containers declare,
// through data-lb-* attributes, which catalog records they display and how.
package listbind

import (
	"context"
	"io"
	"io/fs"
	"net/http"

	"github.com/goliatone/go-listbind/internal/client"
	"github.com/goliatone/go-listbind/internal/di"
	"github.com/goliatone/go-listbind/internal/domain"
	listhttp "github.com/goliatone/go-listbind/internal/http"
	"github.com/goliatone/go-listbind/internal/logging"
	"github.com/goliatone/go-listbind/internal/runtime"
	"github.com/goliatone/go-listbind/pkg/interfaces"
)

// Filters exports the list filter map.
type Filters = domain.Filters

// Record exports the catalog record type.
type Record = domain.Record

// Runtime exports the per-document list runtime.
type Runtime = runtime.Runtime

// Client exports the caching catalog API client.
type Client = client.Client

// Event exports the runtime notification payload.
type Event = interfaces.Event

// Option customises the module wiring.
type Option = di.Option

// Wiring overrides re-exported for host applications.
var (
	WithHTTPClient     = di.WithHTTPClient
	WithCache          = di.WithCache
	WithLoggerProvider = di.WithLoggerProvider
	WithEventSink      = di.WithEventSink
	WithClock          = di.WithClock
	WithSleeper        = di.WithSleeper
)

// Module represents the top level listbind runtime façade.
type Module struct {
	container *di.Container
}

// New constructs a module using the provided configuration and optional DI overrides.
func New(cfg Config, opts ...Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Client returns the shared catalog API client.
func (m *Module) Client() *Client {
	return m.container.Client()
}

// NewRuntime returns a runtime for a single document.
func (m *Module) NewRuntime(opts ...runtime.Option) *Runtime {
	return m.container.NewRuntime(opts...)
}

// Subscribe registers fn for every event emitted by runtimes of this module.
func (m *Module) Subscribe(fn func(ctx context.Context, event Event)) func() {
	return m.container.Events().Subscribe(fn)
}

// Hydrate reads an HTML document from in, loads every declared list and
// writes the rendered document to out.
func (m *Module) Hydrate(ctx context.Context, in io.Reader, out io.Writer) error {
	return m.container.Hydrate(ctx, in, out, nil)
}

// HydrateWithFilters is Hydrate with filters seeded into every list.
func (m *Module) HydrateWithFilters(ctx context.Context, in io.Reader, out io.Writer, filters Filters) error {
	return m.container.Hydrate(ctx, in, out, filters)
}

// Handler returns the preview server. Pages are read from pages, which may be nil
// when only POST /hydrate is needed.
func (m *Module) Handler(pages fs.FS) http.Handler {
	return listhttp.NewServer(m.container,
		listhttp.WithPages(pages),
		listhttp.WithLogger(logging.HTTPLogger(m.container.LoggerProvider())),
	).Handler()
}
