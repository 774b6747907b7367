package di

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goliatone/go-listbind/internal/binder"
	"github.com/goliatone/go-listbind/internal/cache"
	"github.com/goliatone/go-listbind/internal/client"
	"github.com/goliatone/go-listbind/internal/dom"
	"github.com/goliatone/go-listbind/internal/domain"
	"github.com/goliatone/go-listbind/internal/events"
	"github.com/goliatone/go-listbind/internal/filters"
	"github.com/goliatone/go-listbind/internal/logging"
	"github.com/goliatone/go-listbind/internal/logging/console"
	"github.com/goliatone/go-listbind/internal/logging/gologger"
	"github.com/goliatone/go-listbind/internal/media"
	"github.com/goliatone/go-listbind/internal/runtime"
	"github.com/goliatone/go-listbind/internal/runtimeconfig"
	"github.com/goliatone/go-listbind/pkg/interfaces"
)

// Container wires module dependencies. Services shared across documents (the
// API client and its cache, the media resolver, the binder and the event bus)
// are built once; every document gets its own runtime and state store.
type Container struct {
	Config runtimeconfig.Config

	httpClient     interfaces.HTTPDoer
	cache          interfaces.CacheProvider
	loggerProvider interfaces.LoggerProvider
	sink           interfaces.EventSink
	now            func() time.Time
	sleep          client.Sleeper

	logger   interfaces.Logger
	bus      *events.Bus
	emitter  *events.Emitter
	client   *client.Client
	resolver *media.Resolver
	binder   *binder.Binder
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithHTTPClient overrides the transport used by the catalog client.
func WithHTTPClient(doer interfaces.HTTPDoer) Option {
	return func(c *Container) {
		c.httpClient = doer
	}
}

// WithCache overrides the default in-memory response cache.
func WithCache(provider interfaces.CacheProvider) Option {
	return func(c *Container) {
		c.cache = provider
	}
}

// WithLoggerProvider overrides the logger provider selected by configuration.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithEventSink subscribes sink to every runtime event.
func WithEventSink(sink interfaces.EventSink) Option {
	return func(c *Container) {
		c.sink = sink
	}
}

// WithClock overrides the time source used for cache expiry and event stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Container) {
		c.now = now
	}
}

// WithSleeper overrides how the client waits between retries.
func WithSleeper(sleep client.Sleeper) Option {
	return func(c *Container) {
		c.sleep = sleep
	}
}

// NewContainer validates cfg and builds the shared services.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		Config: cfg,
		now:    time.Now,
		bus:    events.NewBus(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.now == nil {
		c.now = time.Now
	}

	if err := c.configureLogging(); err != nil {
		return nil, err
	}
	c.configureEvents()
	c.configureClient()
	c.configureRendering()

	c.logger.Debug("container.configured",
		"base_url", cfg.BaseURL,
		"has_api_key", c.client.HasAPIKey(),
		"default_program", cfg.DefaultProgram,
	)
	return c, nil
}

func (c *Container) configureLogging() error {
	if c.loggerProvider == nil {
		provider, err := c.defaultLoggerProvider()
		if err != nil {
			return err
		}
		c.loggerProvider = provider
	}
	c.logger = logging.ModuleLogger(c.loggerProvider, "")
	return nil
}

func (c *Container) defaultLoggerProvider() (interfaces.LoggerProvider, error) {
	cfg := c.Config.Logging
	level := logging.ResolveLevel(cfg.Level, c.Config.Debug)
	if strings.EqualFold(strings.TrimSpace(cfg.Provider), "gologger") {
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     level,
			Format:    cfg.Format,
			AddSource: cfg.AddSource,
		})
		if err != nil {
			return nil, fmt.Errorf("di: configure go-logger: %w", err)
		}
		return provider, nil
	}
	return console.NewProvider(console.Options{TimeFunc: c.now, MinLevel: level}), nil
}

func (c *Container) configureEvents() {
	if c.sink != nil {
		c.bus.Subscribe(c.sink.Emit)
	}
	c.emitter = events.NewEmitter(c.bus, events.WithClock(c.now))
}

func (c *Container) configureClient() {
	if c.cache == nil {
		c.cache = cache.NewMemory(cache.WithClock(c.now))
	}
	clientOpts := []client.Option{
		client.WithCache(c.cache),
		client.WithLogger(logging.ClientLogger(c.loggerProvider)),
	}
	if c.httpClient != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(c.httpClient))
	}
	if c.sleep != nil {
		clientOpts = append(clientOpts, client.WithSleeper(c.sleep))
	}
	c.client = client.New(client.Config{
		BaseURL:    c.Config.BaseURL,
		APIKey:     c.Config.APIKey,
		Timeout:    c.Config.HTTP.Timeout(),
		MaxRetries: c.Config.HTTP.MaxRetries,
		Backoff:    c.Config.HTTP.Backoff(),
	}, clientOpts...)
}

func (c *Container) configureRendering() {
	m := c.Config.Media
	v := c.Config.Video
	c.resolver = media.NewResolver(media.Config{
		CDNHost:        m.CDNHost,
		PathMarker:     m.PathMarker,
		ImageTransform: m.ImageTransform,
		VideoTransform: m.VideoTransform,
		GIFAsVideo:     m.GIFAsVideo,
	},
		media.WithLogger(logging.MediaLogger(c.loggerProvider)),
		media.WithVideo(media.VideoConfig{
			Autoplay:  v.Autoplay,
			HoverPlay: v.HoverPlay,
			Muted:     v.Muted,
			Loop:      v.Loop,
			Controls:  v.Controls,
		}),
	)
	c.binder = binder.New(c.resolver,
		binder.WithMaxRepeat(c.Config.Lists.MaxRepeat),
		binder.WithLogger(logging.ModuleLogger(c.loggerProvider, "listbind.binder")),
	)
}

// NewRuntime returns a runtime for one document. Each runtime owns a fresh
// state store; the client cache is shared.
func (c *Container) NewRuntime(opts ...runtime.Option) *runtime.Runtime {
	base := []runtime.Option{
		runtime.WithLogger(logging.RuntimeLogger(c.loggerProvider)),
		runtime.WithEmitter(c.emitter),
		runtime.WithFilterOptions(
			filters.WithDebounce(c.Config.Filters.Debounce()),
			filters.WithLogger(logging.FiltersLogger(c.loggerProvider)),
		),
	}
	return runtime.New(c.client, c.binder, runtime.Config{
		DefaultProgram: c.Config.DefaultProgram,
		DefaultLimit:   c.Config.Lists.DefaultLimit,
	}, append(base, opts...)...)
}

// Hydrate parses in, loads every list it declares and writes the rendered
// document to out. Lists that fail render their error state; only parse and
// write failures are returned.
func (c *Container) Hydrate(ctx context.Context, in io.Reader, out io.Writer, initial domain.Filters) error {
	doc, err := dom.Parse(in)
	if err != nil {
		return fmt.Errorf("di: parse document: %w", err)
	}
	var opts []runtime.Option
	if len(initial) > 0 {
		opts = append(opts, runtime.WithInitialFilters(initial))
	}
	rt := c.NewRuntime(opts...)
	defer rt.Close()
	if err := rt.Init(ctx, doc); err != nil {
		return err
	}
	rt.Wait()

	failed := 0
	for _, id := range rt.Lists() {
		if rt.State(id).Err != nil {
			failed++
		}
	}
	c.logger.WithContext(ctx).Info("container.hydrated", "lists", len(rt.Lists()), "failed", failed)
	return dom.Render(out, doc)
}

// Client exposes the catalog API client.
func (c *Container) Client() *client.Client {
	return c.client
}

// Cache exposes the response cache.
func (c *Container) Cache() interfaces.CacheProvider {
	return c.cache
}

// MediaResolver exposes the configured media resolver.
func (c *Container) MediaResolver() *media.Resolver {
	return c.resolver
}

// Binder exposes the template binder.
func (c *Container) Binder() *binder.Binder {
	return c.binder
}

// Events exposes the bus every runtime emits on.
func (c *Container) Events() *events.Bus {
	return c.bus
}

// LoggerProvider exposes the configured logger provider.
func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

// Logger returns the module logger for name.
func (c *Container) Logger(name string) interfaces.Logger {
	return logging.ModuleLogger(c.loggerProvider, name)
}
