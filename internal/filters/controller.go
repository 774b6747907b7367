// Package filters binds filter controls in the host document to list state.
package filters

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-listbind/internal/domain"
	"github.com/goliatone/go-listbind/internal/events"
	"github.com/goliatone/go-listbind/internal/logging"
	"github.com/goliatone/go-listbind/internal/state"
	"github.com/goliatone/go-listbind/pkg/interfaces"
)

// DefaultDebounce is the settle delay of text and search controls.
const DefaultDebounce = 300 * time.Millisecond

// ReloadFunc reloads a list from offset zero after its filters changed.
type ReloadFunc func(ctx context.Context, listID string) error

// Option customises the controller.
type Option func(*Controller)

// WithDebounce overrides the delay applied to text and search controls.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.debounce = d
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEmitter sets the emitter used for filter-changed events.
func WithEmitter(emitter *events.Emitter) Option {
	return func(c *Controller) {
		if emitter != nil {
			c.emitter = emitter
		}
	}
}

// WithTreeLock shares the lock that guards the document tree, so control
// nodes are only read and written while no render is in progress.
func WithTreeLock(lock sync.Locker) Option {
	return func(c *Controller) {
		if lock != nil {
			c.tree = lock
		}
	}
}

// Controller turns control edits into filter updates and reloads.
type Controller struct {
	store    *state.Store
	reload   ReloadFunc
	emitter  *events.Emitter
	logger   interfaces.Logger
	debounce time.Duration
	tree     sync.Locker

	mu          sync.Mutex
	controls    []Control
	definitions map[string][]domain.FilterDefinition
	timers      map[string]*time.Timer
	pending     sync.WaitGroup
}

// NewController constructs a controller over store; reload is invoked after
// every applied change.
func NewController(store *state.Store, reload ReloadFunc, opts ...Option) *Controller {
	c := &Controller{
		store:       store,
		reload:      reload,
		emitter:     events.NewEmitter(nil),
		logger:      logging.NoOp(),
		debounce:    DefaultDebounce,
		tree:        &sync.Mutex{},
		definitions: make(map[string][]domain.FilterDefinition),
		timers:      make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds discovered controls.
func (c *Controller) Register(controls ...Control) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controls = append(c.controls, controls...)
}

// Controls returns the registered controls targeting listID.
func (c *Controller) Controls(listID string) []Control {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Control
	for _, control := range c.controls {
		if control.ListTarget == listID {
			out = append(out, control)
		}
	}
	return out
}

// Find returns the control named name targeting listID.
func (c *Controller) Find(listID, name string) (Control, bool) {
	for _, control := range c.Controls(listID) {
		if control.Name == name {
			return control, true
		}
	}
	return Control{}, false
}

// SetDefinitions records the filter metadata used to coerce a list's values.
func (c *Controller) SetDefinitions(listID string, definitions []domain.FilterDefinition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.definitions[listID] = definitions
}

func (c *Controller) definition(listID, name string) *domain.FilterDefinition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lookupDefinition(c.definitions[listID], name)
}

// Change writes raw into the control and applies it. Text and search
// controls wait for the debounce delay; a later change to the same control
// replaces the pending one.
func (c *Controller) Change(ctx context.Context, control Control, raw string) error {
	c.tree.Lock()
	Write(control, raw)
	c.tree.Unlock()

	if !control.Debounced() || c.debounce == 0 {
		return c.Apply(ctx, control)
	}

	detached := context.WithoutCancel(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if timer, ok := c.timers[control.Key()]; ok && timer.Stop() {
		c.pending.Done()
	}
	c.pending.Add(1)
	c.timers[control.Key()] = time.AfterFunc(c.debounce, func() {
		defer c.pending.Done()
		if err := c.Apply(detached, control); err != nil {
			c.logger.Warn("filters.apply.failed", "list_id", control.ListTarget, "filter", control.Name, "error", err)
		}
	})
	return nil
}

// Apply reads the control, merges the coerced value into the list filters,
// resets the offset and reloads the list.
func (c *Controller) Apply(ctx context.Context, control Control) error {
	c.tree.Lock()
	raw := Read(control)
	c.tree.Unlock()
	return c.apply(ctx, control, raw)
}

// Set applies raw to a filter that has no control in the document.
func (c *Controller) Set(ctx context.Context, listID, name, raw string) error {
	return c.apply(ctx, Control{Name: name, Type: "text", ListTarget: listID}, raw)
}

func (c *Controller) apply(ctx context.Context, control Control, raw any) error {
	value, set := Coerce(control, raw, c.definition(control.ListTarget, control.Name))
	key := domain.AliasFilterName(control.Name)
	patch := domain.Filters{key: nil}
	if set {
		patch[key] = value
	}

	merged := c.store.MergeFilters(control.ListTarget, patch)
	c.logger.Debug("filters.changed", "list_id", control.ListTarget, "filter", key, "set", set)
	c.emitter.FilterChanged(ctx, control.ListTarget, merged.Filters)

	if c.reload == nil {
		return nil
	}
	return c.reload(ctx, control.ListTarget)
}

// Clear resets every control of listID and drops all of its filters without
// reloading.
func (c *Controller) Clear(ctx context.Context, listID string) {
	controls := c.Controls(listID)
	c.mu.Lock()
	for _, control := range controls {
		if timer, ok := c.timers[control.Key()]; ok && timer.Stop() {
			c.pending.Done()
		}
		delete(c.timers, control.Key())
	}
	c.mu.Unlock()

	c.tree.Lock()
	for _, control := range controls {
		Reset(control)
	}
	c.tree.Unlock()

	c.store.Update(listID, state.Patch{Filters: &domain.Filters{}, Offset: state.Ptr(0)})
	c.emitter.FilterChanged(ctx, listID, domain.Filters{})
}

// Wait blocks until every pending debounced change has been applied.
func (c *Controller) Wait() {
	c.pending.Wait()
}

// Stop cancels pending debounced changes.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, timer := range c.timers {
		if timer.Stop() {
			c.pending.Done()
		}
		delete(c.timers, key)
	}
}
