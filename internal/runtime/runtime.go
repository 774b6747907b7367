// Package runtime discovers declarative list containers in a document,
// loads their records from the catalog and keeps the rendered tree in step
// with per-list state.
package runtime

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/goliatone/go-listbind/internal/binder"
	"github.com/goliatone/go-listbind/internal/client"
	"github.com/goliatone/go-listbind/internal/dom"
	"github.com/goliatone/go-listbind/internal/domain"
	"github.com/goliatone/go-listbind/internal/events"
	"github.com/goliatone/go-listbind/internal/filters"
	"github.com/goliatone/go-listbind/internal/logging"
	"github.com/goliatone/go-listbind/internal/state"
	"github.com/goliatone/go-listbind/pkg/interfaces"
)

// Catalog is the subset of the API client the runtime depends on.
type Catalog interface {
	Program(ctx context.Context, programID string) (domain.Program, error)
	Experts(ctx context.Context, programID string, filters domain.Filters, page client.Page) (domain.ListResponse, error)
	FilterDefinitions(ctx context.Context, programID string) ([]domain.FilterDefinition, error)
	InvalidateExperts(ctx context.Context, programID string) error
}

// Config carries list defaults.
type Config struct {
	DefaultProgram string
	DefaultLimit   int
}

// Option customises the runtime.
type Option func(*Runtime)

// WithLogger sets the runtime logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEmitter sets the emitter used for load and error events.
func WithEmitter(emitter *events.Emitter) Option {
	return func(r *Runtime) {
		if emitter != nil {
			r.emitter = emitter
		}
	}
}

// WithStore shares an existing state store.
func WithStore(store *state.Store) Option {
	return func(r *Runtime) {
		if store != nil {
			r.store = store
		}
	}
}

// WithFilterOptions forwards options to the filter controller.
func WithFilterOptions(opts ...filters.Option) Option {
	return func(r *Runtime) {
		r.filterOpts = append(r.filterOpts, opts...)
	}
}

// WithInitialFilters seeds every list with filters before its first load.
func WithInitialFilters(initial domain.Filters) Option {
	return func(r *Runtime) {
		r.initial = initial.Clone()
	}
}

// Runtime owns the lifecycle of the lists declared in one document.
type Runtime struct {
	catalog    Catalog
	binder     *binder.Binder
	store      *state.Store
	filters    *filters.Controller
	emitter    *events.Emitter
	logger     interfaces.Logger
	cfg        Config
	initial    domain.Filters
	filterOpts []filters.Option

	// tree serialises every read and write of the document.
	tree sync.Mutex

	mu      sync.RWMutex
	doc     *html.Node
	lists   map[string]*list
	order   []string
	actions []*html.Node
}

// list is the discovered structure of one container.
type list struct {
	id           string
	program      string
	container    *html.Node
	template     *html.Node
	marker       *html.Node
	loading      *html.Node
	errNode      *html.Node
	empty        *html.Node
	placeholders int
	items        []*html.Node
	skeletons    []*html.Node
	setupErr     error
}

// New constructs a runtime.
func New(catalog Catalog, b *binder.Binder, cfg Config, opts ...Option) *Runtime {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = state.DefaultLimit
	}
	r := &Runtime{
		catalog: catalog,
		binder:  b,
		cfg:     cfg,
		emitter: events.NewEmitter(nil),
		logger:  logging.NoOp(),
		lists:   make(map[string]*list),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.store == nil {
		r.store = state.NewStore(state.WithDefaultLimit(cfg.DefaultLimit))
	}
	if r.binder == nil {
		r.binder = binder.New(nil)
	}
	filterOpts := append([]filters.Option{
		filters.WithEmitter(r.emitter),
		filters.WithTreeLock(&r.tree),
	}, r.filterOpts...)
	r.filters = filters.NewController(r.store, r.reload, filterOpts...)
	return r
}

// Init discovers the lists in doc, fetches shared program metadata, loads
// every list and prepares the action controls. A list that fails never
// prevents the others from loading; its failure is recorded in its state.
func (r *Runtime) Init(ctx context.Context, doc *html.Node) error {
	if doc == nil {
		return ErrNoDocument
	}
	r.logger.Debug("runtime.discover")
	r.discover(doc)

	r.logger.Debug("runtime.metadata")
	r.fetchMetadata(ctx)

	for _, id := range r.Lists() {
		l := r.list(id)
		if l.setupErr != nil {
			r.failSetup(ctx, l)
			continue
		}
		if err := r.Load(ctx, id, ModeReplace); err != nil {
			logging.WithListContext(r.logger, id, l.program).Warn("runtime.list.init_failed", "error", err)
		}
	}

	r.tree.Lock()
	r.refreshActions()
	r.tree.Unlock()
	r.logger.Debug("runtime.idle", "lists", len(r.order))
	return nil
}

// Lists returns the discovered list ids in document order.
func (r *Runtime) Lists() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// State returns a snapshot of a list's state.
func (r *Runtime) State(listID string) state.ListState {
	return r.store.Get(listID)
}

// Wait blocks until pending debounced filter changes have reloaded.
func (r *Runtime) Wait() {
	r.filters.Wait()
}

// Close drops pending debounced changes.
func (r *Runtime) Close() {
	r.filters.Stop()
}

func (r *Runtime) list(id string) *list {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lists[id]
}

func (r *Runtime) discover(doc *html.Node) {
	r.tree.Lock()
	defer r.tree.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	r.doc = doc
	for _, container := range dom.FindAllAttr(doc, dom.AttrListID) {
		id := dom.GetAttr(container, dom.AttrListID)
		if id == "" {
			continue
		}
		if _, exists := r.lists[id]; exists {
			r.logger.Warn("runtime.list.duplicate", "list_id", id)
			continue
		}
		l := &list{
			id:        id,
			program:   dom.GetAttr(container, dom.AttrProgram),
			container: container,
			loading:   own(container, dom.AttrLoading),
			errNode:   own(container, dom.AttrError),
			empty:     own(container, dom.AttrEmpty),
		}
		if l.program == "" {
			l.program = r.cfg.DefaultProgram
		}
		if raw := dom.GetAttr(container, dom.AttrPrerenderPlaceholders); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				l.placeholders = n
			}
		}

		limit := r.cfg.DefaultLimit
		if raw := dom.GetAttr(container, dom.AttrLimit); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}
		patch := state.Patch{Limit: state.Ptr(limit)}
		if len(r.initial) > 0 {
			patch.Filters = &r.initial
		}
		r.store.Update(id, patch)

		if tpl := own(container, dom.AttrTemplate); tpl != nil && tpl.Parent != nil {
			l.marker = &html.Node{Type: html.CommentNode, Data: " " + dom.AttrItem + " " + id + " "}
			tpl.Parent.InsertBefore(l.marker, tpl)
			tpl.Parent.RemoveChild(tpl)
			l.template = tpl
		} else {
			l.setupErr = configError(id, ErrMissingTemplate)
		}
		dom.Hide(l.loading)
		dom.Hide(l.errNode)
		dom.Hide(l.empty)

		r.lists[id] = l
		r.order = append(r.order, id)
	}

	single := ""
	if len(r.order) == 1 {
		single = r.order[0]
	}
	controls := filters.Discover(doc)
	for i := range controls {
		if controls[i].ListTarget == "" {
			controls[i].ListTarget = single
		}
	}
	r.filters.Register(controls...)

	r.actions = dom.FindAllAttr(doc, dom.AttrAction)
}

// own returns the first node carrying attr that belongs to container rather
// than to a list nested inside it.
func own(container *html.Node, attr string) *html.Node {
	for _, node := range dom.FindAllAttr(container, attr) {
		if owner(node) == container {
			return node
		}
	}
	return nil
}

func owner(node *html.Node) *html.Node {
	for p := node; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && dom.HasAttr(p, dom.AttrListID) {
			return p
		}
	}
	return nil
}

// actionTarget resolves the list an action control drives.
func (r *Runtime) actionTarget(node *html.Node) string {
	if target := dom.GetAttr(node, dom.AttrListTarget); target != "" {
		return target
	}
	if container := owner(node); container != nil {
		return dom.GetAttr(container, dom.AttrListID)
	}
	if lists := r.Lists(); len(lists) == 1 {
		return lists[0]
	}
	return ""
}

// fetchMetadata loads filter definitions and program metadata once per
// distinct program. Failures are reported but do not block list loading.
func (r *Runtime) fetchMetadata(ctx context.Context) {
	byProgram := map[string][]string{}
	var programs []string
	for _, id := range r.Lists() {
		l := r.list(id)
		if l.program == "" || l.setupErr != nil {
			continue
		}
		if _, seen := byProgram[l.program]; !seen {
			programs = append(programs, l.program)
		}
		byProgram[l.program] = append(byProgram[l.program], id)
	}

	for _, program := range programs {
		logger := logging.WithListContext(r.logger, "", program)
		definitions, err := r.catalog.FilterDefinitions(ctx, program)
		if err != nil {
			logger.Warn("runtime.filters.failed", "error", err)
			// Configuration problems surface once, from the list load itself.
			if apiErr, ok := client.AsError(err); !ok || apiErr.Kind != client.KindConfig {
				for _, id := range byProgram[program] {
					r.emitter.Failed(ctx, id, err, "filters")
				}
			}
		} else {
			r.tree.Lock()
			for _, id := range byProgram[program] {
				r.filters.SetDefinitions(id, definitions)
				filters.PopulateOptions(r.filters.Controls(id), definitions)
			}
			r.tree.Unlock()
		}

		meta, err := r.catalog.Program(ctx, program)
		if err != nil {
			logger.Warn("runtime.program.failed", "error", err)
			continue
		}
		r.bindProgram(program, len(programs) == 1, meta)
	}
}

func (r *Runtime) bindProgram(program string, only bool, meta domain.Program) {
	record := domain.Record(meta.Attributes)
	if record == nil {
		record = domain.Record{}
	}
	if _, ok := record["id"]; !ok {
		record["id"] = meta.ID
	}
	if _, ok := record["name"]; !ok && meta.Name != "" {
		record["name"] = meta.Name
	}

	r.tree.Lock()
	defer r.tree.Unlock()
	for _, node := range dom.FindAllAttr(r.doc, dom.AttrProgramField) {
		target := dom.GetAttr(node, dom.AttrProgram)
		if target == "" {
			if container := owner(node); container != nil {
				if l := r.list(dom.GetAttr(container, dom.AttrListID)); l != nil {
					target = l.program
				}
			}
		}
		if target == "" && (only || program == r.cfg.DefaultProgram) {
			target = program
		}
		if strings.EqualFold(target, program) {
			r.binder.BindAttr(node, record, dom.AttrProgramField)
		}
	}
}

func (r *Runtime) failSetup(ctx context.Context, l *list) {
	status := domain.ListError
	r.tree.Lock()
	r.store.Update(l.id, state.Patch{Status: &status, Err: &l.setupErr, Loading: state.Ptr(false)})
	r.renderError(l, l.setupErr)
	r.tree.Unlock()
	logging.WithListContext(r.logger, l.id, l.program).Warn("runtime.list.invalid", "error", l.setupErr)
	r.emitter.Failed(ctx, l.id, l.setupErr, "init")
}
