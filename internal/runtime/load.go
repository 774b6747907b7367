package runtime

import (
	"context"
	"fmt"
	"slices"

	"github.com/goliatone/go-listbind/internal/client"
	"github.com/goliatone/go-listbind/internal/dom"
	"github.com/goliatone/go-listbind/internal/domain"
	"github.com/goliatone/go-listbind/internal/logging"
	"github.com/goliatone/go-listbind/internal/state"
)

// Mode selects how a load positions and merges its page.
type Mode int

const (
	// ModeReplace fetches from offset zero and replaces the rendered list.
	ModeReplace Mode = iota
	// ModeAppend fetches at the current offset and appends to the list.
	ModeAppend
	// ModePage fetches at the current offset and replaces the list.
	ModePage
)

func (m Mode) String() string {
	switch m {
	case ModeAppend:
		return "append"
	case ModePage:
		return "page"
	default:
		return "replace"
	}
}

// Load fetches a page for listID and renders it. Every load takes a new
// generation; a load that settles after a newer one started is discarded, so
// the most recently issued request always wins.
func (r *Runtime) Load(ctx context.Context, listID string, mode Mode) error {
	return r.load(ctx, listID, mode, -1)
}

// load fetches at offset when it is not negative, otherwise at the position
// mode implies. State only moves to the new offset when the fetch succeeds.
func (r *Runtime) load(ctx context.Context, listID string, mode Mode, offset int) error {
	l := r.list(listID)
	if l == nil {
		return fmt.Errorf("%w: %s", ErrUnknownList, listID)
	}
	if l.setupErr != nil {
		return l.setupErr
	}
	logger := logging.WithListContext(r.logger, listID, l.program)

	r.tree.Lock()
	current := r.store.Get(listID)
	fetchOffset := current.Offset
	switch {
	case offset >= 0:
		fetchOffset = offset
	case mode == ModeReplace:
		fetchOffset = 0
	}
	loading := domain.ListLoading
	gen, begun := r.store.Begin(listID, state.Patch{Status: &loading, Loading: state.Ptr(true)})
	r.renderLoading(l, mode)
	r.tree.Unlock()

	defer func() {
		r.tree.Lock()
		defer r.tree.Unlock()
		if _, ok := r.store.Commit(listID, gen, state.Patch{Loading: state.Ptr(false)}); ok {
			r.clearLoading(l)
		}
	}()

	logger.Debug("runtime.load", "mode", mode, "offset", fetchOffset, "limit", begun.Limit, "generation", gen)
	resp, err := r.catalog.Experts(ctx, l.program, begun.Filters, client.Page{Offset: fetchOffset, Limit: begun.Limit})
	if err != nil {
		return r.fail(ctx, l, gen, err)
	}

	records := resp.Data
	if mode == ModeAppend {
		records = append(slices.Clone(begun.Records), resp.Data...)
	}
	ready := domain.ListReady
	patch := state.Patch{
		Records:     &records,
		Status:      &ready,
		Loading:     state.Ptr(false),
		Err:         state.Ptr[error](nil),
		Offset:      state.Ptr(fetchOffset + len(resp.Data)),
		TotalCount:  state.Ptr(resp.TotalCount),
		HasNextPage: state.Ptr(len(resp.Data) == begun.Limit),
	}

	r.tree.Lock()
	committed, ok := r.store.Commit(listID, gen, patch)
	if ok {
		r.renderRecords(l, mode, resp.Data, committed)
		r.refreshActions()
	}
	r.tree.Unlock()

	if !ok {
		logger.Debug("runtime.load.stale", "generation", gen)
		return nil
	}
	logger.Debug("runtime.load.done", "records", len(committed.Records), "total", committed.TotalCount, "has_next", committed.HasNextPage)
	r.emitter.Loaded(ctx, listID, committed.Records, committed.TotalCount, committed.Filters)
	return nil
}

func (r *Runtime) reload(ctx context.Context, listID string) error {
	return r.Load(ctx, listID, ModeReplace)
}

func (r *Runtime) fail(ctx context.Context, l *list, gen uint64, err error) error {
	failed := domain.ListError
	r.tree.Lock()
	_, ok := r.store.Commit(l.id, gen, state.Patch{Status: &failed, Err: &err, Loading: state.Ptr(false)})
	if ok {
		r.renderError(l, err)
		r.refreshActions()
	}
	r.tree.Unlock()
	if !ok {
		return nil
	}
	r.emitter.Failed(ctx, l.id, err, "load")
	return err
}

// Rendering helpers below expect r.tree to be held.

func (r *Runtime) renderLoading(l *list, mode Mode) {
	dom.Show(l.loading)
	dom.AddClass(l.container, dom.ClassLoading)
	dom.SetAttr(l.container, "aria-busy", "true")
	dom.Hide(l.errNode)
	dom.Hide(l.empty)
	dom.RemoveClass(l.container, dom.ClassError)
	if mode == ModeAppend || l.placeholders == 0 || l.template == nil {
		return
	}
	r.removeItems(l)
	r.removeSkeletons(l)
	for range l.placeholders {
		skeleton := r.binder.Skeleton(l.template)
		l.marker.Parent.InsertBefore(skeleton, l.marker)
		l.skeletons = append(l.skeletons, skeleton)
	}
}

func (r *Runtime) clearLoading(l *list) {
	dom.Hide(l.loading)
	dom.RemoveClass(l.container, dom.ClassLoading)
	dom.RemoveAttr(l.container, "aria-busy")
	r.removeSkeletons(l)
}

func (r *Runtime) renderRecords(l *list, mode Mode, fresh []domain.Record, st state.ListState) {
	r.removeSkeletons(l)
	if mode != ModeAppend {
		r.removeItems(l)
	}
	for _, record := range fresh {
		node := r.binder.Bind(l.template, record)
		l.marker.Parent.InsertBefore(node, l.marker)
		l.items = append(l.items, node)
	}
	empty := len(st.Records) == 0
	dom.SetVisible(l.empty, empty)
	if empty {
		dom.AddClass(l.container, dom.ClassEmpty)
	} else {
		dom.RemoveClass(l.container, dom.ClassEmpty)
	}
}

func (r *Runtime) renderError(l *list, err error) {
	r.removeSkeletons(l)
	dom.AddClass(l.container, dom.ClassError)
	if l.errNode != nil {
		dom.SetText(l.errNode, message(err))
		dom.Show(l.errNode)
	}
}

func (r *Runtime) removeItems(l *list) {
	for _, node := range l.items {
		dom.Detach(node)
	}
	l.items = nil
}

func (r *Runtime) removeSkeletons(l *list) {
	for _, node := range l.skeletons {
		dom.Detach(node)
	}
	l.skeletons = nil
}
