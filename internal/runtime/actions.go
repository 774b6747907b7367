package runtime

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/goliatone/go-listbind/internal/dom"
	"github.com/goliatone/go-listbind/internal/state"
)

// Recognised action names.
const (
	ActionLoadMore     = "load-more"
	ActionClearFilters = "clear-filters"
	ActionNextPage     = "next-page"
	ActionPrevPage     = "prev-page"
	ActionReload       = "reload"
)

// Trigger runs the action declared on node against its target list.
func (r *Runtime) Trigger(ctx context.Context, node *html.Node) error {
	r.tree.Lock()
	action := dom.GetAttr(node, dom.AttrAction)
	target := r.actionTarget(node)
	r.tree.Unlock()
	return r.TriggerAction(ctx, target, action)
}

// TriggerAction runs action on listID. Paging actions are no-ops when there
// is no page to move to.
func (r *Runtime) TriggerAction(ctx context.Context, listID, action string) error {
	l := r.list(listID)
	if l == nil {
		return fmt.Errorf("%w: %q", ErrUnknownList, listID)
	}
	current := r.store.Get(listID)
	switch strings.ToLower(strings.TrimSpace(action)) {
	case ActionLoadMore:
		if !current.HasNextPage {
			return nil
		}
		return r.Load(ctx, listID, ModeAppend)
	case ActionNextPage:
		if !current.HasNextPage {
			return nil
		}
		return r.Load(ctx, listID, ModePage)
	case ActionPrevPage:
		start := pageStart(current)
		if start <= 0 {
			return nil
		}
		return r.load(ctx, listID, ModePage, max(0, start-current.Limit))
	case ActionClearFilters:
		r.filters.Clear(ctx, listID)
		return r.Load(ctx, listID, ModeReplace)
	case ActionReload:
		if err := r.catalog.InvalidateExperts(ctx, l.program); err != nil {
			r.logger.Warn("runtime.reload.invalidate_failed", "list_id", listID, "error", err)
		}
		return r.Load(ctx, listID, ModeReplace)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

// ChangeFilter sets a filter of listID as if the user edited its control.
// Filters without a control in the document are applied directly.
func (r *Runtime) ChangeFilter(ctx context.Context, listID, name, raw string) error {
	if r.list(listID) == nil {
		return fmt.Errorf("%w: %q", ErrUnknownList, listID)
	}
	if strings.TrimSpace(name) == "" {
		return ErrUnknownFilter
	}
	if control, ok := r.filters.Find(listID, name); ok {
		return r.filters.Change(ctx, control, raw)
	}
	return r.filters.Set(ctx, listID, name, raw)
}

// pageStart is the offset of the first record currently shown.
func pageStart(st state.ListState) int {
	return max(0, st.Offset-len(st.Records))
}

// refreshActions disables paging controls that cannot act. Expects r.tree held.
func (r *Runtime) refreshActions() {
	for _, node := range r.actions {
		listID := r.actionTarget(node)
		if r.list(listID) == nil {
			continue
		}
		st := r.store.Get(listID)
		disabled := false
		switch strings.ToLower(dom.GetAttr(node, dom.AttrAction)) {
		case ActionLoadMore, ActionNextPage:
			disabled = !st.HasNextPage
		case ActionPrevPage:
			disabled = pageStart(st) == 0
		}
		dom.ToggleAttr(node, "disabled", disabled)
		if disabled {
			dom.SetAttr(node, "aria-disabled", "true")
		} else {
			dom.RemoveAttr(node, "aria-disabled")
		}
	}
}
