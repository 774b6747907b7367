// Package binder turns a template element and a record into a populated,
// detached node tree. Binding never mutates the template or the record.
package binder

import (
	"strconv"

	"golang.org/x/net/html"

	"github.com/goliatone/go-listbind/internal/condition"
	"github.com/goliatone/go-listbind/internal/dom"
	"github.com/goliatone/go-listbind/internal/domain"
	"github.com/goliatone/go-listbind/internal/logging"
	"github.com/goliatone/go-listbind/internal/media"
	"github.com/goliatone/go-listbind/pkg/interfaces"
)

// DefaultMaxRepeat caps repeat containers that do not declare a max.
const DefaultMaxRepeat = 10

// SkeletonClass marks placeholder clones rendered while a list loads.
const SkeletonClass = "lb-skeleton"

// MediaResolver builds the element that displays a media URL.
type MediaResolver interface {
	Resolve(src string) (*html.Node, media.Kind)
}

// Option customises the binder.
type Option func(*Binder)

// WithMaxRepeat sets the default item cap of repeat containers.
func WithMaxRepeat(limit int) Option {
	return func(b *Binder) {
		if limit > 0 {
			b.maxRepeat = limit
		}
	}
}

// WithLogger sets the logger used for binding diagnostics.
func WithLogger(logger interfaces.Logger) Option {
	return func(b *Binder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Binder populates templates with records.
type Binder struct {
	media     MediaResolver
	maxRepeat int
	logger    interfaces.Logger
}

// New constructs a binder. A nil resolver leaves media targets as plain src swaps.
func New(resolver MediaResolver, opts ...Option) *Binder {
	b := &Binder{
		media:     resolver,
		maxRepeat: DefaultMaxRepeat,
		logger:    logging.NoOp(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bind clones template and populates the clone from record. The clone is
// tagged with the record id and stripped of template markers.
func (b *Binder) Bind(template *html.Node, record domain.Record) *html.Node {
	clone := dom.Clone(template)
	if clone == nil {
		return nil
	}
	if dom.HasAttr(clone, dom.AttrTemplate) {
		dom.RemoveAttr(clone, dom.AttrTemplate)
		dom.Show(clone)
	}
	// Field targets may be replaced (img -> video), so the root is wrapped
	// while binding to keep a stable parent.
	holder := dom.Element("div")
	holder.AppendChild(clone)
	b.bindInto(holder, record)
	clone = holder.FirstChild
	holder.RemoveChild(clone)

	dom.SetAttr(clone, dom.AttrItem, record.ID())
	return clone
}

// BindAttr binds every element under root carrying attr, using the attribute
// value as the field name. It mutates root in place and is used for
// document-level bindings such as program metadata.
func (b *Binder) BindAttr(root *html.Node, record domain.Record, attr string) {
	for _, node := range dom.FindAllAttr(root, attr) {
		value, ok := record.Value(dom.GetAttr(node, attr))
		b.set(node, value, ok, dom.GetAttr(node, dom.AttrFormat))
	}
}

// Skeleton clones template as an unbound loading placeholder.
func (b *Binder) Skeleton(template *html.Node) *html.Node {
	clone := dom.Clone(template)
	if clone == nil {
		return nil
	}
	dom.RemoveAttr(clone, dom.AttrTemplate)
	dom.Show(clone)
	dom.SetAttr(clone, dom.AttrPlaceholder, "")
	dom.SetAttr(clone, "aria-hidden", "true")
	dom.AddClass(clone, SkeletonClass)
	for _, node := range dom.FindAllAttr(clone, dom.AttrField) {
		if node.Type == html.ElementNode && !isMedia(node) {
			dom.RemoveChildren(node)
		}
	}
	for _, node := range dom.FindAllAttr(clone, dom.AttrRepeat) {
		dom.RemoveChildren(node)
	}
	return clone
}

type detached struct {
	marker    *html.Node
	container *html.Node
}

// bindInto populates the subtree under root for one record. Repeat
// containers are detached first so scalar binding never reaches into their
// differently shaped item records.
func (b *Binder) bindInto(root *html.Node, record domain.Record) {
	repeats := b.detachRepeats(root)

	for _, node := range dom.FindAllAttr(root, dom.AttrField) {
		if node == root {
			continue
		}
		value, ok := record.Value(dom.GetAttr(node, dom.AttrField))
		b.set(node, value, ok, dom.GetAttr(node, dom.AttrFormat))
	}
	for _, node := range dom.FindAllAttr(root, dom.AttrStars) {
		score, _ := domain.Number(lookup(record, dom.GetAttr(node, dom.AttrStars)))
		renderStars(node, score)
	}

	for _, item := range repeats {
		dom.Replace(item.marker, item.container)
		b.populate(item.container, record)
	}

	applyConditions(root, record)
	stripMarkers(root)
}

func (b *Binder) detachRepeats(root *html.Node) []detached {
	var out []detached
	for _, node := range dom.FindAllAttr(root, dom.AttrRepeat) {
		if node == root || node.Parent == nil || insideDetached(node, out) {
			continue
		}
		marker := &html.Node{Type: html.CommentNode, Data: "lb-repeat"}
		node.Parent.InsertBefore(marker, node)
		node.Parent.RemoveChild(node)
		out = append(out, detached{marker: marker, container: node})
	}
	return out
}

func insideDetached(node *html.Node, list []detached) bool {
	for _, item := range list {
		if dom.Within(node, item.container) {
			return true
		}
	}
	return false
}

// populate fills a repeat container with one clone of its first element
// child per collection item, capped at the container's max. Containers with
// no items are hidden.
func (b *Binder) populate(container *html.Node, record domain.Record) {
	items := record.Collection(dom.GetAttr(container, dom.AttrRepeat))
	limit := b.maxRepeat
	if raw := dom.GetAttr(container, dom.AttrMax); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			limit = parsed
		}
	}
	if len(items) > limit {
		items = items[:limit]
	}

	itemTemplate := dom.FirstElementChild(container)
	dom.RemoveChildren(container)
	if itemTemplate == nil || len(items) == 0 {
		dom.Hide(container)
		return
	}
	dom.Show(container)

	for _, item := range items {
		holder := dom.Element("div")
		holder.AppendChild(dom.Clone(itemTemplate))
		b.bindInto(holder, item)
		for child := holder.FirstChild; child != nil; child = holder.FirstChild {
			holder.RemoveChild(child)
			container.AppendChild(child)
		}
	}
}

// applyConditions evaluates show/hide markers for this record, leaving repeat
// items (already evaluated against their own records) alone.
func applyConditions(root *html.Node, record domain.Record) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			show, hasShow := dom.Attr(n, dom.AttrShowWhen)
			hide, hasHide := dom.Attr(n, dom.AttrHideWhen)
			if (hasShow || hasHide) && !condition.Visible(record, show, hide) {
				dom.Hide(n)
			}
			if dom.HasAttr(n, dom.AttrRepeat) {
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
}

var markerAttrs = []string{
	dom.AttrField, dom.AttrFormat, dom.AttrStars, dom.AttrRepeat, dom.AttrMax,
	dom.AttrShowWhen, dom.AttrHideWhen,
}

func stripMarkers(root *html.Node) {
	for _, node := range dom.FindAll(root, func(*html.Node) bool { return true }) {
		for _, attr := range markerAttrs {
			dom.RemoveAttr(node, attr)
		}
	}
}

func lookup(record domain.Record, field string) any {
	value, _ := record.Value(field)
	return value
}
