package binder

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/goliatone/go-listbind/internal/dom"
	"github.com/goliatone/go-listbind/internal/domain"
	"github.com/goliatone/go-listbind/internal/format"
	"github.com/goliatone/go-listbind/internal/media"
)

// target is one bindable element kind. The set is closed: anchor, input,
// media and text.
type target interface {
	set(value any, present bool)
}

type anchorTarget struct {
	node *html.Node
}

type inputTarget struct {
	node *html.Node
}

type mediaTarget struct {
	node   *html.Node
	binder *Binder
}

type textTarget struct {
	node *html.Node
	spec string
}

func (b *Binder) targetFor(node *html.Node, spec string) target {
	switch node.DataAtom {
	case atom.A:
		return anchorTarget{node: node}
	case atom.Input, atom.Textarea, atom.Select:
		return inputTarget{node: node}
	case atom.Img, atom.Video, atom.Source:
		return mediaTarget{node: node, binder: b}
	default:
		return textTarget{node: node, spec: spec}
	}
}

func (b *Binder) set(node *html.Node, value any, present bool, spec string) {
	b.targetFor(node, spec).set(value, present)
}

func isMedia(node *html.Node) bool {
	return node.DataAtom == atom.Img || node.DataAtom == atom.Video || node.DataAtom == atom.Source
}

// Anchors keep an authored label; an empty anchor shows the link itself.
func (t anchorTarget) set(value any, present bool) {
	href := strings.TrimSpace(domain.Stringify(value))
	if !present || href == "" {
		dom.RemoveAttr(t.node, "href")
		dom.Hide(t.node)
		return
	}
	dom.SetAttr(t.node, "href", href)
	if strings.TrimSpace(dom.Text(t.node)) == "" && dom.FirstElementChild(t.node) == nil {
		dom.SetText(t.node, href)
	}
}

func (t inputTarget) set(value any, present bool) {
	text := ""
	if present {
		text = domain.Stringify(value)
	}
	switch t.node.DataAtom {
	case atom.Textarea:
		dom.SetText(t.node, text)
	case atom.Select:
		for _, option := range dom.FindAll(t.node, func(n *html.Node) bool { return n.DataAtom == atom.Option }) {
			optionValue, ok := dom.Attr(option, "value")
			if !ok {
				optionValue = dom.Text(option)
			}
			dom.ToggleAttr(option, "selected", present && strings.EqualFold(strings.TrimSpace(optionValue), text))
		}
	default:
		switch strings.ToLower(dom.GetAttr(t.node, "type")) {
		case "checkbox", "radio":
			checked, isBool := value.(bool)
			if !isBool {
				checked = present && strings.EqualFold(text, dom.GetAttr(t.node, "value"))
			}
			dom.ToggleAttr(t.node, "checked", checked)
		default:
			dom.SetAttr(t.node, "value", text)
		}
	}
}

// Media targets are replaced by the resolved element; attributes authored on
// the target (class, alt, sizing) carry over. A missing URL degrades to the
// unavailable placeholder.
func (t mediaTarget) set(value any, present bool) {
	src := strings.TrimSpace(domain.Stringify(value))
	if !present || src == "" {
		dom.Replace(t.node, media.Placeholder())
		return
	}
	if t.node.DataAtom == atom.Source || t.binder.media == nil {
		dom.SetAttr(t.node, "src", src)
		return
	}
	replacement, kind := t.binder.media.Resolve(src)
	carryAttributes(t.node, replacement)
	t.binder.logger.Trace("binder.media", "src", src, "kind", kind)
	dom.Replace(t.node, replacement)
}

func carryAttributes(from, to *html.Node) {
	for _, attr := range from.Attr {
		if attr.Namespace != "" || strings.HasPrefix(attr.Key, dom.Prefix) {
			continue
		}
		switch attr.Key {
		case "src", "poster", "style", "onerror":
			continue
		case "class":
			for _, class := range strings.Fields(attr.Val) {
				dom.AddClass(to, class)
			}
			continue
		case "alt":
			if to.DataAtom != atom.Img {
				continue
			}
		}
		dom.SetAttr(to, attr.Key, attr.Val)
	}
}

func (t textTarget) set(value any, present bool) {
	if !present {
		dom.SetText(t.node, format.Format(nil, t.spec))
		return
	}
	if strings.EqualFold(strings.TrimSpace(t.spec), format.Markdown) {
		if setMarkdown(t.node, domain.Stringify(value)) {
			return
		}
	}
	dom.SetText(t.node, format.Format(value, t.spec))
}

func setMarkdown(node *html.Node, src string) bool {
	rendered, err := format.RenderMarkdown(src)
	if err != nil {
		return false
	}
	nodes, err := html.ParseFragment(strings.NewReader(rendered), node)
	if err != nil {
		return false
	}
	dom.RemoveChildren(node)
	for _, child := range nodes {
		node.AppendChild(child)
	}
	return true
}
