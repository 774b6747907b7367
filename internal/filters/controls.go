package filters

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/goliatone/go-listbind/internal/dom"
	"github.com/goliatone/go-listbind/internal/domain"
)

// Control is one filter-bound element of the host document.
type Control struct {
	Node       *html.Node
	Name       string
	Type       string
	ListTarget string
}

// Key identifies the control within its list.
func (c Control) Key() string {
	return c.ListTarget + "\x00" + c.Name
}

// Debounced reports whether changes should wait for typing to settle.
func (c Control) Debounced() bool {
	return c.Type == "text" || c.Type == "search"
}

// Discover finds every filter control under root. The target list is the
// explicit list-target, else the nearest enclosing list container.
func Discover(root *html.Node) []Control {
	var out []Control
	for _, node := range dom.FindAllAttr(root, dom.AttrFilter) {
		name := dom.GetAttr(node, dom.AttrFilter)
		if name == "" {
			continue
		}
		control := Control{
			Node:       node,
			Name:       name,
			Type:       controlType(node),
			ListTarget: dom.GetAttr(node, dom.AttrListTarget),
		}
		if control.ListTarget == "" {
			for p := node.Parent; p != nil; p = p.Parent {
				if id := dom.GetAttr(p, dom.AttrListID); id != "" {
					control.ListTarget = id
					break
				}
			}
		}
		out = append(out, control)
	}
	return out
}

func controlType(node *html.Node) string {
	if explicit := strings.ToLower(dom.GetAttr(node, dom.AttrFilterType)); explicit != "" {
		return explicit
	}
	switch node.DataAtom {
	case atom.Select:
		if dom.HasAttr(node, "multiple") {
			return "multiselect"
		}
		return "select"
	case atom.Textarea:
		return "text"
	case atom.Input:
		kind := strings.ToLower(dom.GetAttr(node, "type"))
		if kind == "" {
			return "text"
		}
		return kind
	default:
		return "text"
	}
}

// Read returns the current value of the control: a bool for checkboxes, a
// number for numeric inputs, the selected values of a multi-select and a
// string otherwise. Unparseable numbers read as nil.
func Read(control Control) any {
	node := control.Node
	switch node.DataAtom {
	case atom.Select:
		selected := selectedOptions(node)
		if dom.HasAttr(node, "multiple") {
			return selected
		}
		if len(selected) > 0 {
			return selected[0]
		}
		return ""
	case atom.Textarea:
		return dom.Text(node)
	case atom.Input:
		switch strings.ToLower(dom.GetAttr(node, "type")) {
		case "checkbox":
			return dom.HasAttr(node, "checked")
		case "number", "range":
			raw := dom.GetAttr(node, "value")
			if raw == "" {
				return nil
			}
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil
			}
			return n
		}
	}
	value, _ := dom.Attr(node, "value")
	return value
}

// Write stores raw as the control's current value, the way a user edit would.
// Checkboxes treat any truthy text as checked; multi-selects take a comma list.
func Write(control Control, raw string) {
	node := control.Node
	switch node.DataAtom {
	case atom.Select:
		wanted := map[string]bool{}
		if dom.HasAttr(node, "multiple") {
			for _, part := range splitList(raw) {
				wanted[part] = true
			}
		} else {
			wanted[strings.TrimSpace(raw)] = true
		}
		for _, option := range options(node) {
			dom.ToggleAttr(option, "selected", wanted[optionValue(option)])
		}
	case atom.Textarea:
		dom.SetText(node, raw)
	default:
		if strings.EqualFold(dom.GetAttr(node, "type"), "checkbox") {
			on, err := strconv.ParseBool(strings.TrimSpace(raw))
			dom.ToggleAttr(node, "checked", err == nil && on)
			return
		}
		dom.SetAttr(node, "value", raw)
	}
}

// Reset clears the control back to an empty value.
func Reset(control Control) {
	node := control.Node
	switch node.DataAtom {
	case atom.Select:
		for _, option := range options(node) {
			dom.RemoveAttr(option, "selected")
		}
	case atom.Textarea:
		dom.RemoveChildren(node)
	default:
		if strings.EqualFold(dom.GetAttr(node, "type"), "checkbox") {
			dom.RemoveAttr(node, "checked")
			return
		}
		dom.SetAttr(node, "value", "")
	}
}

// Coerce normalises a read value for the filter request. It reports false
// when the value is unset: empty strings, zero, false and empty lists remove
// the filter instead of sending it.
func Coerce(control Control, value any, definition *domain.FilterDefinition) (any, bool) {
	listType := control.Type == "list" || control.Type == "multiselect" || (definition != nil && definition.IsArray())
	switch typed := value.(type) {
	case nil:
		return nil, false
	case bool:
		return typed, typed
	case float64:
		return typed, typed != 0
	case []string:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out, len(out) > 0
	case string:
		text := strings.TrimSpace(typed)
		if text == "" {
			return nil, false
		}
		if listType {
			parts := splitList(text)
			return parts, len(parts) > 0
		}
		switch control.Type {
		case "number", "range":
			n, err := strconv.ParseFloat(text, 64)
			if err != nil || n == 0 {
				return nil, false
			}
			return n, true
		case "boolean", "checkbox":
			on, err := strconv.ParseBool(text)
			if err != nil || !on {
				return nil, false
			}
			return true, true
		}
		return text, true
	default:
		return value, !domain.IsUnset(value)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func options(node *html.Node) []*html.Node {
	return dom.FindAll(node, func(n *html.Node) bool { return n.DataAtom == atom.Option })
}

func optionValue(option *html.Node) string {
	if value, ok := dom.Attr(option, "value"); ok {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(dom.Text(option))
}

func selectedOptions(node *html.Node) []string {
	out := []string{}
	for _, option := range options(node) {
		if dom.HasAttr(option, "selected") {
			out = append(out, optionValue(option))
		}
	}
	return out
}

// PopulateOptions fills controls from the filter metadata a program
// advertises: empty selects receive the enumerated options and numeric inputs
// receive min and max bounds they do not already declare.
func PopulateOptions(controls []Control, definitions []domain.FilterDefinition) {
	for _, control := range controls {
		definition := lookupDefinition(definitions, control.Name)
		if definition == nil {
			continue
		}
		node := control.Node
		switch {
		case node.DataAtom == atom.Select && len(options(node)) == 0 && len(definition.Options) > 0:
			if !dom.HasAttr(node, "multiple") {
				node.AppendChild(newOption("", "All"))
			}
			for _, opt := range definition.Options {
				label := opt.Label
				if label == "" {
					label = opt.Value
				}
				node.AppendChild(newOption(opt.Value, label))
			}
		case control.Type == "number" || control.Type == "range":
			if definition.Min != nil && !dom.HasAttr(node, "min") {
				dom.SetAttr(node, "min", strconv.FormatFloat(*definition.Min, 'f', -1, 64))
			}
			if definition.Max != nil && !dom.HasAttr(node, "max") {
				dom.SetAttr(node, "max", strconv.FormatFloat(*definition.Max, 'f', -1, 64))
			}
		}
	}
}

func newOption(value, label string) *html.Node {
	node := dom.Element("option", html.Attribute{Key: "value", Val: value})
	dom.SetText(node, label)
	return node
}

func lookupDefinition(definitions []domain.FilterDefinition, name string) *domain.FilterDefinition {
	alias := domain.AliasFilterName(name)
	for i := range definitions {
		if definitions[i].Name == name || definitions[i].Name == alias {
			return &definitions[i]
		}
	}
	return nil
}
