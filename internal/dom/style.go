package dom

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// Classes returns the class list of n.
func Classes(n *html.Node) []string {
	return strings.Fields(GetAttr(n, "class"))
}

// HasClass reports whether n carries class.
func HasClass(n *html.Node, class string) bool {
	return slices.Contains(Classes(n), class)
}

// AddClass appends class when missing.
func AddClass(n *html.Node, class string) {
	classes := Classes(n)
	if slices.Contains(classes, class) {
		return
	}
	SetAttr(n, "class", strings.Join(append(classes, class), " "))
}

// RemoveClass drops class, removing the attribute once empty.
func RemoveClass(n *html.Node, class string) {
	if !HasAttr(n, "class") {
		return
	}
	classes := slices.DeleteFunc(Classes(n), func(c string) bool { return c == class })
	if len(classes) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(classes, " "))
}

// Hide marks n hidden.
func Hide(n *html.Node) {
	if n != nil {
		SetAttr(n, "hidden", "")
	}
}

// Show clears the hidden marker.
func Show(n *html.Node) {
	if n != nil {
		RemoveAttr(n, "hidden")
	}
}

// SetVisible shows or hides n.
func SetVisible(n *html.Node, visible bool) {
	if visible {
		Show(n)
		return
	}
	Hide(n)
}

// IsHidden reports whether n carries the hidden marker.
func IsHidden(n *html.Node) bool {
	return HasAttr(n, "hidden")
}
