package binder

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/goliatone/go-listbind/internal/dom"
	"github.com/goliatone/go-listbind/internal/format"
)

const (
	starClass      = "lb-star"
	starFullClass  = "lb-star-full"
	starHalfClass  = "lb-star-half"
	starEmptyClass = "lb-star-empty"
)

func renderStars(node *html.Node, score float64) {
	stars := format.RenderStars(score)
	dom.RemoveChildren(node)
	dom.SetAttr(node, "role", "img")
	dom.SetAttr(node, "aria-label", fmt.Sprintf("%.1f out of %d", score, format.StarScale))
	appendStars(node, stars.Full, starFullClass, "★")
	appendStars(node, stars.Half, starHalfClass, "★")
	appendStars(node, stars.Empty, starEmptyClass, "☆")
}

func appendStars(node *html.Node, count int, class, glyph string) {
	for range count {
		star := dom.Element("span", html.Attribute{Key: "class", Val: starClass + " " + class})
		dom.SetText(star, glyph)
		node.AppendChild(star)
	}
}
