package media

import (
	"golang.org/x/net/html"

	"github.com/goliatone/go-listbind/internal/dom"
)

// PlaceholderClass marks the node shown in place of media that failed to load.
const PlaceholderClass = "lb-media-unavailable"

const (
	placeholderText = "Media unavailable"
	mediaStyle      = "object-fit:cover;width:100%;height:100%"
	fallbackScript  = "this.onerror=null;var p=document.createElement('div');" +
		"p.className='" + PlaceholderClass + "';p.setAttribute('role','img');" +
		"p.textContent='" + placeholderText + "';this.replaceWith(p);"
	hoverPlayScript  = "this.play()"
	hoverPauseScript = "this.pause();this.currentTime=0"
)

// BuildElement constructs the node that displays src. Load failures swap the
// node for a visible placeholder; videos play on hover unless autoplay is set.
func (r *Resolver) BuildElement(src string, kind Kind, video VideoConfig) *html.Node {
	if src == "" {
		return Placeholder()
	}
	if kind != KindVideo {
		return dom.Element("img",
			html.Attribute{Key: "src", Val: src},
			html.Attribute{Key: "alt", Val: ""},
			html.Attribute{Key: "loading", Val: "lazy"},
			html.Attribute{Key: "style", Val: mediaStyle},
			html.Attribute{Key: "onerror", Val: fallbackScript},
		)
	}

	node := dom.Element("video",
		html.Attribute{Key: "src", Val: src},
		html.Attribute{Key: "style", Val: mediaStyle},
		html.Attribute{Key: "preload", Val: "metadata"},
		html.Attribute{Key: "playsinline"},
		html.Attribute{Key: "onerror", Val: fallbackScript},
	)
	if poster, ok := r.DeriveThumbnail(src); ok {
		dom.SetAttr(node, "poster", poster)
	}
	dom.ToggleAttr(node, "muted", video.Muted)
	dom.ToggleAttr(node, "loop", video.Loop)
	dom.ToggleAttr(node, "controls", video.Controls)
	dom.ToggleAttr(node, "autoplay", video.Autoplay)
	if !video.Autoplay && video.HoverPlay {
		dom.SetAttr(node, "onmouseenter", hoverPlayScript)
		dom.SetAttr(node, "onmouseleave", hoverPauseScript)
	}
	return node
}

// Resolve classifies src, applies the CDN preset and builds the element using
// the resolver's playback defaults.
func (r *Resolver) Resolve(src string) (*html.Node, Kind) {
	kind := r.Classify(src)
	transformed := r.Transform(src, kind)
	r.logger.Trace("media.resolve", "src", src, "kind", kind, "url", transformed)
	return r.BuildElement(transformed, kind, r.video), kind
}

// Placeholder builds the visible stand-in for unavailable media.
func Placeholder() *html.Node {
	node := dom.Element("div",
		html.Attribute{Key: "class", Val: PlaceholderClass},
		html.Attribute{Key: "role", Val: "img"},
		html.Attribute{Key: "aria-label", Val: placeholderText},
	)
	dom.SetText(node, placeholderText)
	return node
}
