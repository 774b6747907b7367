package binder_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/goliatone/go-listbind/internal/binder"
	"github.com/goliatone/go-listbind/internal/dom"
	"github.com/goliatone/go-listbind/internal/domain"
	"github.com/goliatone/go-listbind/internal/media"
)

const cardTemplate = `<div id="list">
<article data-lb-template hidden class="card">
  <h3 data-lb-field="name"></h3>
  <span class="rate" data-lb-field="rate" data-lb-format="rate"></span>
  <a class="site" data-lb-field="website"></a>
  <a class="profile" data-lb-field="linkedin">Profile</a>
  <input data-lb-field="email">
  <img data-lb-field="photo" class="avatar" alt="portrait">
  <div class="stars" data-lb-stars="rating"></div>
  <span class="open" data-lb-show-when="available:true">Open</span>
  <span class="busy" data-lb-hide-when="available:true">Busy</span>
  <ul class="projects" data-lb-repeat="projects" data-lb-max="2"><li><b data-lb-field="title"></b><img data-lb-field="cover"></li></ul>
  <ul class="tags" data-lb-repeat="tags"><li data-lb-field="name"></li></ul>
  <ul class="links" data-lb-repeat="links"><li data-lb-field="name"></li></ul>
</article>
</div>`

func parseTemplate(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := dom.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tpl := dom.FindAttr(doc, dom.AttrTemplate)
	if tpl == nil {
		t.Fatal("template not found")
	}
	return tpl
}

func byClass(root *html.Node, class string) []*html.Node {
	return dom.FindAll(root, func(n *html.Node) bool { return dom.HasClass(n, class) })
}

func one(t *testing.T, root *html.Node, class string) *html.Node {
	t.Helper()
	nodes := byClass(root, class)
	if len(nodes) != 1 {
		t.Fatalf("expected one .%s, got %d in %s", class, len(nodes), dom.RenderString(root))
	}
	return nodes[0]
}

func texts(nodes []*html.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, dom.Text(n))
	}
	return out
}

func expertRecord() domain.Record {
	return domain.Record{
		"id":        "e1",
		"name":      "Ada Lovelace",
		"title":     "Parent title",
		"rate":      float64(40),
		"website":   "https://ada.dev",
		"linkedin":  "https://linkedin.com/in/ada",
		"email":     "ada@example.com",
		"photo":     "https://res.cloudinary.com/demo/image/upload/ada.jpg",
		"rating":    4.5,
		"available": true,
		"projects": []any{
			map[string]any{"title": "Engine", "cover": "https://files.example.com/engine.png"},
			map[string]any{"title": "Notes", "cover": "https://files.example.com/notes.mp4"},
			map[string]any{"title": "Overflow"},
		},
		"tags": []any{"go", "sql"},
	}
}

func newBinder() *binder.Binder {
	return binder.New(media.NewResolver(media.DefaultConfig()))
}

func TestBindPopulatesCard(t *testing.T) {
	tpl := parseTemplate(t, cardTemplate)
	before := dom.RenderString(tpl)

	card := newBinder().Bind(tpl, expertRecord())

	if dom.RenderString(tpl) != before {
		t.Fatal("binding mutated the template")
	}
	if card.Parent != nil {
		t.Fatal("expected detached clone")
	}
	if dom.HasAttr(card, dom.AttrTemplate) || dom.IsHidden(card) {
		t.Fatalf("expected template markers removed, got %s", dom.RenderString(card))
	}
	if got := dom.GetAttr(card, dom.AttrItem); got != "e1" {
		t.Fatalf("expected item tag e1, got %q", got)
	}

	h3 := dom.FindAll(card, func(n *html.Node) bool { return n.DataAtom == atom.H3 })[0]
	if dom.Text(h3) != "Ada Lovelace" {
		t.Fatalf("unexpected name %q", dom.Text(h3))
	}
	if got := dom.Text(one(t, card, "rate")); got != "$40/hr" {
		t.Fatalf("unexpected rate %q", got)
	}

	site := one(t, card, "site")
	if dom.GetAttr(site, "href") != "https://ada.dev" || dom.Text(site) != "https://ada.dev" {
		t.Fatalf("unexpected anchor %s", dom.RenderString(site))
	}
	profile := one(t, card, "profile")
	if dom.GetAttr(profile, "href") != "https://linkedin.com/in/ada" || dom.Text(profile) != "Profile" {
		t.Fatalf("expected authored label to survive, got %s", dom.RenderString(profile))
	}

	input := dom.FindAll(card, func(n *html.Node) bool { return n.DataAtom == atom.Input })[0]
	if dom.GetAttr(input, "value") != "ada@example.com" {
		t.Fatalf("unexpected input %s", dom.RenderString(input))
	}

	avatar := one(t, card, "avatar")
	if avatar.DataAtom != atom.Img || dom.GetAttr(avatar, "alt") != "portrait" {
		t.Fatalf("unexpected avatar %s", dom.RenderString(avatar))
	}
	if got := dom.GetAttr(avatar, "src"); got != "https://res.cloudinary.com/demo/image/upload/f_auto,q_auto,w_800/ada.jpg" {
		t.Fatalf("expected transformed src, got %s", got)
	}

	stars := one(t, card, "stars")
	if full, half, empty := len(byClass(stars, "lb-star-full")), len(byClass(stars, "lb-star-half")), len(byClass(stars, "lb-star-empty")); full != 4 || half != 1 || empty != 0 {
		t.Fatalf("unexpected stars %d/%d/%d", full, half, empty)
	}

	if dom.IsHidden(one(t, card, "open")) || !dom.IsHidden(one(t, card, "busy")) {
		t.Fatal("unexpected conditional visibility")
	}

	projects := one(t, card, "projects")
	items := dom.Children(projects)
	if diff := cmp.Diff([]string{"Engine", "Notes"}, texts(items)); diff != "" {
		t.Fatalf("unexpected project items (-want +got):\n%s", diff)
	}
	if len(dom.FindAll(items[1], func(n *html.Node) bool { return n.DataAtom == atom.Video })) != 1 {
		t.Fatalf("expected mp4 cover to render as video, got %s", dom.RenderString(items[1]))
	}

	if diff := cmp.Diff([]string{"go", "sql"}, texts(dom.Children(one(t, card, "tags")))); diff != "" {
		t.Fatalf("unexpected tags (-want +got):\n%s", diff)
	}
	if !dom.IsHidden(one(t, card, "links")) {
		t.Fatal("expected empty repeat container to be hidden")
	}

	for _, attr := range []string{dom.AttrField, dom.AttrRepeat, dom.AttrShowWhen, dom.AttrStars} {
		if leftover := dom.FindAllAttr(card, attr); len(leftover) > 0 {
			t.Fatalf("expected %s markers stripped, got %s", attr, dom.RenderString(card))
		}
	}
}

func TestBindMissingValues(t *testing.T) {
	tpl := parseTemplate(t, cardTemplate)
	card := newBinder().Bind(tpl, domain.Record{"id": "e2", "available": false})

	if got := dom.Text(one(t, card, "rate")); got != "Rate on request" {
		t.Fatalf("expected rate fallback, got %q", got)
	}
	if !dom.IsHidden(one(t, card, "site")) {
		t.Fatal("expected anchor without a link to be hidden")
	}
	if len(byClass(card, media.PlaceholderClass)) != 1 {
		t.Fatalf("expected missing photo placeholder, got %s", dom.RenderString(card))
	}
	if len(byClass(one(t, card, "stars"), "lb-star-empty")) != 5 {
		t.Fatal("expected five empty stars without a rating")
	}
	if !dom.IsHidden(one(t, card, "open")) || dom.IsHidden(one(t, card, "busy")) {
		t.Fatal("unexpected conditional visibility")
	}
	if !dom.IsHidden(one(t, card, "projects")) {
		t.Fatal("expected empty projects to be hidden")
	}
}

func TestBindMarkdownAndRootField(t *testing.T) {
	tpl := parseTemplate(t, `<div><p data-lb-template data-lb-field="bio" data-lb-format="markdown"></p></div>`)
	node := newBinder().Bind(tpl, domain.Record{"bio": "Builds **compilers**"})

	if !strings.Contains(dom.RenderString(node), "<strong>compilers</strong>") {
		t.Fatalf("expected rendered markdown, got %s", dom.RenderString(node))
	}
}

func TestBindRespectsMaxRepeatOption(t *testing.T) {
	tpl := parseTemplate(t, `<div><div data-lb-template><ul data-lb-repeat="tags"><li data-lb-field="name"></li></ul></div></div>`)
	node := binder.New(nil, binder.WithMaxRepeat(1)).Bind(tpl, domain.Record{"tags": []any{"a", "b", "c"}})

	ul := dom.FindAll(node, func(n *html.Node) bool { return n.DataAtom == atom.Ul })[0]
	if diff := cmp.Diff([]string{"a"}, texts(dom.Children(ul))); diff != "" {
		t.Fatalf("unexpected items (-want +got):\n%s", diff)
	}
}

func TestSkeleton(t *testing.T) {
	tpl := parseTemplate(t, cardTemplate)
	skeleton := newBinder().Skeleton(tpl)

	if !dom.HasAttr(skeleton, dom.AttrPlaceholder) || !dom.HasClass(skeleton, binder.SkeletonClass) {
		t.Fatalf("expected skeleton markers, got %s", dom.RenderString(skeleton))
	}
	if dom.HasAttr(skeleton, dom.AttrTemplate) || dom.IsHidden(skeleton) {
		t.Fatal("expected skeleton to be visible and untagged")
	}
	if len(dom.Children(one(t, skeleton, "projects"))) != 0 {
		t.Fatal("expected repeat containers to be emptied")
	}
}

func TestBindAttrBindsProgramFields(t *testing.T) {
	doc, err := dom.Parse(strings.NewReader(`<header><h1 data-lb-program-field="name"></h1><p data-lb-program-field="stats.experts" data-lb-format="number"></p></header>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	program := domain.Record{"name": "Design Guild", "stats": map[string]any{"experts": float64(1250)}}
	newBinder().BindAttr(doc, program, dom.AttrProgramField)

	got := texts(dom.FindAllAttr(doc, dom.AttrProgramField))
	if diff := cmp.Diff([]string{"Design Guild", "1,250"}, got); diff != "" {
		t.Fatalf("unexpected program fields (-want +got):\n%s", diff)
	}
}
