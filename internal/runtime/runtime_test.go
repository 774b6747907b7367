package runtime_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"

	"github.com/goliatone/go-listbind/internal/binder"
	"github.com/goliatone/go-listbind/internal/cache"
	"github.com/goliatone/go-listbind/internal/client"
	"github.com/goliatone/go-listbind/internal/dom"
	"github.com/goliatone/go-listbind/internal/domain"
	"github.com/goliatone/go-listbind/internal/events"
	"github.com/goliatone/go-listbind/internal/filters"
	"github.com/goliatone/go-listbind/internal/media"
	"github.com/goliatone/go-listbind/internal/runtime"
	"github.com/goliatone/go-listbind/pkg/interfaces"
)

const listPage = `<html><body>
<h1 data-lb-program-field="name"></h1>
<section data-lb-list-id="experts" data-lb-program="p1" data-lb-limit="2">
  <div data-lb-loading>Loading</div>
  <div data-lb-error></div>
  <div data-lb-empty>No experts</div>
  <input data-lb-filter="search" type="search">
  <ul class="items"><li data-lb-template hidden><span data-lb-field="name"></span></li></ul>
  <button data-lb-action="load-more">More</button>
</section>
</body></html>`

func parseDoc(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := dom.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func renderedNames(doc *html.Node, listID string) []string {
	var names []string
	for _, item := range dom.FindAllAttr(doc, dom.AttrItem) {
		container := item
		for container != nil && dom.GetAttr(container, dom.AttrListID) == "" {
			container = container.Parent
		}
		if container != nil && dom.GetAttr(container, dom.AttrListID) == listID {
			names = append(names, strings.TrimSpace(dom.Text(item)))
		}
	}
	return names
}

func attrNode(t *testing.T, doc *html.Node, attr, value string) *html.Node {
	t.Helper()
	for _, node := range dom.FindAllAttr(doc, attr) {
		if value == "" || dom.GetAttr(node, attr) == value {
			return node
		}
	}
	t.Fatalf("no node with %s=%q", attr, value)
	return nil
}

// catalogServer serves three experts for program p1 in pages.
func catalogServer(t *testing.T, requests *atomic.Int32, queries *[]string) *httptest.Server {
	t.Helper()
	experts := []map[string]any{{"id": "1", "name": "Ada"}, {"id": "2", "name": "Grace"}, {"id": "3", "name": "Linus"}}
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/programs/p1":
			_, _ = w.Write([]byte(`{"data":{"id":"p1","name":"Design Guild"}}`))
		case "/programs/p1/filters":
			_, _ = w.Write([]byte(`{"data":[{"name":"q","type":"search"}]}`))
		case "/programs/p1/experts":
			mu.Lock()
			if queries != nil {
				*queries = append(*queries, r.URL.RawQuery)
			}
			mu.Unlock()
			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			end := min(len(experts), offset+limit)
			page := experts[min(offset, len(experts)):end]
			if q := r.URL.Query().Get("q"); q != "" {
				page = nil
				for _, expert := range experts {
					if strings.Contains(strings.ToLower(expert["name"].(string)), strings.ToLower(q)) {
						page = append(page, expert)
					}
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"data": page, "totalCount": len(experts)})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"program not found"}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newRuntime(apiURL, apiKey string, sink interfaces.EventSink, opts ...runtime.Option) *runtime.Runtime {
	api := client.New(client.Config{BaseURL: apiURL, APIKey: apiKey, MaxRetries: 0}, client.WithCache(cache.NewMemory()))
	b := binder.New(media.NewResolver(media.DefaultConfig()))
	opts = append([]runtime.Option{
		runtime.WithEmitter(events.NewEmitter(sink)),
		runtime.WithFilterOptions(filters.WithDebounce(0)),
	}, opts...)
	return runtime.New(api, b, runtime.Config{}, opts...)
}

func TestInitAndLoadMoreEndToEnd(t *testing.T) {
	var requests atomic.Int32
	srv := catalogServer(t, &requests, nil)
	sink := &events.Recorder{}
	rt := newRuntime(srv.URL, "secret", sink)
	doc := parseDoc(t, listPage)
	ctx := context.Background()

	if err := rt.Init(ctx, doc); err != nil {
		t.Fatalf("init: %v", err)
	}
	if diff := cmp.Diff([]string{"Ada", "Grace"}, renderedNames(doc, "experts")); diff != "" {
		t.Fatalf("unexpected first page (-want +got):\n%s", diff)
	}
	first := rt.State("experts")
	if !first.HasNextPage || first.Offset != 2 || first.TotalCount != 3 || first.Status != domain.ListReady {
		t.Fatalf("unexpected state after first page %+v", first)
	}
	if got := dom.Text(attrNode(t, doc, dom.AttrProgramField, "")); got != "Design Guild" {
		t.Fatalf("expected program metadata bound, got %q", got)
	}
	if !dom.IsHidden(attrNode(t, doc, dom.AttrLoading, "")) {
		t.Fatal("expected loading indicator to be hidden after load")
	}
	more := attrNode(t, doc, dom.AttrAction, "load-more")
	if dom.HasAttr(more, "disabled") {
		t.Fatal("expected load-more to be enabled")
	}

	if err := rt.Trigger(ctx, more); err != nil {
		t.Fatalf("load more: %v", err)
	}
	if diff := cmp.Diff([]string{"Ada", "Grace", "Linus"}, renderedNames(doc, "experts")); diff != "" {
		t.Fatalf("unexpected rendered list (-want +got):\n%s", diff)
	}
	second := rt.State("experts")
	if second.HasNextPage || second.Offset != 3 || len(second.Records) != 3 {
		t.Fatalf("unexpected state after second page %+v", second)
	}
	if !dom.HasAttr(more, "disabled") {
		t.Fatal("expected load-more to be disabled without a next page")
	}
	if loaded := sink.OfType(interfaces.EventListLoaded); len(loaded) != 2 || len(loaded[1].Records) != 3 {
		t.Fatalf("unexpected loaded events %+v", loaded)
	}
	if !dom.IsHidden(attrNode(t, doc, dom.AttrEmpty, "")) {
		t.Fatal("expected empty state hidden")
	}
}

func TestChangeFilterReloadsFromFirstPage(t *testing.T) {
	var requests atomic.Int32
	var queries []string
	srv := catalogServer(t, &requests, &queries)
	sink := &events.Recorder{}
	rt := newRuntime(srv.URL, "secret", sink)
	doc := parseDoc(t, listPage)
	ctx := context.Background()

	if err := rt.Init(ctx, doc); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := rt.TriggerAction(ctx, "experts", runtime.ActionLoadMore); err != nil {
		t.Fatalf("load more: %v", err)
	}
	if err := rt.ChangeFilter(ctx, "experts", "search", "gra"); err != nil {
		t.Fatalf("change filter: %v", err)
	}
	rt.Wait()

	if diff := cmp.Diff([]string{"Grace"}, renderedNames(doc, "experts")); diff != "" {
		t.Fatalf("unexpected filtered list (-want +got):\n%s", diff)
	}
	if last := queries[len(queries)-1]; last != "limit=2&q=gra" {
		t.Fatalf("expected filtered request from offset zero, got %q", last)
	}
	if got := dom.GetAttr(attrNode(t, doc, dom.AttrFilter, "search"), "value"); got != "gra" {
		t.Fatalf("expected control value to follow the change, got %q", got)
	}
	if len(sink.OfType(interfaces.EventFilterChanged)) != 1 {
		t.Fatal("expected filter-changed event")
	}

	if err := rt.TriggerAction(ctx, "experts", runtime.ActionClearFilters); err != nil {
		t.Fatalf("clear filters: %v", err)
	}
	if diff := cmp.Diff([]string{"Ada", "Grace"}, renderedNames(doc, "experts")); diff != "" {
		t.Fatalf("unexpected list after clearing (-want +got):\n%s", diff)
	}
}

func TestFailingListDoesNotBlockOthers(t *testing.T) {
	var requests atomic.Int32
	srv := catalogServer(t, &requests, nil)
	sink := &events.Recorder{}
	rt := newRuntime(srv.URL, "secret", sink)
	doc := parseDoc(t, `<html><body>
<section data-lb-list-id="broken" data-lb-program="missing">
  <p data-lb-error></p><ul><li data-lb-template><span data-lb-field="name"></span></li></ul>
</section>
<section data-lb-list-id="experts" data-lb-program="p1" data-lb-limit="5">
  <ul><li data-lb-template><span data-lb-field="name"></span></li></ul>
</section>
</body></html>`)

	if err := rt.Init(context.Background(), doc); err != nil {
		t.Fatalf("init: %v", err)
	}

	broken := attrNode(t, doc, dom.AttrListID, "broken")
	if !dom.HasClass(broken, dom.ClassError) {
		t.Fatalf("expected error class, got %s", dom.RenderString(broken))
	}
	errNode := attrNode(t, broken, dom.AttrError, "")
	if dom.IsHidden(errNode) || dom.Text(errNode) != "program not found" {
		t.Fatalf("expected visible server message, got %s", dom.RenderString(errNode))
	}
	st := rt.State("broken")
	apiErr, ok := client.AsError(st.Err)
	if st.Status != domain.ListError || !ok || apiErr.Code != "NOT_FOUND" || apiErr.Status != http.StatusNotFound {
		t.Fatalf("unexpected broken state %+v", st)
	}
	if diff := cmp.Diff([]string{"Ada", "Grace", "Linus"}, renderedNames(doc, "experts")); diff != "" {
		t.Fatalf("expected healthy list to render (-want +got):\n%s", diff)
	}
	failures := sink.OfType(interfaces.EventError)
	if len(failures) == 0 || failures[len(failures)-1].ListID != "broken" || failures[len(failures)-1].Context != "load" {
		t.Fatalf("unexpected error events %+v", failures)
	}
}

func TestMissingConfigurationFailsPerList(t *testing.T) {
	var requests atomic.Int32
	srv := catalogServer(t, &requests, nil)
	rt := newRuntime(srv.URL, "", &events.Recorder{})
	doc := parseDoc(t, `<html><body>
<section data-lb-list-id="nokey" data-lb-program="p1"><p data-lb-error></p><ul><li data-lb-template></li></ul></section>
<section data-lb-list-id="notemplate" data-lb-program="p1"><p data-lb-error></p></section>
</body></html>`)

	if err := rt.Init(context.Background(), doc); err != nil {
		t.Fatalf("init: %v", err)
	}
	if requests.Load() != 0 {
		t.Fatalf("expected no network access without an api key, got %d requests", requests.Load())
	}
	for _, id := range []string{"nokey", "notemplate"} {
		st := rt.State(id)
		apiErr, ok := client.AsError(st.Err)
		if st.Status != domain.ListError || !ok || apiErr.Code != client.CodeConfig {
			t.Fatalf("%s: expected config error, got %+v", id, st)
		}
	}
	if !errors.Is(rt.State("notemplate").Err, runtime.ErrMissingTemplate) {
		t.Fatal("expected missing template cause")
	}
}

func TestInitRequiresDocument(t *testing.T) {
	rt := newRuntime("http://127.0.0.1:0", "secret", nil)
	if err := rt.Init(context.Background(), nil); !errors.Is(err, runtime.ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
	if err := rt.TriggerAction(context.Background(), "ghost", runtime.ActionReload); !errors.Is(err, runtime.ErrUnknownList) {
		t.Fatalf("expected ErrUnknownList, got %v", err)
	}
}
