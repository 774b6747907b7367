package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-listbind/internal/cache"
	"github.com/goliatone/go-listbind/internal/client"
	"github.com/goliatone/go-listbind/internal/domain"
)

type stubDoer struct {
	mu       sync.Mutex
	calls    int
	requests []*http.Request
	respond  func(call int, req *http.Request) (*http.Response, error)
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.respond(call, req)
}

func (s *stubDoer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClient(doer *stubDoer, opts ...client.Option) *client.Client {
	base := []client.Option{client.WithHTTPClient(doer)}
	return client.New(client.Config{
		BaseURL:    "https://catalog.test/v1",
		APIKey:     "secret",
		MaxRetries: 3,
		Backoff:    time.Second,
	}, append(base, opts...)...)
}

func TestFetchCachedHitsNetworkOncePerTTL(t *testing.T) {
	doer := &stubDoer{respond: func(int, *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"id":"p1"}`), nil
	}}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newClient(doer, client.WithCache(cache.NewMemory(cache.WithClock(clock.Now))))
	ctx := context.Background()

	for range 2 {
		if _, err := c.FetchCached(ctx, "program:p1", "/programs/p1", client.TTLProgram, client.RequestOptions{}); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if doer.count() != 1 {
		t.Fatalf("expected one network call within ttl, got %d", doer.count())
	}

	clock.Advance(client.TTLProgram)
	if _, err := c.FetchCached(ctx, "program:p1", "/programs/p1", client.TTLProgram, client.RequestOptions{}); err != nil {
		t.Fatalf("fetch after expiry: %v", err)
	}
	if doer.count() != 2 {
		t.Fatalf("expected a new network call after ttl expiry, got %d", doer.count())
	}
}

func TestFetchCachedDeduplicatesConcurrentCallers(t *testing.T) {
	release := make(chan struct{})
	doer := &stubDoer{respond: func(int, *http.Request) (*http.Response, error) {
		<-release
		return jsonResponse(http.StatusOK, `{"data":[],"totalCount":0}`), nil
	}}
	c := newClient(doer)

	const callers = 8
	var ready, done sync.WaitGroup
	ready.Add(callers)
	done.Add(callers)
	results := make([]json.RawMessage, callers)
	errs := make([]error, callers)
	for i := range callers {
		go func() {
			defer done.Done()
			ready.Done()
			results[i], errs[i] = c.FetchCached(context.Background(), "", "/programs/p1/experts", 0, client.RequestOptions{})
		}()
	}
	ready.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	if doer.count() != 1 {
		t.Fatalf("expected exactly one network call, got %d", doer.count())
	}
	for i := range callers {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if string(results[i]) != string(results[0]) {
			t.Fatalf("caller %d received a different value", i)
		}
	}
}

func TestFetchCachedClearsPendingEntryAfterFailure(t *testing.T) {
	doer := &stubDoer{respond: func(call int, _ *http.Request) (*http.Response, error) {
		if call == 1 {
			return jsonResponse(http.StatusNotFound, `{}`), nil
		}
		return jsonResponse(http.StatusOK, `{}`), nil
	}}
	c := newClient(doer)

	if _, err := c.FetchCached(context.Background(), "", "/programs/p1", 0, client.RequestOptions{}); err == nil {
		t.Fatal("expected first request to fail")
	}
	if _, err := c.FetchCached(context.Background(), "", "/programs/p1", 0, client.RequestOptions{}); err != nil {
		t.Fatalf("expected identical follow-up request to run, got %v", err)
	}
	if doer.count() != 2 {
		t.Fatalf("expected two network calls, got %d", doer.count())
	}
}

func TestFetchCachedRetriesWithExponentialBackoff(t *testing.T) {
	doer := &stubDoer{respond: func(int, *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, `upstream down`), nil
	}}
	sleeper := &recordingSleeper{}
	c := newClient(doer, client.WithSleeper(sleeper.sleep))

	_, err := c.FetchCached(context.Background(), "", "/programs/p1", 0, client.RequestOptions{})
	apiErr, ok := client.AsError(err)
	if !ok {
		t.Fatalf("expected client error, got %v", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Code != client.CodeHTTP || apiErr.Attempts != 4 {
		t.Fatalf("unexpected error %+v", apiErr)
	}
	if doer.count() != 4 {
		t.Fatalf("expected 1 attempt + 3 retries, got %d", doer.count())
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if diff := cmp.Diff(want, sleeper.delays); diff != "" {
		t.Fatalf("unexpected backoff delays (-want +got):\n%s", diff)
	}
}

func TestFetchCachedRetriesRateLimitUntilSuccess(t *testing.T) {
	doer := &stubDoer{respond: func(call int, _ *http.Request) (*http.Response, error) {
		if call < 3 {
			return jsonResponse(http.StatusTooManyRequests, `{}`), nil
		}
		return jsonResponse(http.StatusOK, `{"ok":true}`), nil
	}}
	sleeper := &recordingSleeper{}
	c := newClient(doer, client.WithSleeper(sleeper.sleep))

	body, err := c.FetchCached(context.Background(), "", "/programs/p1", 0, client.RequestOptions{})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("unexpected body %s", body)
	}
	if len(sleeper.delays) != 2 {
		t.Fatalf("expected two backoff waits, got %v", sleeper.delays)
	}
}

func TestFetchCachedDoesNotRetryClientErrors(t *testing.T) {
	doer := &stubDoer{respond: func(int, *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadRequest, `{"error":{"code":"BAD_FILTER","message":"<b>rate</b> must be numeric"}}`), nil
	}}
	sleeper := &recordingSleeper{}
	c := newClient(doer, client.WithSleeper(sleeper.sleep))

	_, err := c.FetchCached(context.Background(), "", "/programs/p1/experts", 0, client.RequestOptions{})
	apiErr, ok := client.AsError(err)
	if !ok {
		t.Fatalf("expected client error, got %v", err)
	}
	if doer.count() != 1 || len(sleeper.delays) != 0 {
		t.Fatalf("expected no retries, got %d calls and %v waits", doer.count(), sleeper.delays)
	}
	if apiErr.Code != "BAD_FILTER" || apiErr.Message != "rate must be numeric" || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("unexpected normalized error %+v", apiErr)
	}
	if !goerrors.IsCategory(err, client.CategoryHTTP) {
		t.Fatalf("expected go-errors category %s", client.CategoryHTTP)
	}
}

func TestFetchCachedTimesOut(t *testing.T) {
	doer := &stubDoer{respond: func(_ int, req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	}}
	sleeper := &recordingSleeper{}
	c := client.New(client.Config{
		BaseURL:    "https://catalog.test/v1",
		APIKey:     "secret",
		Timeout:    20 * time.Millisecond,
		MaxRetries: 3,
	}, client.WithHTTPClient(doer), client.WithSleeper(sleeper.sleep))

	_, err := c.FetchCached(context.Background(), "", "/programs/p1", 0, client.RequestOptions{})
	if !client.IsTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if doer.count() != 1 {
		t.Fatalf("expected timeouts not to retry, got %d calls", doer.count())
	}
}

func TestFetchCachedRequiresAPIKey(t *testing.T) {
	doer := &stubDoer{respond: func(int, *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{}`), nil
	}}
	c := client.New(client.Config{BaseURL: "https://catalog.test"}, client.WithHTTPClient(doer))

	_, err := c.FetchCached(context.Background(), "", "/programs/p1", 0, client.RequestOptions{})
	apiErr, ok := client.AsError(err)
	if !ok || apiErr.Code != client.CodeConfig {
		t.Fatalf("expected config error, got %v", err)
	}
	if !errors.Is(err, client.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey in chain, got %v", err)
	}
	if doer.count() != 0 {
		t.Fatalf("expected no network access, got %d calls", doer.count())
	}
}

func TestExpertsSendsHeadersFiltersAndPage(t *testing.T) {
	doer := &stubDoer{respond: func(int, *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"data":[{"id":"e1","name":"Ada"}],"totalCount":7}`), nil
	}}
	c := newClient(doer, client.WithCache(cache.NewMemory()))

	filters := domain.Filters{"search": "go", "available": true, "skills": []string{"go", "sql"}, "empty": ""}
	resp, err := c.Experts(context.Background(), "p1", filters, client.Page{Offset: 20, Limit: 10})
	if err != nil {
		t.Fatalf("experts: %v", err)
	}
	if resp.TotalCount != 7 || len(resp.Data) != 1 || resp.Data[0]["name"] != "Ada" {
		t.Fatalf("unexpected response %+v", resp)
	}

	req := doer.requests[0]
	if got := req.URL.Path; got != "/v1/programs/p1/experts" {
		t.Fatalf("unexpected path %s", got)
	}
	wantQuery := "available=true&limit=10&offset=20&q=go&tags=go%2Csql"
	if got := req.URL.RawQuery; got != wantQuery {
		t.Fatalf("unexpected query\nwant %s\ngot  %s", wantQuery, got)
	}
	if req.Header.Get("X-API-Key") != "secret" || req.Header.Get("Authorization") != "Bearer secret" {
		t.Fatalf("expected both auth headers, got %v", req.Header)
	}
	if req.Header.Get("Accept") != "application/json" || req.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("expected json headers, got %v", req.Header)
	}
}

func TestFilterDefinitionsRejectsMalformedPayload(t *testing.T) {
	doer := &stubDoer{respond: func(int, *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"data":[{"name":"rate"}]}`), nil
	}}
	store := cache.NewMemory()
	c := newClient(doer, client.WithCache(store))

	_, err := c.FilterDefinitions(context.Background(), "p1")
	apiErr, ok := client.AsError(err)
	if !ok || apiErr.Code != client.CodeDecode {
		t.Fatalf("expected decode error, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatal("expected malformed payload to be evicted from the cache")
	}
}

func TestProgramDecodesMetadata(t *testing.T) {
	doer := &stubDoer{respond: func(int, *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"data":{"id":"p1","name":"Design Guild","region":"EU"}}`), nil
	}}
	c := newClient(doer)

	program, err := c.Program(context.Background(), "p1")
	if err != nil {
		t.Fatalf("program: %v", err)
	}
	if program.Name != "Design Guild" || program.Attributes["region"] != "EU" {
		t.Fatalf("unexpected program %+v", program)
	}
}

func TestExpertCachesSingleRecord(t *testing.T) {
	doer := &stubDoer{respond: func(int, *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"data":{"id":"a1","name":"Ada","rating":4.8}}`), nil
	}}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := cache.NewMemory(cache.WithClock(clock.Now))
	c := newClient(doer, client.WithCache(store))
	ctx := context.Background()

	record, err := c.Expert(ctx, "p1", "a1")
	if err != nil {
		t.Fatalf("expert: %v", err)
	}
	if record.ID() != "a1" || record["name"] != "Ada" {
		t.Fatalf("unexpected record %+v", record)
	}
	if got := doer.requests[0].URL.Path; got != "/v1/programs/p1/experts/a1" {
		t.Fatalf("unexpected path %q", got)
	}
	if _, err := store.Get(ctx, "expert:p1:a1"); err != nil {
		t.Fatalf("expected record cached under its entity key: %v", err)
	}

	clock.Advance(client.TTLEntity - time.Second)
	if _, err := c.Expert(ctx, "p1", "a1"); err != nil {
		t.Fatalf("expert: %v", err)
	}
	if doer.count() != 1 {
		t.Fatalf("expected cached record within ttl, got %d calls", doer.count())
	}
	clock.Advance(time.Second)
	if _, err := c.Expert(ctx, "p1", "a1"); err != nil {
		t.Fatalf("expert after expiry: %v", err)
	}
	if doer.count() != 2 {
		t.Fatalf("expected a refetch after ttl expiry, got %d calls", doer.count())
	}

	if _, err := c.Expert(ctx, "p1", " "); !errors.Is(err, client.ErrMissingRecordID) {
		t.Fatalf("expected ErrMissingRecordID, got %v", err)
	}
}

func TestBackoffDelay(t *testing.T) {
	base := 250 * time.Millisecond
	for retry, want := range map[int]time.Duration{0: 0, 1: base, 2: 2 * base, 3: 4 * base} {
		if got := client.BackoffDelay(base, retry); got != want {
			t.Fatalf("BackoffDelay(%d) = %s, want %s", retry, got, want)
		}
	}
}

func TestInvalidateExpertsKeepsOtherEntries(t *testing.T) {
	doer := &stubDoer{respond: func(_ int, req *http.Request) (*http.Response, error) {
		if strings.HasSuffix(req.URL.Path, "/experts") {
			return jsonResponse(http.StatusOK, `{"data":[],"totalCount":0}`), nil
		}
		return jsonResponse(http.StatusOK, `{"id":"p1"}`), nil
	}}
	store := cache.NewMemory()
	c := newClient(doer, client.WithCache(store))
	ctx := context.Background()

	if _, err := c.Program(ctx, "p1"); err != nil {
		t.Fatalf("program: %v", err)
	}
	for _, offset := range []int{0, 20} {
		if _, err := c.Experts(ctx, "p1", nil, client.Page{Offset: offset, Limit: 20}); err != nil {
			t.Fatalf("experts: %v", err)
		}
	}
	if store.Len() != 3 {
		t.Fatalf("expected three cached entries, got %d", store.Len())
	}

	if err := c.InvalidateExperts(ctx, "p1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected only program metadata to survive, got %d", store.Len())
	}
	if _, err := c.Experts(ctx, "p1", nil, client.Page{Limit: 20}); err != nil {
		t.Fatalf("experts: %v", err)
	}
	if doer.count() != 4 {
		t.Fatalf("expected invalidated page to be refetched, got %d calls", doer.count())
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty cache after Clear, got %d", store.Len())
	}
}
