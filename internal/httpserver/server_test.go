package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/tracker/internal/cachestore"
	"github.com/MrSnakeDoc/tracker/internal/channel"
	"github.com/MrSnakeDoc/tracker/internal/config"
	"github.com/MrSnakeDoc/tracker/internal/controller"
	"github.com/MrSnakeDoc/tracker/internal/domain"
	"github.com/MrSnakeDoc/tracker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tracker/internal/kv"
	"github.com/MrSnakeDoc/tracker/internal/logger"
	"github.com/MrSnakeDoc/tracker/internal/objectdb"
	"github.com/MrSnakeDoc/tracker/internal/sources/manifest"
	"github.com/MrSnakeDoc/tracker/internal/store/local"
	"github.com/MrSnakeDoc/tracker/internal/worker"
)

type registrar struct{ tags []string }

func (r *registrar) Register(tag string) error {
	r.tags = append(r.tags, tag)
	return nil
}

type harness struct {
	server  *httptest.Server
	origin  *httptest.Server
	worker  channel.Channel
	fetches chan domain.Tag
	jokes   *local.Jokes
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	mux := http.NewServeMux()
	mux.HandleFunc("/index.html", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<h1>Vacation Tracker</h1>")
	})
	mux.HandleFunc("/app.js", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "app()")
	})
	origin := httptest.NewServer(mux)
	t.Cleanup(origin.Close)
	originURL, err := url.Parse(origin.URL)
	require.NoError(t, err)

	w, err := worker.New(worker.Options{
		Manifest: manifest.Manifest{
			App:       "vacation-tracker",
			Version:   "v1",
			Landing:   "index.html",
			Resources: []string{"./index.html", "./app.js"},
		},
		Origin:  originURL,
		Caches:  cachestore.New(cachestore.NewMemoryBackend()),
		Network: origin.Client(),
	})
	require.NoError(t, err)
	require.NoError(t, w.Install(ctx))
	require.NoError(t, w.Activate(ctx))

	cfg := config.Load()
	cfg.DataDir = t.TempDir()
	jokesDB, err := local.OpenJokes(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = jokesDB.Close() })
	syncDB, err := local.OpenSync(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = syncDB.Close() })

	broker := channel.NewMemoryBroker(8, nil)
	pageSide, err := broker.Open(ctx, cfg.ChannelName)
	require.NoError(t, err)
	workerSide, err := broker.Open(ctx, cfg.ChannelName)
	require.NoError(t, err)
	fetches := make(chan domain.Tag, 4)
	require.NoError(t, workerSide.Subscribe(ctx, func(_ context.Context, tag domain.Tag) { fetches <- tag }))

	jokes := local.NewJokes(jokesDB)
	jokesCtl := controller.NewJokes(jokes, pageSide, logger.Nop())
	require.NoError(t, jokesCtl.Start(ctx))

	d := deps.Deps{
		Logger:         logger.Nop(),
		StartTime:      time.Now(),
		Version:        "test",
		RequestTimeout: 5 * time.Second,
		RateBurst:      2,
		RatePerMin:     1,
		CORSOrigin:     "https://tracker.example",
		Vacations:      controller.NewVacations(kv.NewMemoryStorage(), cfg.StorageKey, domain.NewDateFormatter("en-US"), logger.Nop()),
		Jokes:          jokesCtl,
		Pending:        controller.NewPending(local.NewPending(syncDB), &registrar{}, nil, logger.Nop()),
		Worker:         w,
		Broker:         broker,
		ChannelName:    cfg.ChannelName,
		Databases:      []*objectdb.DB{jokesDB, syncDB},
	}

	srv := httptest.NewServer(NewRouter(d))
	t.Cleanup(srv.Close)

	return &harness{server: srv, origin: origin, worker: workerSide, fetches: fetches, jokes: jokes}
}

func (h *harness) do(t *testing.T, method, path, contentType, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, h.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := h.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestProbes(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/infra", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	infra := decode[map[string]any](t, resp)
	assert.Equal(t, "offline-ready", infra["mode"])
}

func TestVacationRoutes(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/vacations", "application/json", `{"startDate":"2024-07-01","endDate":"2024-07-14"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/api/vacations", "application/x-www-form-urlencoded", "startDate=2023-01-05&endDate=2023-01-07")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	view := decode[domain.VacationsView](t, resp)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "2024-07-01", view.Items[0].StartDate)

	resp = h.do(t, http.MethodPost, "/api/vacations", "application/json", `{"startDate":"2024-07-14","endDate":"2024-07-01"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodDelete, "/api/vacations/0", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decode[domain.VacationsView](t, resp)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "2023-01-05", view.Items[0].StartDate)

	resp = h.do(t, http.MethodDelete, "/api/vacations/7", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestJokeRoutes(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.jokes.SaveMany(context.Background(), []domain.Joke{{ID: 3, Setup: "s", Delivery: "d"}}))

	resp := h.do(t, http.MethodGet, "/api/jokes", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[domain.JokesView](t, resp).Jokes, 1)

	resp = h.do(t, http.MethodPost, "/api/jokes/fetch", "", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	select {
	case tag := <-h.fetches:
		assert.Equal(t, domain.TagFetchJokes, tag)
	case <-time.After(time.Second):
		t.Fatal("worker never saw fetch-jokes")
	}

	resp = h.do(t, http.MethodDelete, "/api/jokes/3", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[domain.JokesView](t, resp).Jokes)
}

func TestJokeFetchIsRateLimited(t *testing.T) {
	h := newHarness(t)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, h.do(t, http.MethodPost, "/api/jokes/fetch", "", "").StatusCode)
	}
	assert.Equal(t, []int{http.StatusAccepted, http.StatusAccepted, http.StatusTooManyRequests}, codes)
}

func TestPendingRoute(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/pending", "application/json", `{"data":"  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/api/pending", "application/json", `{"data":"hello"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	res := decode[map[string]any](t, resp)
	assert.Equal(t, true, res["registered"])
}

func TestWorkerServesOffline(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/app.js", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	h.origin.Close()

	resp = h.do(t, http.MethodGet, "/app.js", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "app()", string(body))

	req, err := http.NewRequest(http.MethodGet, h.server.URL+"/somewhere", nil)
	require.NoError(t, err)
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	nav, err := h.server.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = nav.Body.Close() }()
	assert.Equal(t, http.StatusOK, nav.StatusCode)
	page, err := io.ReadAll(nav.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Vacation Tracker")

	resp = h.do(t, http.MethodGet, "/missing.css", "", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

// openEvents connects to the event stream and returns its lines.
func (h *harness) openEvents(t *testing.T) <-chan string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.server.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := h.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return lines
}

// readEvent collects non-empty lines up to and including the data line of tag.
func readEvent(t *testing.T, lines <-chan string, tag domain.Tag) []string {
	t.Helper()
	var got []string
	for {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream ended early")
			if line == "" || strings.HasPrefix(line, ":") {
				continue
			}
			got = append(got, line)
			if line == "data: "+string(tag) {
				return got
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no %s event, got %q", tag, got)
		}
	}
}

func TestEventsStreamChannelTags(t *testing.T) {
	h := newHarness(t)
	lines := h.openEvents(t)

	// headers arrive after the stream's endpoint is subscribed
	require.NoError(t, h.worker.Send(context.Background(), domain.TagDataUpdated))

	assert.Equal(t, []string{"event: data-updated", "data: data-updated"}, readEvent(t, lines, domain.TagDataUpdated))
}

func TestEventsDropUnknownTags(t *testing.T) {
	h := newHarness(t)
	lines := h.openEvents(t)
	ctx := context.Background()

	require.NoError(t, h.worker.Send(ctx, domain.Tag("Hello from SW!")))
	require.NoError(t, h.worker.Send(ctx, domain.Tag("Hello from SW!\nevent: data-updated")))
	require.NoError(t, h.worker.Send(ctx, domain.TagFetchError))

	assert.Equal(t, []string{"event: fetch-error", "data: fetch-error"}, readEvent(t, lines, domain.TagFetchError))
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t)

	req, err := http.NewRequest(http.MethodOptions, h.server.URL+"/api/vacations", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://tracker.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := h.server.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Less(t, resp.StatusCode, 300)
	assert.Equal(t, "https://tracker.example", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}
