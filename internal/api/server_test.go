package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	config "github.com/mwantia/linkfilter/internal/config/server"
	"github.com/mwantia/linkfilter/pkg/db/models"
	"github.com/mwantia/linkfilter/pkg/db/store"
	"github.com/mwantia/linkfilter/pkg/filter"
	"github.com/mwantia/linkfilter/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type testServer struct {
	*Server
	links *store.SQLiteStore
	logs  *bytes.Buffer
}

func newTestServer(t *testing.T, defaultUser string) *testServer {
	t.Helper()
	ctx := context.Background()

	links, err := store.NewSQLiteStore(store.SQLiteConfig{Path: filepath.Join(t.TempDir(), "api.db")})
	require.NoError(t, err)
	require.NoError(t, links.Connect(ctx))
	require.NoError(t, links.Migrate(ctx))
	t.Cleanup(func() { links.Close() })

	cfg := &config.BaseServerConfig{
		Log:  config.LogServerConfig{Level: "debug", NoColor: true, Access: true},
		HTTP: config.HTTPServerConfig{DefaultUser: defaultUser, PageSize: 10},
	}

	var logs bytes.Buffer
	s := NewServer(links, log.NewLoggerServiceWithWriter("api", cfg.Log, &logs), cfg)
	s.now = func() time.Time { return testNow }

	return &testServer{Server: s, links: links, logs: &logs}
}

func (ts *testServer) do(t *testing.T, method, target, user string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}

	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (ts *testServer) seed(t *testing.T, user string, links ...models.SharedLink) {
	t.Helper()
	for i := range links {
		links[i].UserID = user
		require.NoError(t, ts.links.CreateLink(context.Background(), &links[i]))
	}
}

func TestAuthenticate(t *testing.T) {
	ts := newTestServer(t, "")

	w := ts.do(t, "GET", "/api/shared_links", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, "GET", "/api/shared_links", "alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDAndAccessLog(t *testing.T) {
	ts := newTestServer(t, "local")

	w := ts.do(t, "GET", "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	id := w.Header().Get(HeaderRequestID)
	require.NotEmpty(t, id)
	assert.Contains(t, ts.logs.String(), "GET /health 200")
	assert.Contains(t, ts.logs.String(), id)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(HeaderRequestID, "fixed-id")
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get(HeaderRequestID))
}

func TestCreateAndListLinks(t *testing.T) {
	ts := newTestServer(t, "local")

	w := ts.do(t, "POST", "/api/shared_links", "alice", CreateLinkRequest{
		Host:         "drive",
		Title:        "movie night",
		OriginalLink: "https://example.com/movie",
		Size:         20 << 30,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.SharedLink](t, w)
	assert.Equal(t, "alice", created.UserID)
	assert.Equal(t, "alice", created.CreatedBy)
	assert.Equal(t, "Valid", created.State)

	w = ts.do(t, "POST", "/api/shared_links", "alice", CreateLinkRequest{Title: "no link"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.seed(t, "alice", models.SharedLink{Host: "drive", CreatedBy: "alice", Title: "notes", OriginalLink: "https://example.com/notes", Size: 1 << 30})
	ts.seed(t, "bob", models.SharedLink{Host: "drive", CreatedBy: "bob", Title: "movie of bob", OriginalLink: "https://example.com/bob"})

	w = ts.do(t, "GET", `/api/shared_links?search=size%3E%2210GB%22`, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[LinkListResponse](t, w)
	assert.Equal(t, int64(1), resp.Total)
	assert.Equal(t, 1, resp.PageSize)
	require.Len(t, resp.List, 1)
	assert.Equal(t, "movie night", resp.List[0].Title)

	w = ts.do(t, "GET", "/api/shared_links?search=movie", "bob", nil)
	resp = decode[LinkListResponse](t, w)
	require.Len(t, resp.List, 1)
	assert.Equal(t, "movie of bob", resp.List[0].Title)

	// the default user owns nothing
	w = ts.do(t, "GET", "/api/shared_links", "", nil)
	resp = decode[LinkListResponse](t, w)
	assert.Zero(t, resp.Total)
	assert.NotNil(t, resp.List)
}

func TestListLinksParameters(t *testing.T) {
	ts := newTestServer(t, "local")
	ts.seed(t, "local",
		models.SharedLink{Host: "drive", CreatedBy: "local", Title: "one", OriginalLink: "https://example.com/1", Visitor: 1},
		models.SharedLink{Host: "drive", CreatedBy: "local", Title: "two", OriginalLink: "https://example.com/2", Visitor: 2},
		models.SharedLink{Host: "drive", CreatedBy: "local", Title: "three", OriginalLink: "https://example.com/3", Visitor: 3},
	)

	filters := `[{"key":"visitor","operator":">=","value":2}]`
	w := ts.do(t, "GET", "/api/shared_links?limit=1&page_index=2&filter="+url.QueryEscape(filters), "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[LinkListResponse](t, w)
	assert.Zero(t, resp.Total)
	require.Len(t, resp.List, 1)
	assert.Equal(t, "two", resp.List[0].Title)

	w = ts.do(t, "GET", "/api/shared_links?search=revenue%3E1+visitor%3A%221%22", "", nil)
	resp = decode[LinkListResponse](t, w)
	assert.Len(t, resp.Ignored, 1)

	w = ts.do(t, "GET", "/api/shared_links?filter=not-json", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, "GET", "/api/shared_links?tz=Mars/Olympus", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVisitAndUpdateLink(t *testing.T) {
	ts := newTestServer(t, "local")
	ts.seed(t, "alice", models.SharedLink{
		Host: "drive", CreatedBy: "alice", Title: "archive", OriginalLink: "https://example.com/archive",
		Visitor: 2, LastVisitedAt: testNow.Add(-40 * 24 * time.Hour),
	})

	w := ts.do(t, "GET", "/api/shared_links?search=days_not_visit%3E30", "alice", nil)
	resp := decode[LinkListResponse](t, w)
	require.Len(t, resp.List, 1)
	id := resp.List[0].AutoID
	target := fmt.Sprintf("/api/shared_links/%d", id)

	w = ts.do(t, "POST", target+"/visit", "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, "POST", target+"/visit", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	visited := decode[models.SharedLink](t, w)
	assert.Equal(t, int64(3), visited.Visitor)
	assert.Zero(t, visited.DaysNotVisit)
	assert.True(t, visited.LastVisitedAt.Equal(testNow))

	w = ts.do(t, "GET", "/api/shared_links?search=days_not_visit%3E30", "alice", nil)
	assert.Zero(t, decode[LinkListResponse](t, w).Total)

	title, stored := "archive 2023", int64(4)
	w = ts.do(t, "PATCH", target, "alice", UpdateLinkRequest{Title: &title, Stored: &stored})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, "GET", target, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[models.SharedLink](t, w)
	assert.Equal(t, "archive 2023", got.Title)
	assert.Equal(t, int64(4), got.Stored)
	assert.Equal(t, int64(3), got.Visitor)
	assert.Equal(t, "Valid", got.State)

	empty := " "
	w = ts.do(t, "PATCH", target, "alice", UpdateLinkRequest{State: &empty})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, "PATCH", target, "bob", UpdateLinkRequest{Title: &title})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, "GET", "/api/shared_links/99999999999999999999999", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusOf(fmt.Errorf("link 1: %w", store.ErrNotFound)))
	assert.Equal(t, http.StatusConflict, statusOf(fmt.Errorf("saved search %q: %w", "stale", store.ErrConflict)))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errors.New("disk full")))
}

func TestParseFilter(t *testing.T) {
	ts := newTestServer(t, "local")

	w := ts.do(t, "GET", "/api/filter/parse?search="+url.QueryEscape(`size>"10GB"  holiday   photos`), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[ParseResponse](t, w)
	require.Len(t, resp.Conditions, 2)
	assert.Equal(t, filter.KeySize, resp.Conditions[0].Key)
	assert.Equal(t, filter.UnitGB, resp.Conditions[0].Unit)
	assert.Equal(t, []string{"size>10GB", "title:holiday photos"}, resp.Tags)
	assert.Equal(t, `size>"10GB" title:"holiday photos"`, resp.Search)
}

func TestFormatFilter(t *testing.T) {
	ts := newTestServer(t, "local")
	conds := []filter.Condition{
		{Key: filter.KeyDaysNotVisit, Operator: filter.OpGreaterThan, Value: filter.Number(30)},
		{Key: filter.KeyState, Operator: filter.OpAny},
	}

	w := ts.do(t, "POST", "/api/filter/format", "", FormatRequest{Conditions: conds})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "days_not_visit>30", decode[map[string]string](t, w)["search"])

	w = ts.do(t, "POST", "/api/filter/format", "", FormatRequest{Conditions: conds, Shim: true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `last_visited_at<"2024-02-09 12:00"`, decode[map[string]string](t, w)["search"])

	req := httptest.NewRequest("POST", "/api/filter/format", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFormatShimMatchesListing(t *testing.T) {
	ts := newTestServer(t, "local")
	ts.now = func() time.Time { return testNow.In(time.FixedZone("JST", 9*60*60)) }
	ts.seed(t, "local", models.SharedLink{
		Host: "drive", CreatedBy: "local", Title: "idle", OriginalLink: "https://example.com/idle",
		LastVisitedAt: testNow.Add(-93 * time.Hour),
	})
	conds := []filter.Condition{{Key: filter.KeyDaysNotVisit, Operator: filter.OpGreaterThan, Value: filter.Number(4)}}

	total := func(target string) int64 {
		t.Helper()
		w := ts.do(t, "GET", target, "", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decode[LinkListResponse](t, w).Total
	}

	for _, tz := range []string{"", "Asia/Tokyo", "America/New_York"} {
		w := ts.do(t, "POST", "/api/filter/format?tz="+url.QueryEscape(tz), "", FormatRequest{Conditions: conds, Shim: true})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		shim := decode[map[string]string](t, w)["search"]

		plain := total("/api/shared_links?tz=" + url.QueryEscape(tz) + "&search=" + url.QueryEscape("days_not_visit>4"))
		shimmed := total("/api/shared_links?tz=" + url.QueryEscape(tz) + "&search=" + url.QueryEscape(shim))
		assert.Zero(t, plain, tz)
		assert.Equal(t, plain, shimmed, "%s: %s", tz, shim)
	}

	w := ts.do(t, "POST", "/api/filter/format", "", FormatRequest{Conditions: conds, Shim: true})
	assert.Equal(t, `last_visited_at<"2024-03-06 12:00"`, decode[map[string]string](t, w)["search"])

	w = ts.do(t, "POST", "/api/filter/format?tz=Mars/Olympus", "", FormatRequest{Conditions: conds, Shim: true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTranslatePreset(t *testing.T) {
	ts := newTestServer(t, "local")

	w := ts.do(t, "GET", "/api/filter/translate?label="+url.QueryEscape("Last 7 Days")+"&key=created_at", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	c := decode[filter.Condition](t, w)
	assert.Equal(t, filter.KeyCreatedAt, c.Key)
	assert.Equal(t, filter.OpBetween, c.Operator)
	bounds, ok := c.Value.StrRange()
	require.True(t, ok)
	assert.Equal(t, [2]string{"2024-03-03 12:00", "2024-03-10 12:00"}, bounds)

	w = ts.do(t, "GET", "/api/filter/translate?label="+url.QueryEscape("10GB - 50GB")+"&key=size", "", nil)
	c = decode[filter.Condition](t, w)
	assert.Equal(t, filter.UnitGB, c.Unit)
	nums, ok := c.Value.NumRange()
	require.True(t, ok)
	assert.Equal(t, [2]float64{10, 50}, nums)

	w = ts.do(t, "GET", "/api/filter/translate?label="+url.QueryEscape(">10000"), "", nil)
	c = decode[filter.Condition](t, w)
	assert.Empty(t, c.Key)
	assert.Equal(t, filter.OpGreaterThan, c.Operator)

	w = ts.do(t, "GET", "/api/filter/translate?label="+url.QueryEscape("[Any]")+"&key=visitor&search="+url.QueryEscape("visitor>5 notes"), "", nil)
	resp := decode[TranslateResponse](t, w)
	assert.Equal(t, filter.OpAny, resp.Operator)
	assert.Equal(t, `title:"notes"`, resp.Search)

	w = ts.do(t, "GET", "/api/filter/translate?label="+url.QueryEscape("<10")+"&key=stored&search="+url.QueryEscape("stored>5 notes"), "", nil)
	resp = decode[TranslateResponse](t, w)
	assert.Equal(t, `title:"notes" stored<10`, resp.Search)

	w = ts.do(t, "GET", "/api/filter/translate?label=x&key=revenue", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListItems(t *testing.T) {
	ts := newTestServer(t, "local")

	w := ts.do(t, "GET", "/api/filter/items?search="+url.QueryEscape(`size>"1GB" size<"5GB" state="In Blacklist"`), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	items := decode[[]ItemResponse](t, w)
	require.Len(t, items, len(filter.Keys))

	selected := map[filter.Key]string{}
	for _, item := range items {
		selected[item.Key] = item.Selected
	}
	assert.Equal(t, "1GB - 5GB", selected[filter.KeySize])
	assert.Equal(t, "In Blacklist", selected[filter.KeyState])
	assert.Equal(t, filter.AnySelection, selected[filter.KeyVisitor])
}

func TestSavedSearches(t *testing.T) {
	ts := newTestServer(t, "local")
	ts.seed(t, "alice",
		models.SharedLink{Host: "drive", CreatedBy: "alice", Title: "old movie", OriginalLink: "https://example.com/old", LastVisitedAt: testNow.Add(-60 * 24 * time.Hour)},
		models.SharedLink{Host: "drive", CreatedBy: "alice", Title: "old notes", OriginalLink: "https://example.com/notes", LastVisitedAt: testNow.Add(-90 * 24 * time.Hour)},
		models.SharedLink{Host: "drive", CreatedBy: "alice", Title: "fresh movie", OriginalLink: "https://example.com/new", LastVisitedAt: testNow},
	)

	w := ts.do(t, "POST", "/api/searches", "alice", CreateSearchRequest{Name: "stale", QueryExpression: "days_not_visit  >30"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "days_not_visit>30", decode[models.SavedSearch](t, w).QueryExpression)

	w = ts.do(t, "POST", "/api/searches", "alice", CreateSearchRequest{Name: "stale", QueryExpression: "visitor>1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, "POST", "/api/searches", "alice", CreateSearchRequest{Name: " ", QueryExpression: "visitor>1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, "GET", "/api/searches", "alice", nil)
	require.Len(t, decode[[]models.SavedSearch](t, w), 1)

	w = ts.do(t, "GET", "/api/searches", "bob", nil)
	assert.Empty(t, decode[[]models.SavedSearch](t, w))

	w = ts.do(t, "GET", "/api/searches/stale", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, "GET", "/api/searches/stale/links", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[LinkListResponse](t, w)
	assert.Equal(t, int64(2), resp.Total)

	w = ts.do(t, "GET", "/api/searches/stale/links?search=movie", "alice", nil)
	resp = decode[LinkListResponse](t, w)
	require.Len(t, resp.List, 1)
	assert.Equal(t, "old movie", resp.List[0].Title)
	assert.Equal(t, int64(60), resp.List[0].DaysNotVisit)

	w = ts.do(t, "DELETE", "/api/searches/stale", "alice", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, "DELETE", "/api/searches/stale", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, "GET", "/api/searches/stale/links", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
