package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"costbook/internal/aggregate"
	"costbook/internal/chart"
	"costbook/internal/core"
	"costbook/internal/middleware/ratelimit"
	"costbook/internal/remote"
	"costbook/internal/services"
	"costbook/internal/store"
	"costbook/internal/view"
)

func newTestServer(t *testing.T, opts ...services.Option) (*Server, *services.Tracker) {
	t.Helper()
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	base := []services.Option{
		services.WithIDGenerator(&core.SequenceGenerator{Prefix: "id"}),
		services.WithClock(func() time.Time {
			clock = clock.Add(time.Hour)
			return clock
		}),
	}
	tr := services.NewTracker(store.New(), append(base, opts...)...)
	srv := NewServer(":0", tr, nil)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, tr
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("%s content-type=%q", path, ct)
		}
	}
}

func TestItemLifecycle(t *testing.T) {
	srv, tr := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/items", `{"name":"Sand","cost":"12,50"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body)
	}
	created := decode[core.Item](t, rr)
	if created.ID != "id-1" || !created.Cost.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("created = %+v", created)
	}

	rr = do(t, srv, http.MethodPut, "/api/items/id-1", `{"name":"Fine sand","cost":13}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body)
	}
	updated := decode[core.Item](t, rr)
	if updated.Name != "Fine sand" || !updated.Timestamp.Equal(created.Timestamp) {
		t.Fatalf("updated = %+v", updated)
	}

	if rr := do(t, srv, http.MethodPut, "/api/items/nope", `{"name":"x","cost":1}`); rr.Code != http.StatusNotFound {
		t.Fatalf("update unknown status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/items/nope", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("delete unknown status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/items/id-1", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if n := len(tr.Items()); n != 0 {
		t.Fatalf("items left = %d", n)
	}
}

func TestCreateValidation(t *testing.T) {
	srv, tr := newTestServer(t)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"empty name", "/api/items", `{"name":"  ","cost":"1"}`, http.StatusBadRequest},
		{"negative cost", "/api/items", `{"name":"Sand","cost":"-1"}`, http.StatusBadRequest},
		{"missing cost", "/api/items", `{"name":"Sand"}`, http.StatusBadRequest},
		{"unknown field", "/api/items", `{"name":"Sand","cost":1,"qty":2}`, http.StatusBadRequest},
		{"bad json", "/api/costs", `{"description":`, http.StatusBadRequest},
		{"empty description", "/api/costs", `{"description":"","amount":"3"}`, http.StatusBadRequest},
		{"long description", "/api/costs", `{"description":"` + strings.Repeat("x", 201) + `","amount":"3"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body)
			}
			if decode[errorResponse](t, rr).Error == "" {
				t.Fatal("error message missing")
			}
		})
	}
	if len(tr.Items())+len(tr.Costs()) != 0 {
		t.Fatal("rejected input must not reach the state")
	}
}

func TestCreateRequiresJSONContentType(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{"name":"Sand","cost":1}`))
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestListFiltersAndSorts(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, body := range []string{
		`{"description":"Fuel","amount":"20"}`,
		`{"description":"crane","amount":"150"}`,
		`{"description":"Bolts","amount":"0"}`,
	} {
		if rr := do(t, srv, http.MethodPost, "/api/costs", body); rr.Code != http.StatusCreated {
			t.Fatalf("seed status=%d", rr.Code)
		}
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Bolts", "crane", "Fuel"}},
		{"?sort=name-asc", []string{"Bolts", "crane", "Fuel"}},
		{"?sort=value-desc", []string{"crane", "Fuel", "Bolts"}},
		{"?sort=date-asc", []string{"Fuel", "crane", "Bolts"}},
		{"?min=0&sort=value-asc", []string{"Bolts", "Fuel", "crane"}},
		{"?min=10&max=100", []string{"Fuel"}},
		{"?min=500", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, "/api/costs"+tt.query, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
			}
			res := decode[view.Result[core.Cost]](t, rr)
			got := make([]string, 0, len(res.Records))
			for _, c := range res.Records {
				got = append(got, c.Description)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Fatalf("order = %v, want %v", got, tt.want)
			}
			if res.Count != len(tt.want) {
				t.Fatalf("count = %d", res.Count)
			}
		})
	}

	for _, q := range []string{"?sort=price", "?min=abc", "?locale=abcdefghijk"} {
		if rr := do(t, srv, http.MethodGet, "/api/costs"+q, ""); rr.Code != http.StatusBadRequest {
			t.Fatalf("%s status=%d", q, rr.Code)
		}
	}
}

func TestSummaryAndCharts(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/items", `{"name":"Sand","cost":"10"}`)
	do(t, srv, http.MethodPost, "/api/items", `{"name":"Gravel","cost":"5.5"}`)
	do(t, srv, http.MethodPost, "/api/costs", `{"description":"Fuel","amount":"2"}`)

	sum := decode[aggregate.Summary](t, do(t, srv, http.MethodGet, "/api/summary", ""))
	if !sum.Total.Equal(decimal.RequireFromString("17.5")) || sum.ItemCount != 2 || sum.CostCount != 1 {
		t.Fatalf("summary = %+v", sum)
	}

	items := decode[chart.Bundle](t, do(t, srv, http.MethodGet, "/api/charts/items", ""))
	if len(items.Categorical) != 2 || !items.Renderable {
		t.Fatalf("item charts = %+v", items)
	}
	costs := decode[chart.Bundle](t, do(t, srv, http.MethodGet, "/api/charts/cost", ""))
	if len(costs.Temporal) != 1 || costs.Renderable {
		t.Fatalf("cost charts = %+v", costs)
	}
	if rr := do(t, srv, http.MethodGet, "/api/charts/tools", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown kind status=%d", rr.Code)
	}
}

func TestSync(t *testing.T) {
	srv, _ := newTestServer(t)
	if rr := do(t, srv, http.MethodPost, "/api/sync", ""); rr.Code != http.StatusConflict {
		t.Fatalf("sync without remote status=%d", rr.Code)
	}

	mem := remote.NewMemory(nil)
	ctx := context.Background()
	if _, err := mem.Create(ctx, "u1", core.KindItems, remote.Document{
		ID: "r1", Label: "Cement", Amount: decimal.NewFromInt(40), Timestamp: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatal(err)
	}
	srv, tr := newTestServer(t, services.WithUser("u1"), services.WithRemote(mem))
	rr := do(t, srv, http.MethodPost, "/api/sync", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("sync status=%d body=%s", rr.Code, rr.Body)
	}
	if items := tr.Items(); len(items) != 1 || items[0].Name != "Cement" {
		t.Fatalf("items after sync = %+v", items)
	}
}

func TestRateLimit(t *testing.T) {
	tr := services.NewTracker(store.New())
	srv := NewServer(":0", tr, nil, WithRateLimit(ratelimit.Config{RequestsPerMinute: 2}))
	defer srv.Shutdown(context.Background())

	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodGet, "/api/summary", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodGet, "/api/summary", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Fatalf("health must not be rate limited, status=%d", rr.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/api/items", "")
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff header")
	}
	if rr.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("cache-control=%q", rr.Header().Get("Cache-Control"))
	}
}
