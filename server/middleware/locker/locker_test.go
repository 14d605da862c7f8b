package locker

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/datahook/generichttp"
)

type routes generichttp.RouteTable

func (r routes) RT() generichttp.RouteTable { return generichttp.RouteTable(r) }

func ok(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func TestLockRefusesOnlyProtectedRequests(t *testing.T) {
	rt := routes{
		{Method: http.MethodGet, Path: "/enabled"}:  ok,
		{Method: http.MethodPost, Path: "/enabled"}: ok,
	}
	l := New()
	Inject(rt, l)
	r := chi.NewRouter()
	r.Use(l.Check)
	rt.RT().Bind(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	post := func(path, body string) int {
		resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}
	get := func(path string) int {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := post("/enabled", "{}"); code != http.StatusOK {
		t.Errorf("expected 200 while unlocked, got %d", code)
	}
	if code := post("/lock", `{"bool": true}`); code != http.StatusOK || !l.Locked() {
		t.Fatalf("expected lock to engage, got %d", code)
	}
	if code := post("/enabled", "{}"); code != http.StatusLocked {
		t.Errorf("expected 423 while locked, got %d", code)
	}
	if code := get("/enabled"); code != http.StatusOK {
		t.Errorf("expected GET to pass while locked, got %d", code)
	}
	if code := post("/lock", `{"bool": false}`); code != http.StatusOK || l.Locked() {
		t.Errorf("expected unlock through the lock route, got %d", code)
	}
	if code := post("/lock", `not json`); code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad body, got %d", code)
	}
}
