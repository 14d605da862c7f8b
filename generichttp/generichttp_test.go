package generichttp

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSubMuxSanitize(t *testing.T) {
	for in, want := range map[string]string{
		"":          "/",
		"/":         "/",
		"camera":    "/camera",
		"/camera/":  "/camera",
		"a/b/":      "/a/b",
		"//camera/": "/camera",
	} {
		if got := SubMuxSanitize(in); got != want {
			t.Errorf("SubMuxSanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEndpointsSorted(t *testing.T) {
	noop := func(http.ResponseWriter, *http.Request) {}
	rt := RouteTable{
		{Method: http.MethodPost, Path: "/b"}: noop,
		{Method: http.MethodGet, Path: "/b"}:  noop,
		{Method: http.MethodGet, Path: "/a"}:  noop,
	}
	want := []string{"GET /a", "GET /b", "POST /b"}
	if diff := cmp.Diff(want, rt.Endpoints()); diff != "" {
		t.Errorf("endpoints (-want +got):\n%s", diff)
	}
}

func TestSetBoolStatus(t *testing.T) {
	var got bool
	h := SetBool(func(b bool) error {
		if !b {
			return errors.New("refused")
		}
		got = b
		return nil
	})
	for body, code := range map[string]int{
		`{"bool": true}`:  http.StatusOK,
		`{"bool": false}`: http.StatusConflict,
		`{"bool":`:        http.StatusBadRequest,
	} {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		if w.Code != code {
			t.Errorf("%s: expected %d, got %d", body, code, w.Code)
		}
	}
	if !got {
		t.Error("expected setter to receive true")
	}
}

func TestGetBool(t *testing.T) {
	w := httptest.NewRecorder()
	GetBool(func() bool { return true })(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if body := strings.TrimSpace(w.Body.String()); body != `{"bool":true}` {
		t.Errorf("unexpected body %s", body)
	}
}
