// Package generichttp contains the plumbing shared by the HTTP wrappers:
// route tables, JSON payloads for primitive values, and handler generators
// for getter/setter pairs.
package generichttp

import (
	"encoding/json"
	"go/types"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi"
)

// MethodPath is an HTTP method and a URL path
type MethodPath struct {
	Method string
	Path   string
}

// RouteTable maps method+path pairs to handlers
type RouteTable map[MethodPath]http.HandlerFunc

// HTTPer is a type which exposes a route table
type HTTPer interface {
	RT() RouteTable
}

// Bind binds every route of the table onto a router
func (rt RouteTable) Bind(r chi.Router) {
	for mp, hndl := range rt {
		r.MethodFunc(mp.Method, mp.Path, hndl)
	}
}

// Endpoints returns "METHOD /path" for every route, sorted by path
func (rt RouteTable) Endpoints() []string {
	out := make([]string, 0, len(rt))
	for mp := range rt {
		out = append(out, mp.Method+" "+mp.Path)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.Fields(out[i]), strings.Fields(out[j])
		if a[1] == b[1] {
			return a[0] < b[0]
		}
		return a[1] < b[1]
	})
	return out
}

// SubMuxSanitize converts a string such as "camera" or "/camera/" into
// "/camera", suitable for mounting a router on.  "" and "/" become "/".
func SubMuxSanitize(str string) string {
	str = strings.Trim(str, "/")
	return "/" + str
}

// BoolT is a struct with a single field Bool, for json {"bool": value}
type BoolT struct {
	Bool bool `json:"bool"`
}

// IntT is a struct with a single field Int, for json {"int": value}
type IntT struct {
	Int int `json:"int"`
}

// StrT is a struct with a single field Str, for json {"str": value}
type StrT struct {
	Str string `json:"str"`
}

// HumanPayload carries one primitive value and its type.  It is encoded as a
// single-key JSON object, e.g. {"bool": true}
type HumanPayload struct {
	// T is the type of the value, one of types.Bool, types.Int, types.String
	T types.BasicKind

	Bool   bool
	Int    int
	String string
}

// EncodeAndRespond writes the payload as JSON with status 200
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	var v interface{}
	switch hp.T {
	case types.Bool:
		v = BoolT{hp.Bool}
	case types.Int:
		v = IntT{hp.Int}
	case types.String:
		v = StrT{hp.String}
	default:
		http.Error(w, "unsupported payload type", http.StatusInternalServerError)
		return
	}
	RespondJSON(w, v)
}

// RespondJSON writes v as JSON with status 200
func RespondJSON(w http.ResponseWriter, v interface{}) {
	buf, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(buf)
}

// GetBool calls a bool-getting function and returns the response
// as json {'bool': value}
func GetBool(fcn func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hp := HumanPayload{T: types.Bool, Bool: fcn()}
		hp.EncodeAndRespond(w, r)
	}
}

// SetBool parses a JSON input of {'bool': value} and
// calls fcn with it
func SetBool(fcn func(bool) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := BoolT{}
		err := json.NewDecoder(r.Body).Decode(&b)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = fcn(b.Bool)
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// ListEndpoints returns a handler which lists the routes of an HTTPer as JSON
func ListEndpoints(h HTTPer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		RespondJSON(w, h.RT().Endpoints())
	}
}
