package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/goliatone/go-markers"
	"github.com/goliatone/go-markers/pkg/document"
	"github.com/goliatone/go-markers/pkg/reload"
	"github.com/goliatone/go-markers/pkg/state"
)

type fixture struct {
	server  *Server
	store   *state.MemoryStore[document.Tree]
	tracker *reload.Tracker
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	registry, err := markers.NewRegistry(map[string]string{
		"overworld": "/srv/overworld.conf",
		"nether":    "/srv/nether.conf",
	}, "")
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	store := state.NewMemoryStore[document.Tree]()
	tracker := reload.NewTracker()
	svc, err := markers.NewService(registry, store, markers.WithTracker(tracker))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	scheduler := reload.NewScheduler(tracker, reload.CommandAction{})
	return fixture{
		server:  NewServer(svc, registry.Names(), WithStats(scheduler)),
		store:   store,
		tracker: tracker,
	}
}

func (f fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/add", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestFormAddRedirectsWithFlash(t *testing.T) {
	f := newFixture(t)
	rec := f.do(postForm(url.Values{"name": {"Spawn"}, "world": {"overworld"}, "x": {"0"}, "y": {"64"}, "z": {"0"}}))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("expected redirect, got %d %v", rec.Code, rec.Header())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected flash cookie, got %v", cookies)
	}

	index := httptest.NewRequest(http.MethodGet, "/", nil)
	index.AddCookie(cookies[0])
	page := f.do(index)
	if page.Code != http.StatusOK {
		t.Fatalf("index status %d", page.Code)
	}
	body := page.Body.String()
	if !strings.Contains(body, "Added POI &#34;Spawn&#34; at 0, 64, 0 in overworld.") {
		t.Fatalf("flash missing from page:\n%s", body)
	}
	if !strings.Contains(body, "<td>spawn</td>") {
		t.Fatalf("marker missing from page:\n%s", body)
	}
	if !f.tracker.Dirty() {
		t.Fatalf("tracker should be dirty after add")
	}
}

func TestFormAddValidationFlashes(t *testing.T) {
	cases := []struct {
		values url.Values
		want   string
	}{
		{url.Values{"name": {" "}, "world": {"overworld"}, "x": {"1"}, "y": {"2"}, "z": {"3"}}, "POI name is required."},
		{url.Values{"name": {"Camp"}, "world": {"moon"}, "x": {"1"}, "y": {"2"}, "z": {"3"}}, "Invalid world selected."},
		{url.Values{"name": {"Camp"}, "world": {"overworld"}, "x": {"abc"}, "y": {"2"}, "z": {"3"}}, "Coordinates must be whole numbers."},
	}
	for _, tc := range cases {
		f := newFixture(t)
		rec := f.do(postForm(tc.values))
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("expected redirect, got %d", rec.Code)
		}
		index := httptest.NewRequest(http.MethodGet, "/", nil)
		for _, c := range rec.Result().Cookies() {
			index.AddCookie(c)
		}
		body := f.do(index).Body.String()
		if !strings.Contains(body, tc.want) {
			t.Fatalf("expected %q in page:\n%s", tc.want, body)
		}
		if f.store.Len() != 0 || f.tracker.Dirty() {
			t.Fatalf("rejected add must not touch storage or tracker")
		}
	}
}

func TestAPIAddAndList(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/markers",
		strings.NewReader(`{"world":"nether","label":"Fortress","x":-120,"y":70,"z":33}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var res markers.AddResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.ID != "fortress" || res.World != "nether" || res.Marker.X != -120 {
		t.Fatalf("unexpected result %+v", res)
	}

	list := f.do(httptest.NewRequest(http.MethodGet, "/api/markers?world=nether", nil))
	var listing map[string][]markers.Marker
	if err := json.Unmarshal(list.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing) != 1 || len(listing["nether"]) != 1 || listing["nether"][0].Label != "Fortress" {
		t.Fatalf("unexpected listing %#v", listing)
	}

	all := f.do(httptest.NewRequest(http.MethodGet, "/api/markers", nil))
	listing = nil
	_ = json.Unmarshal(all.Body.Bytes(), &listing)
	if _, ok := listing["overworld"]; !ok || len(listing) != 2 {
		t.Fatalf("expected every world, got %#v", listing)
	}
}

func TestAPIStatusCodes(t *testing.T) {
	cases := []struct {
		body string
		want int
	}{
		{`{"world":"overworld","label":"","x":1,"y":2,"z":3}`, http.StatusBadRequest},
		{`{"world":"overworld","label":"Camp","x":1,"y":2}`, http.StatusBadRequest},
		{`{"world":"overworld","label":"Camp","x":"1","y":2,"z":3}`, http.StatusBadRequest},
		{`{"world":"moon","label":"Camp","x":1,"y":2,"z":3}`, http.StatusNotFound},
		{`not json`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodPost, "/api/markers", strings.NewReader(tc.body)))
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d (%s)", tc.body, tc.want, rec.Code, rec.Body)
		}
	}

	f := newFixture(t)
	if rec := f.do(httptest.NewRequest(http.MethodGet, "/api/markers?world=moon", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown world listing should 404, got %d", rec.Code)
	}
	f.store.FailSave = fmt.Errorf("%w: read-only filesystem", state.ErrIO)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/markers", strings.NewReader(`{"label":"Camp","x":1,"y":2,"z":3}`)))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("storage failure should 500, got %d", rec.Code)
	}
}

func TestHealthIncludesReloadStats(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var body struct {
		Status string       `json:"status"`
		Reload reload.Stats `json:"reload"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Reload.Interval != "1h0m0s" {
		t.Fatalf("unexpected health body %s", rec.Body)
	}
	if body.Reload.LastSuccess != nil || strings.Contains(rec.Body.String(), "0001-01-01") {
		t.Fatalf("no reload has succeeded yet, got %s", rec.Body)
	}
}

func TestMethodAndPathGuards(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(httptest.NewRequest(http.MethodGet, "/add", nil)); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /add should be 405, got %d", rec.Code)
	}
	if rec := f.do(httptest.NewRequest(http.MethodGet, "/missing", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path should 404, got %d", rec.Code)
	}
	if rec := f.do(httptest.NewRequest(http.MethodDelete, "/api/markers", nil)); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE should be 405, got %d", rec.Code)
	}
	rec := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing")
	}
}

func TestUserMessageFallsBackToError(t *testing.T) {
	if got := userMessage(context.Canceled); got != "Error adding POI: context canceled" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestOpenAPIDocument(t *testing.T) {
	f := newFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var doc struct {
		OpenAPI    string                    `json:"openapi"`
		Paths      map[string]map[string]any `json:"paths"`
		Components struct {
			Schemas map[string]any `json:"schemas"`
		} `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.OpenAPI != "3.0.3" {
		t.Fatalf("unexpected version %q", doc.OpenAPI)
	}
	for _, method := range []string{"get", "post"} {
		if _, ok := doc.Paths["/api/markers"][method]; !ok {
			t.Fatalf("missing %s /api/markers", method)
		}
	}
	for _, name := range []string{"Marker", "AddResult", "Error"} {
		if _, ok := doc.Components.Schemas[name]; !ok {
			t.Fatalf("missing component %s", name)
		}
	}
	if rec := f.do(httptest.NewRequest(http.MethodPost, "/api/openapi.json", nil)); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST should be 405, got %d", rec.Code)
	}
}
