// Package web serves the marker form, listing and JSON API.
package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-markers"
	"github.com/goliatone/go-markers/pkg/reload"
)

const (
	flashCookieName = "poi_flash"
	maxFormBytes    = 64 * 1024
)

// Markers is the part of markers.Service the handlers use.
type Markers interface {
	ListMarkers(ctx context.Context, world string) (map[string][]markers.Marker, error)
	AddMarker(ctx context.Context, req markers.AddRequest) (markers.AddResult, error)
}

// StatsSource reports reload scheduler state for /healthz.
type StatsSource interface {
	Stats() reload.Stats
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStats exposes scheduler counters on /healthz.
func WithStats(stats StatsSource) Option {
	return func(s *Server) {
		s.stats = stats
	}
}

// Server routes HTTP requests to a marker service.
type Server struct {
	markers Markers
	worlds  []string
	stats   StatsSource
	logger  *slog.Logger
	mux     *http.ServeMux
}

// NewServer wires the routes. worlds populates the form's world selector.
func NewServer(svc Markers, worlds []string, opts ...Option) *Server {
	s := &Server{
		markers: svc,
		worlds:  append([]string(nil), worlds...),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	sort.Strings(s.worlds)

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/add", s.handleAddForm)
	s.mux.HandleFunc("/api/markers", s.handleMarkersAPI)
	s.mux.HandleFunc("/api/openapi.json", s.handleOpenAPI)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.addSecurityHeaders(s.mux).ServeHTTP(w, r)
}

func (s *Server) addSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

type flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type indexView struct {
	Flash   *flash
	Worlds  []worldView
	Default string
}

type worldView struct {
	Name    string
	Markers []markers.Marker
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	listing, err := s.markers.ListMarkers(r.Context(), "")
	if err != nil {
		s.logger.Error("list markers failed", "error", err)
		http.Error(w, "unable to list markers", http.StatusInternalServerError)
		return
	}

	view := indexView{Flash: s.takeFlash(w, r)}
	for _, name := range s.worlds {
		view.Worlds = append(view.Worlds, worldView{Name: name, Markers: listing[name]})
	}
	if len(s.worlds) > 0 {
		view.Default = s.worlds[0]
		for _, name := range s.worlds {
			if name == markers.DefaultWorld {
				view.Default = name
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := indexTemplate.Execute(w, view); err != nil {
		s.logger.Error("render index failed", "error", err)
	}
}

func (s *Server) handleAddForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	req, err := markers.ParseAddRequest(
		r.PostForm.Get("world"),
		r.PostForm.Get("name"),
		r.PostForm.Get("x"),
		r.PostForm.Get("y"),
		r.PostForm.Get("z"),
	)
	if err == nil {
		var res markers.AddResult
		res, err = s.markers.AddMarker(r.Context(), req)
		if err == nil {
			s.setFlash(w, flash{Kind: "success", Message: res.FlashMessage()})
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}

	s.setFlash(w, flash{Kind: "error", Message: userMessage(err)})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type addPayload struct {
	World string `json:"world"`
	Label string `json:"label"`
	X     *int   `json:"x"`
	Y     *int   `json:"y"`
	Z     *int   `json:"z"`
}

type apiError struct {
	Error string `json:"error"`
}

func (s *Server) handleMarkersAPI(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		listing, err := s.markers.ListMarkers(r.Context(), r.URL.Query().Get("world"))
		if err != nil {
			s.writeJSON(w, statusFor(err), apiError{Error: userMessage(err)})
			return
		}
		s.writeJSON(w, http.StatusOK, listing)
	case http.MethodPost:
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		var payload addPayload
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&payload); err != nil {
			s.writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid JSON body"})
			return
		}
		if payload.X == nil || payload.Y == nil || payload.Z == nil {
			s.writeJSON(w, http.StatusBadRequest, apiError{Error: userMessage(markers.ErrInvalidCoordinates)})
			return
		}
		res, err := s.markers.AddMarker(r.Context(), markers.AddRequest{
			World: payload.World,
			Label: payload.Label,
			X:     *payload.X,
			Y:     *payload.Y,
			Z:     *payload.Z,
		})
		if err != nil {
			s.writeJSON(w, statusFor(err), apiError{Error: userMessage(err)})
			return
		}
		s.writeJSON(w, http.StatusCreated, res)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type healthView struct {
	Status string        `json:"status"`
	Time   time.Time     `json:"time"`
	Reload *reload.Stats `json:"reload,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	view := healthView{Status: "ok", Time: time.Now().UTC()}
	if s.stats != nil {
		stats := s.stats.Stats()
		view.Reload = &stats
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encode response failed", "error", err)
	}
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, markers.ErrEmptyLabel), errors.Is(err, markers.ErrInvalidCoordinates):
		return http.StatusBadRequest
	case errors.Is(err, markers.ErrInvalidWorld):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// userMessage renders the reason shown to the person who submitted the form.
func userMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, markers.ErrEmptyLabel):
		return "POI name is required."
	case errors.Is(err, markers.ErrInvalidWorld):
		return "Invalid world selected."
	case errors.Is(err, markers.ErrInvalidCoordinates):
		return "Coordinates must be whole numbers."
	case errors.Is(err, markers.ErrDocumentParse):
		return "Error adding POI: the marker file could not be parsed."
	case errors.Is(err, markers.ErrIO):
		return "Error adding POI: the marker file could not be saved."
	default:
		return "Error adding POI: " + err.Error()
	}
}

func (s *Server) setFlash(w http.ResponseWriter, f flash) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) takeFlash(w http.ResponseWriter, r *http.Request) *flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookieName, Value: "", Path: "/", MaxAge: -1})
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(cookie.Value))
	if err != nil {
		return nil
	}
	var f flash
	if err := json.Unmarshal(data, &f); err != nil || f.Message == "" {
		return nil
	}
	return &f
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Points of Interest</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
.flash { padding: .5rem 1rem; border-radius: 4px; }
.flash.success { background: #e3f6e5; }
.flash.error { background: #fde4e4; }
table { border-collapse: collapse; width: 100%; }
td, th { border-bottom: 1px solid #ddd; padding: .25rem .5rem; text-align: left; }
</style>
</head>
<body>
<h1>Points of Interest</h1>
{{with .Flash}}<p class="flash {{.Kind}}">{{.Message}}</p>{{end}}
<form method="post" action="/add">
  <label>Name <input name="name" required></label>
  <label>World <select name="world">{{range .Worlds}}<option value="{{.Name}}"{{if eq .Name $.Default}} selected{{end}}>{{.Name}}</option>{{end}}</select></label>
  <label>X <input name="x" inputmode="numeric" required></label>
  <label>Y <input name="y" inputmode="numeric" required></label>
  <label>Z <input name="z" inputmode="numeric" required></label>
  <button type="submit">Add POI</button>
</form>
{{range .Worlds}}
<h2>{{.Name}}</h2>
{{if .Markers}}
<table>
<tr><th>ID</th><th>Label</th><th>X</th><th>Y</th><th>Z</th></tr>
{{range .Markers}}<tr><td>{{.ID}}</td><td>{{.Label}}</td><td>{{.X}}</td><td>{{.Y}}</td><td>{{.Z}}</td></tr>
{{end}}</table>
{{else}}<p>No markers yet.</p>{{end}}
{{end}}
</body>
</html>
`))
