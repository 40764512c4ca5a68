package web

import (
	"net/http"

	"github.com/goliatone/go-markers"
	"github.com/goliatone/go-markers/schema/openapi"
)

// apiDocument describes the JSON routes served by Server.
func apiDocument() (map[string]any, error) {
	b := openapi.NewBuilder(
		openapi.WithInfo("POI Markers API", "1.0.0",
			openapi.WithInfoDescription("Read and append points of interest in per-world marker documents.")),
	)
	for name, sample := range map[string]any{
		"Marker":    markers.Marker{},
		"AddResult": markers.AddResult{},
		"Error":     apiError{},
	} {
		if err := b.Component(name, sample); err != nil {
			return nil, err
		}
	}

	b.Add(openapi.Operation{
		Method:      http.MethodGet,
		Path:        "/api/markers",
		OperationID: "listMarkers",
		Summary:     "List markers grouped by world",
		Query:       []openapi.Parameter{{Name: "world", Description: "Restrict the listing to one world."}},
		Responses: map[int]openapi.Response{
			http.StatusOK:       {Body: map[string][]markers.Marker{}},
			http.StatusNotFound: {Description: "Unknown world", Body: apiError{}},
		},
	})
	b.Add(openapi.Operation{
		Method:      http.MethodPost,
		Path:        "/api/markers",
		OperationID: "addMarker",
		Summary:     "Append a marker to a world's user marker set",
		Request:     addPayload{},
		Responses: map[int]openapi.Response{
			http.StatusCreated:             {Body: markers.AddResult{}},
			http.StatusBadRequest:          {Body: apiError{}},
			http.StatusNotFound:            {Description: "Unknown world", Body: apiError{}},
			http.StatusInternalServerError: {Body: apiError{}},
		},
	})
	b.Add(openapi.Operation{
		Method:      http.MethodGet,
		Path:        "/healthz",
		OperationID: "health",
		Summary:     "Liveness and reload scheduler counters",
		Responses: map[int]openapi.Response{
			http.StatusOK: {Body: healthView{}},
		},
	})
	return b.Build()
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	doc, err := apiDocument()
	if err != nil {
		s.logger.Error("build api document failed", "error", err)
		http.Error(w, "unable to describe api", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}
