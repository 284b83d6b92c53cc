package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mwantia/mediameta"
	"github.com/mwantia/mediameta/data"
	"github.com/mwantia/mediameta/indexer"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type browseResponse struct {
	Entries []mediameta.Entry `json:"entries"`
}

type metadataResponse struct {
	Metadata map[string]data.Record `json:"metadata"`
	Error    string                 `json:"error,omitempty"`
}

type setMetadataResponse struct {
	Failed []string `json:"failed,omitempty"`
	Error  string   `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: RequestIDFrom(r.Context())})
}

// statusOf maps source errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, data.ErrInvalidObjectID), errors.Is(err, data.ErrInvalidRequest), errors.Is(err, data.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, data.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, data.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, data.ErrUnsupportedMetadataKey):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func splitList(values []string) []string {
	var result []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	}
	return result
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"keys": s.source.Keys()})
}

// browseRequest reads keys, filter, sort, offset and count from the query string.
func browseRequest(r *http.Request) (*mediameta.BrowseRequest, error) {
	query := r.URL.Query()
	req := &mediameta.BrowseRequest{
		Keys: splitList(query["keys"]),
		Sort: splitList(query["sort"]),
	}

	if text := query.Get("filter"); text != "" {
		filter, err := indexer.ParseFilter(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", data.ErrInvalidRequest, err)
		}
		req.Filter = filter
	}

	for name, target := range map[string]*int{"offset": &req.Offset, "count": &req.Count} {
		text := query.Get(name)
		if text == "" {
			continue
		}
		n, err := strconv.Atoi(text)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: invalid %s %q", data.ErrInvalidRequest, name, text)
		}
		*target = n
	}
	return req, nil
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	req, err := browseRequest(r)
	if err != nil {
		writeError(w, r, statusOf(err), err)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		id = s.source.ObjectID(mediameta.ObjectID{Category: mediameta.CategoryRoot})
	}

	entries, err := s.source.Browse(r.Context(), id, req)
	if err != nil {
		writeError(w, r, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, browseResponse{Entries: entries})
}

func (s *Server) handleGetMetadata(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	ids := query["id"]
	keys := splitList(query["keys"])

	result, err := s.source.GetMetadata(r.Context(), ids, keys)
	if err != nil && len(result) == 0 {
		writeError(w, r, statusOf(err), err)
		return
	}

	response := metadataResponse{Metadata: result}
	if err != nil {
		response.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleSetMetadata(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")

	var values data.Record
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid metadata body: %w", err))
		return
	}

	failed, err := s.source.SetMetadata(r.Context(), id, values)
	if err != nil {
		writeJSON(w, statusOf(err), setMetadataResponse{Failed: failed, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, setMetadataResponse{})
}
