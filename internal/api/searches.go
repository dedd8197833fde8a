package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/mwantia/linkfilter/pkg/db/models"
	"github.com/mwantia/linkfilter/pkg/filter"
)

var backendParser = filter.NewParser(filter.BackendKeys...)

// CreateSearchRequest is the body of POST /api/searches
type CreateSearchRequest struct {
	Name            string `json:"name"`
	QueryExpression string `json:"query_expression"`
	Description     string `json:"description"`
}

// ListSearches handles GET /api/searches
func (s *Server) ListSearches(w http.ResponseWriter, r *http.Request) {
	searches, err := s.store.ListSearches(r.Context(), userFrom(r))
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	if searches == nil {
		searches = []models.SavedSearch{}
	}
	writeJSON(w, http.StatusOK, searches)
}

// CreateSearch handles POST /api/searches
//
// The expression is stored in its canonical form.
func (s *Server) CreateSearch(w http.ResponseWriter, r *http.Request) {
	var req CreateSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		s.fail(w, r, http.StatusBadRequest, errors.New("name is required"))
		return
	}
	expression := filter.Format(backendParser.Parse(req.QueryExpression))
	if expression == "" {
		s.fail(w, r, http.StatusBadRequest, errors.New("query_expression is empty"))
		return
	}

	search := &models.SavedSearch{
		UserID:          userFrom(r),
		Name:            name,
		QueryExpression: expression,
		Description:     req.Description,
	}
	// the unique index on user and name decides between concurrent creates
	if err := s.store.CreateSearch(r.Context(), search); err != nil {
		s.fail(w, r, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, search)
}

// GetSearch handles GET /api/searches/{name}
func (s *Server) GetSearch(w http.ResponseWriter, r *http.Request) {
	search, err := s.store.GetSearch(r.Context(), userFrom(r), mux.Vars(r)["name"])
	if err != nil {
		s.fail(w, r, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, search)
}

// DeleteSearch handles DELETE /api/searches/{name}
func (s *Server) DeleteSearch(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSearch(r.Context(), userFrom(r), mux.Vars(r)["name"]); err != nil {
		s.fail(w, r, statusOf(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunSearch handles GET /api/searches/{name}/links
//
// It accepts the same parameters as the link listing. A search parameter
// narrows the saved expression further.
func (s *Server) RunSearch(w http.ResponseWriter, r *http.Request) {
	search, err := s.store.GetSearch(r.Context(), userFrom(r), mux.Vars(r)["name"])
	if err != nil {
		s.fail(w, r, statusOf(err), err)
		return
	}

	query, err := s.linkQuery(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	saved := backendParser.Parse(search.QueryExpression)
	query.Filters = append(saved, query.Filters...)
	s.queryLinks(w, r, query)
}
