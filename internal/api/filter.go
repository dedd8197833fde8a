package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mwantia/linkfilter/pkg/filter"
)

// ParseResponse is a parsed query expression
type ParseResponse struct {
	Conditions []filter.Condition `json:"conditions"`
	Tags       []string           `json:"tags"`
	// Search is the canonical form of the expression
	Search string `json:"search"`
}

// ParseFilter handles GET /api/filter/parse?search=
func (s *Server) ParseFilter(w http.ResponseWriter, r *http.Request) {
	conds := filter.Parse(r.URL.Query().Get("search"))
	writeJSON(w, http.StatusOK, ParseResponse{
		Conditions: conds,
		Tags:       filter.Tags(conds),
		Search:     filter.Format(conds),
	})
}

// FormatRequest is the body of POST /api/filter/format
type FormatRequest struct {
	Conditions []filter.Condition `json:"conditions"`
	// Shim rewrites days_not_visit into last_visited_at bounds
	Shim bool `json:"shim"`
}

// FormatFilter handles POST /api/filter/format?tz=
//
// Shimmed timestamps are written in the same zone GET /api/shared_links reads
// them in for the same tz.
func (s *Server) FormatFilter(w http.ResponseWriter, r *http.Request) {
	loc, err := locationFrom(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	var req FormatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}

	search := filter.Format(req.Conditions)
	if req.Shim {
		search = filter.FormatShim(req.Conditions, s.now().In(loc))
	}
	writeJSON(w, http.StatusOK, map[string]string{"search": search})
}

// TranslateResponse is a translated preset. Search is set when the request
// carried a search to apply the condition to.
type TranslateResponse struct {
	filter.Condition
	Search string `json:"search,omitempty"`
}

// TranslatePreset handles GET /api/filter/translate?label=&key=&search=
//
// With a key the label is applied to that key's advanced item, otherwise
// the bare preset template is returned. With a search the condition replaces
// that key's clauses in it.
func (s *Server) TranslatePreset(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	label := q.Get("label")

	key := q.Get("key")
	if key == "" {
		writeJSON(w, http.StatusOK, TranslateResponse{Condition: filter.Translate(label, s.now())})
		return
	}

	item, ok := filter.FindItem(filter.Key(key))
	if !ok {
		s.fail(w, r, http.StatusNotFound, fmt.Errorf("unknown key %q", key))
		return
	}

	resp := TranslateResponse{Condition: filter.Apply(item, label, s.now())}
	if search := q.Get("search"); search != "" {
		staged := filter.NewBuilder(filter.Parse(search)...).Set(resp.Condition)
		resp.Search = filter.Format(staged.Conditions())
	}
	writeJSON(w, http.StatusOK, resp)
}

// ItemResponse is an advanced filter item and what it currently shows
type ItemResponse struct {
	filter.ItemView
	Selected string `json:"selected"`
}

// ListItems handles GET /api/filter/items, the optional search parameter
// fills in the selection of each item
func (s *Server) ListItems(w http.ResponseWriter, r *http.Request) {
	conds := filter.Collapse(filter.Parse(r.URL.Query().Get("search")))

	items := filter.AdvancedItems()
	resp := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, ItemResponse{
			ItemView: filter.Describe(item),
			Selected: filter.Selected(item, conds),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
