package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/mwantia/linkfilter/pkg/db/models"
	"github.com/mwantia/linkfilter/pkg/db/store"
	"github.com/mwantia/linkfilter/pkg/filter"
)

// LinkListResponse is one page of shared links
type LinkListResponse struct {
	Total    int64               `json:"total"`
	PageSize int                 `json:"page_size"`
	List     []models.SharedLink `json:"list"`
	Ignored  []filter.Condition  `json:"ignored,omitempty"`
}

// ListLinks handles GET /api/shared_links
//
// Query parameters: search (query expression), filter (JSON condition list),
// limit, page_index and tz (IANA zone the dates of the search are in).
func (s *Server) ListLinks(w http.ResponseWriter, r *http.Request) {
	query, err := s.linkQuery(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	s.queryLinks(w, r, query)
}

func (s *Server) queryLinks(w http.ResponseWriter, r *http.Request, query store.LinkQuery) {
	page, err := s.store.QueryLinks(r.Context(), query)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	if len(page.Ignored) > 0 {
		s.log.Debug("ignored %d conditions: %s", len(page.Ignored), filter.Format(page.Ignored))
	}

	list := page.Links
	if list == nil {
		list = []models.SharedLink{}
	}
	writeJSON(w, http.StatusOK, LinkListResponse{
		Total:    page.Total,
		PageSize: len(list),
		List:     list,
		Ignored:  page.Ignored,
	})
}

func (s *Server) linkQuery(r *http.Request) (store.LinkQuery, error) {
	q := r.URL.Query()
	query := store.LinkQuery{
		UserID:    userFrom(r),
		Search:    q.Get("search"),
		Limit:     s.cfg.PageSize,
		PageIndex: 1,
		Now:       s.now(),
	}

	if raw := q.Get("filter"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &query.Filters); err != nil {
			return query, fmt.Errorf("invalid filter: %w", err)
		}
	}

	// Unparsable paging values fall back to the defaults
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		query.Limit = limit
	}
	if index, err := strconv.Atoi(q.Get("page_index")); err == nil && index > 0 {
		query.PageIndex = index
	}

	loc, err := locationFrom(r)
	if err != nil {
		return query, err
	}
	query.Location = loc

	return query, nil
}

// locationFrom resolves the tz query parameter. Dates written into and read
// from query expressions are both in this zone, UTC when tz is not given.
func locationFrom(r *http.Request) (*time.Location, error) {
	tz := r.URL.Query().Get("tz")
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid tz: %w", err)
	}
	return loc, nil
}

// CreateLinkRequest is the body of POST /api/shared_links
type CreateLinkRequest struct {
	Host           string `json:"host"`
	CreatedBy      string `json:"created_by"`
	Title          string `json:"title"`
	OriginalLink   string `json:"original_link"`
	HostSharedLink string `json:"host_shared_link"`
	State          string `json:"state"`
	Size           int64  `json:"size"`
	Stored         int64  `json:"stored"`
}

// CreateLink handles POST /api/shared_links
func (s *Server) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if strings.TrimSpace(req.OriginalLink) == "" {
		s.fail(w, r, http.StatusBadRequest, errors.New("original_link is required"))
		return
	}

	userID := userFrom(r)
	link := &models.SharedLink{
		UserID:         userID,
		Host:           req.Host,
		CreatedBy:      req.CreatedBy,
		Title:          req.Title,
		OriginalLink:   req.OriginalLink,
		HostSharedLink: req.HostSharedLink,
		State:          req.State,
		Size:           req.Size,
		Stored:         req.Stored,
		LastVisitedAt:  s.now(),
	}
	if link.CreatedBy == "" {
		link.CreatedBy = userID
	}

	if err := s.store.CreateLink(r.Context(), link); err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	created, err := s.store.GetLink(r.Context(), userID, link.AutoID)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateLinkRequest is the body of PATCH /api/shared_links/{id}, only the
// fields that are set are changed
type UpdateLinkRequest struct {
	Title          *string `json:"title,omitempty"`
	HostSharedLink *string `json:"host_shared_link,omitempty"`
	State          *string `json:"state,omitempty"`
	Size           *int64  `json:"size,omitempty"`
	Stored         *int64  `json:"stored,omitempty"`
	Revenue        *int64  `json:"revenue,omitempty"`
}

func (req UpdateLinkRequest) apply(link *models.SharedLink) {
	if req.Title != nil {
		link.Title = *req.Title
	}
	if req.HostSharedLink != nil {
		link.HostSharedLink = *req.HostSharedLink
	}
	if req.State != nil {
		link.State = *req.State
	}
	if req.Size != nil {
		link.Size = *req.Size
	}
	if req.Stored != nil {
		link.Stored = *req.Stored
	}
	if req.Revenue != nil {
		link.Revenue = *req.Revenue
	}
}

// GetLink handles GET /api/shared_links/{id}
func (s *Server) GetLink(w http.ResponseWriter, r *http.Request) {
	link, err := s.link(r)
	if err != nil {
		s.fail(w, r, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// UpdateLink handles PATCH /api/shared_links/{id}
func (s *Server) UpdateLink(w http.ResponseWriter, r *http.Request) {
	var req UpdateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if req.State != nil && strings.TrimSpace(*req.State) == "" {
		s.fail(w, r, http.StatusBadRequest, errors.New("state must not be empty"))
		return
	}

	link, err := s.link(r)
	if err != nil {
		s.fail(w, r, statusOf(err), err)
		return
	}

	req.apply(link)
	if err := s.store.UpdateLink(r.Context(), link); err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// VisitLink handles POST /api/shared_links/{id}/visit, it counts a visit and
// resets the days the link was not visited
func (s *Server) VisitLink(w http.ResponseWriter, r *http.Request) {
	id, err := linkID(r)
	if err != nil {
		s.fail(w, r, statusOf(err), err)
		return
	}
	if err := s.store.RecordVisit(r.Context(), userFrom(r), id, s.now()); err != nil {
		s.fail(w, r, statusOf(err), err)
		return
	}

	link, err := s.link(r)
	if err != nil {
		s.fail(w, r, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// link loads the link named by the id route variable for the acting user
func (s *Server) link(r *http.Request) (*models.SharedLink, error) {
	id, err := linkID(r)
	if err != nil {
		return nil, err
	}
	link, err := s.store.GetLink(r.Context(), userFrom(r), id)
	if err != nil {
		return nil, fmt.Errorf("link %d: %w", id, err)
	}
	link.ComputeDaysNotVisit(s.now())
	return link, nil
}

var errInvalidID = errors.New("invalid link id")

func linkID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errInvalidID, err)
	}
	return uint(id), nil
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
