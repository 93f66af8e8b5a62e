// ABOUTME: JSON API handlers for leads, search, intake and export
// ABOUTME: Maps app errors to HTTP status codes
package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/harperreed/leadsync/app"
	"github.com/harperreed/leadsync/export"
	"github.com/harperreed/leadsync/handlers"
	"github.com/harperreed/leadsync/intake"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/places"
	"github.com/harperreed/leadsync/store"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrLeadNotFound), errors.Is(err, places.ErrZeroResults), errors.Is(err, app.ErrNoMorePages):
		return http.StatusNotFound
	case errors.Is(err, app.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, app.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, app.ErrSearchUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, places.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, places.ErrMissingCategory),
		errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, intake.ErrMissingName),
		errors.Is(err, app.ErrEmptyNote),
		errors.Is(err, app.ErrMissingOutcome):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.failWith(w, err, "")
}

// failSearch adds the provider message shown to users next to the search box.
func (s *Server) failSearch(w http.ResponseWriter, err error) {
	s.failWith(w, err, places.UserMessage(err))
}

func (s *Server) failWith(w http.ResponseWriter, err error, message string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Message: message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Status())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Stats())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(s.app.Now())+`"`)
	if _, err := s.app.ExportCSV(w); err != nil {
		s.log.Error().Err(err).Msg("csv export failed")
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req app.SearchRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.app.Search(r.Context(), req)
	if err != nil {
		s.failSearch(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLoadMore(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.LoadMore(r.Context())
	if err != nil {
		s.failSearch(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type listResponse struct {
	Leads []models.Lead `json:"leads"`
	Total int           `json:"total"`
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := handlers.ListLeadsInput{
		Search:    q.Get("search"),
		Status:    q.Get("status"),
		Sort:      q.Get("sort"),
		Member:    q.Get("member"),
		Activity:  q.Get("activity"),
		Period:    q.Get("period"),
		NoWebsite: q.Get("noWebsite") == "true",
		NoPhone:   q.Get("noPhone") == "true",
		NotCalled: q.Get("notCalled") == "true",
		OnlyLeads: q.Get("onlyLeads") == "true",
	}
	if v := q.Get("maxReviews"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "maxReviews must be a number"})
			return
		}
		in.MaxReviews = n
	}
	f, sort, err := handlers.FiltersFrom(in)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	leads := s.app.Leads(f, sort)
	writeJSON(w, http.StatusOK, listResponse{Leads: leads, Total: len(leads)})
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	l, err := s.app.Lead(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

type updateRequest struct {
	Status       *string `json:"status"`
	IsLead       *bool   `json:"isLead"`
	AssignedTo   *string `json:"assignedTo"`
	Name         *string `json:"name"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
	Website      *string `json:"website"`
	BusinessType *string `json:"businessType"`
}

func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !decode(w, r, &req) {
		return
	}
	p := store.Patch{
		IsLead:       req.IsLead,
		AssignedTo:   req.AssignedTo,
		Name:         req.Name,
		Phone:        req.Phone,
		Address:      req.Address,
		Website:      req.Website,
		BusinessType: req.BusinessType,
	}
	if req.Status != nil {
		st, err := models.ParseStatus(*req.Status)
		if err != nil {
			s.fail(w, err)
			return
		}
		p.Status = &st
	}
	l, err := s.app.Update(chi.URLParam(r, "id"), p)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type noteRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if !decode(w, r, &req) {
		return
	}
	l, err := s.app.AddNote(chi.URLParam(r, "id"), req.Text)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

type callRequest struct {
	Outcome string `json:"outcome"`
	Notes   string `json:"notes"`
}

func (s *Server) handleLogCall(w http.ResponseWriter, r *http.Request) {
	var req callRequest
	if !decode(w, r, &req) {
		return
	}
	l, err := s.app.LogCall(chi.URLParam(r, "id"), req.Outcome, req.Notes)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) handleAddLead(w http.ResponseWriter, r *http.Request) {
	var in intake.Manual
	if !decode(w, r, &in) {
		return
	}
	l, err := s.app.AddManual(r.Context(), in)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

type socialRequest struct {
	Post         string `json:"post"`
	Name         string `json:"name"`
	Group        string `json:"group"`
	BusinessType string `json:"businessType"`
}

func (s *Server) handleAddSocial(w http.ResponseWriter, r *http.Request) {
	var req socialRequest
	if !decode(w, r, &req) {
		return
	}
	in := intake.Social{
		SocialPost:   intake.ParseSocialPost(req.Post),
		Group:        req.Group,
		BusinessType: req.BusinessType,
	}
	if req.Name != "" {
		in.Name = req.Name
	}
	l, err := s.app.AddSocial(r.Context(), in)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}
