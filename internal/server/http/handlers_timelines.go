package httpserver

import (
	"net/http"

	"github.com/and161185/carenotes/internal/service"
)

func (s *Server) getTimeline(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "timelineID", service.MsgTimelineNotFound)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.svc.Timelines.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.MsgTimelineFound, t)
}

func (s *Server) updateTimeline(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "timelineID", service.MsgTimelineNotFound)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.limitBody(w, r)
	var req timelineRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := validateStruct(req); err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.svc.Timelines.Update(r.Context(), id, req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.MsgTimelineUpdated, t)
}

func (s *Server) listOccurrences(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "timelineID", service.MsgTimelineNotFound)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	page, limit := pageParams(r)
	occs, err := s.svc.Timelines.ListOccurrences(r.Context(), id, page, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.MsgOccurrencesFound, occs)
}
