package httpserver

import (
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/carenotes/internal/model"
	"github.com/and161185/carenotes/internal/service"
)

// createPatient attaches the patient to the user named in the body, or to the
// caller when the body names none.
func (s *Server) createPatient(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)
	var req createPatientRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := validateStruct(req); err != nil {
		s.fail(w, r, err)
		return
	}
	birthdate, err := parseDate("birthdate", req.Birthdate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	owner, _ := UserIDFromCtx(r.Context())
	if req.User != "" {
		owner = uuid.FromStringOrNil(req.User)
	}

	p, err := s.svc.Patients.Create(r.Context(), service.PatientInput{
		User:                owner,
		Name:                req.Name,
		Contact:             req.Contact,
		Birthdate:           birthdate,
		Demands:             req.Demands,
		PersonalAnnotations: req.PersonalAnnotations,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, service.MsgPatientCreated, p)
}

func (s *Server) getPatient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "patientID", service.MsgPatientNotFound)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.svc.Patients.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.MsgPatientFound, p)
}

func (s *Server) updatePatient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "patientID", service.MsgPatientNotFound)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.limitBody(w, r)
	var req updatePatientRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := validateStruct(req); err != nil {
		s.fail(w, r, err)
		return
	}
	patch := model.PatientPatch{
		Name:                req.Name,
		Contact:             req.Contact,
		Demands:             req.Demands,
		PersonalAnnotations: req.PersonalAnnotations,
	}
	if req.Birthdate != nil {
		var bd time.Time
		if bd, err = parseDate("birthdate", *req.Birthdate); err != nil {
			s.fail(w, r, err)
			return
		}
		patch.Birthdate = &bd
	}
	p, err := s.svc.Patients.Update(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.MsgPatientUpdated, p)
}

func (s *Server) deletePatient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "patientID", service.MsgPatientNotFound)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Patients.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.MsgPatientDeleted, nil)
}

func (s *Server) listTimelines(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "patientID", service.MsgPatientNotFound)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	page, limit := pageParams(r)
	ts, err := s.svc.Patients.ListTimelines(r.Context(), id, page, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.MsgPatientTimelines, ts)
}

func (s *Server) createTimeline(w http.ResponseWriter, r *http.Request) {
	patientID, err := pathID(r, "patientID", service.MsgPatientNotFound)
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
	t, err := s.svc.Timelines.Create(r.Context(), patientID, req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, service.MsgTimelineCreated, t)
}

func (s *Server) deleteTimeline(w http.ResponseWriter, r *http.Request) {
	patientID, err := pathID(r, "patientID", service.MsgPatientNotFound)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := pathID(r, "timelineID", service.MsgTimelineNotFound)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Timelines.Delete(r.Context(), patientID, id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.MsgTimelineDeleted, nil)
}
