package httpserver

import (
	"net/http"

	"github.com/and161185/carenotes/internal/model"
	"github.com/and161185/carenotes/internal/service"
)

// createOccurrence accepts JSON, or multipart with the attachments as "files" parts.
func (s *Server) createOccurrence(w http.ResponseWriter, r *http.Request) {
	timelineID, err := pathID(r, "timelineID", service.MsgTimelineNotFound)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req createOccurrenceRequest
	var uploads []model.Attachment
	ctx := r.Context()
	if isMultipart(r) {
		if err := s.parseMultipart(w, r); err != nil {
			s.fail(w, r, err)
			return
		}
		req = createOccurrenceRequest{
			Name:    formString(r, "name"),
			Content: formString(r, "content"),
			Kind:    formString(r, "kind"),
		}
		if err := validateStruct(req); err != nil {
			s.fail(w, r, err)
			return
		}
		if uploads, err = s.saveUploads(ctx, formFiles(r, "files")); err != nil {
			s.fail(w, r, err)
			return
		}
	} else {
		s.limitBody(w, r)
		if err := decodeJSON(r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
		if err := validateStruct(req); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	o, err := s.svc.Occurrences.Create(ctx, timelineID, service.OccurrenceInput{
		Name:    req.Name,
		Content: req.Content,
		Kind:    model.OccurrenceKind(req.Kind),
		Files:   uploads,
	})
	if err != nil {
		s.discard(ctx, uploads...)
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, service.MsgOccurrenceCreated, o)
}

func (s *Server) deleteOccurrence(w http.ResponseWriter, r *http.Request) {
	timelineID, err := pathID(r, "timelineID", service.MsgTimelineNotFound)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := pathID(r, "occurrenceID", service.MsgOccurrenceNotFound)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Occurrences.Delete(r.Context(), timelineID, id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.MsgOccurrenceDeleted, nil)
}

func (s *Server) getOccurrence(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "occurrenceID", service.MsgOccurrenceNotFound)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	o, err := s.svc.Occurrences.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.MsgOccurrenceFound, o)
}

// updateOccurrence accepts JSON with an optional "files" list of {"id"} entries
// naming attached files to retain, or multipart where repeated "keep" fields name
// files to retain and "files" parts are new uploads. Sending neither leaves the
// attachments untouched.
func (s *Server) updateOccurrence(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "occurrenceID", service.MsgOccurrenceNotFound)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req updateOccurrenceRequest
	var uploads []model.Attachment
	ctx := r.Context()
	if isMultipart(r) {
		if err := s.parseMultipart(w, r); err != nil {
			s.fail(w, r, err)
			return
		}
		req = updateOccurrenceRequest{
			Name:    formValue(r, "name"),
			Content: formValue(r, "content"),
			Kind:    formValue(r, "kind"),
		}
		keep, hasKeep := r.MultipartForm.Value["keep"]
		parts := formFiles(r, "files")
		if hasKeep || len(parts) > 0 {
			req.Files = []attachmentRequest{}
			for _, k := range keep {
				if k != "" {
					req.Files = append(req.Files, attachmentRequest{ID: k})
				}
			}
		}
		if err := validateStruct(req); err != nil {
			s.fail(w, r, err)
			return
		}
		if uploads, err = s.saveUploads(ctx, parts); err != nil {
			s.fail(w, r, err)
			return
		}
	} else {
		s.limitBody(w, r)
		if err := decodeJSON(r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
		if err := validateStruct(req); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	patch := model.OccurrencePatch{
		Name:    req.Name,
		Content: req.Content,
		Files:   attachments(req.Files),
	}
	if req.Kind != nil {
		k := model.OccurrenceKind(*req.Kind)
		patch.Kind = &k
	}
	if patch.Files != nil {
		patch.Files = append(patch.Files, uploads...)
	}

	o, err := s.svc.Occurrences.Update(ctx, id, patch)
	if err != nil {
		s.discard(ctx, uploads...)
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.MsgOccurrenceUpdated, o)
}
