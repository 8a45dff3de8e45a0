package httpserver

import (
	"net"
	"net/http"
	"time"

	"github.com/and161185/carenotes/internal/errs"
	"github.com/and161185/carenotes/internal/model"
	"github.com/and161185/carenotes/internal/service"
)

func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := validateStruct(req); err != nil {
		s.fail(w, r, err)
		return
	}
	tok, u, err := s.svc.Auth.Login(r.Context(), req.Email, req.Password, remoteIP(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.MsgAuthenticated, loginResponse{
		Token:     tok.AccessToken,
		ExpiresAt: tok.ExpiresAt.UTC().Format(time.RFC3339),
		User:      u,
	})
}

// createUser expects multipart/form-data with name, email, password and an image part.
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	req := createUserRequest{
		Name:     formString(r, "name"),
		Email:    formString(r, "email"),
		Password: formString(r, "password"),
	}
	if err := validateStruct(req); err != nil {
		s.fail(w, r, err)
		return
	}
	images := formFiles(r, "image")
	if len(images) == 0 {
		s.fail(w, r, errs.Validation(msgInvalidPayload, "image is required"))
		return
	}

	ctx := r.Context()
	img, err := s.saveUpload(ctx, images[0])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.svc.Users.Create(ctx, service.UserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Image:    img,
	})
	if err != nil {
		s.discard(ctx, img)
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, service.MsgUserCreated, v)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID", service.MsgUserNotFound)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.svc.Users.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.MsgUserFound, v)
}

// updateUser accepts JSON, or multipart when a new image is uploaded.
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID", service.MsgUserNotFound)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req updateUserRequest
	var images []model.Attachment
	ctx := r.Context()
	if isMultipart(r) {
		if err := s.parseMultipart(w, r); err != nil {
			s.fail(w, r, err)
			return
		}
		req = updateUserRequest{
			Name:     formValue(r, "name"),
			Email:    formValue(r, "email"),
			Password: formValue(r, "password"),
		}
		if err := validateStruct(req); err != nil {
			s.fail(w, r, err)
			return
		}
		if fhs := formFiles(r, "image"); len(fhs) > 0 {
			if images, err = s.saveUploads(ctx, fhs[:1]); err != nil {
				s.fail(w, r, err)
				return
			}
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

	patch := model.UserPatch{Name: req.Name, Email: req.Email, Password: req.Password}
	if len(images) > 0 {
		patch.Image = &images[0]
	}
	v, err := s.svc.Users.Update(ctx, id, patch)
	if err != nil {
		s.discard(ctx, images...)
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.MsgUserUpdated, v)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID", service.MsgUserNotFound)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Users.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.MsgUserDeleted, nil)
}

func (s *Server) listPatients(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID", service.MsgUserNotFound)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	page, limit := pageParams(r)
	ps, err := s.svc.Users.ListPatients(r.Context(), id, page, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, service.MsgPatientsRetrieved, ps)
}
