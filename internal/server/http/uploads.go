package httpserver

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/and161185/carenotes/internal/blob"
	"github.com/and161185/carenotes/internal/errs"
	"github.com/and161185/carenotes/internal/model"
)

const (
	multipartMemory = 8 << 20
	msgFileNotFound = "File not found"
)

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// limitBody caps the request body at the configured upload size.
func (s *Server) limitBody(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
}

func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	if r.ContentLength > s.opts.MaxUploadBytes {
		return &http.MaxBytesError{Limit: s.opts.MaxUploadBytes}
	}
	s.limitBody(w, r)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		if strings.Contains(err.Error(), "request body too large") {
			return &http.MaxBytesError{Limit: s.opts.MaxUploadBytes}
		}
		return errs.Validation(msgInvalidPayload, "body must be multipart/form-data")
	}
	return nil
}

// formValue returns a pointer to a submitted form field, nil when the field is absent.
func formValue(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	vs, ok := r.MultipartForm.Value[key]
	if !ok || len(vs) == 0 {
		return nil
	}
	v := vs[0]
	return &v
}

func formString(r *http.Request, key string) string {
	if v := formValue(r, key); v != nil {
		return *v
	}
	return ""
}

func formFiles(r *http.Request, key string) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	return r.MultipartForm.File[key]
}

// saveUploads stores every uploaded part and returns their attachments. On
// failure the parts already stored are removed again.
func (s *Server) saveUploads(ctx context.Context, fhs []*multipart.FileHeader) ([]model.Attachment, error) {
	out := make([]model.Attachment, 0, len(fhs))
	for _, fh := range fhs {
		att, err := s.saveUpload(ctx, fh)
		if err != nil {
			s.discard(ctx, out...)
			return nil, err
		}
		out = append(out, att)
	}
	return out, nil
}

func (s *Server) saveUpload(ctx context.Context, fh *multipart.FileHeader) (model.Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return model.Attachment{}, errs.Internal(err)
	}
	defer f.Close()
	att, err := blob.Save(ctx, s.blobs, fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		return model.Attachment{}, errs.Internal(err)
	}
	return att, nil
}

// discard removes stored bytes of uploads whose records were never written.
func (s *Server) discard(ctx context.Context, atts ...model.Attachment) {
	for _, a := range atts {
		if err := s.blobs.Delete(ctx, a.Filename); err != nil {
			s.log.Warn("discard upload failed", zap.String("filename", a.Filename), zap.Error(err))
		}
	}
}

func (s *Server) serveUpload(w http.ResponseWriter, r *http.Request) {
	info, body, err := s.blobs.Get(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) || errors.Is(err, blob.ErrInvalidKey) {
			writeJSON(w, http.StatusNotFound, msgFileNotFound, nil)
			return
		}
		s.fail(w, r, err)
		return
	}
	defer body.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		s.log.Debug("upload stream interrupted", zap.Error(err))
	}
}
