package httpserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/carenotes/internal/service"
)

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, Options{})

	res := e.sendJSON(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, res.Status)

	resp, err := e.srv.Client().Get(e.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(body), `carenotes_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestHealth_Unavailable(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, Options{Health: func(context.Context) error { return errors.New("db down") }})

	res := e.sendJSON(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, res.Status)
}

func TestAuthenticate_Rejects(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, Options{})

	res := e.sendJSON(t, http.MethodGet, "/patients/"+uuidString(), "", nil)
	require.Equal(t, http.StatusUnauthorized, res.Status)
	require.Equal(t, msgTokenNotFound, res.Message)

	res = e.sendJSON(t, http.MethodGet, "/patients/"+uuidString(), "not.a.jwt", nil)
	require.Equal(t, http.StatusUnauthorized, res.Status)
	require.Equal(t, msgInvalidToken, res.Message)
}

func TestUsers_Lifecycle(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, Options{})

	u, tok := e.signup(t, "Ana@Example.com")
	require.Equal(t, "ana@example.com", u.Email)
	require.Equal(t, "image/png", u.Image.Mimetype)
	require.Equal(t, 1, e.uploadCount(t))

	// the stored image is served back
	resp, err := e.srv.Client().Get(e.srv.URL + "/uploads/" + u.Image.Filename)
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	require.Equal(t, pngBytes, data)

	// duplicate email: conflict, and the second upload is discarded
	res := e.sendForm(t, http.MethodPost, "/users", "",
		map[string][]string{"name": {"Other"}, "email": {"ana@example.com"}, "password": {"secret1"}},
		part{field: "image", filename: "b.png", data: pngBytes},
	)
	require.Equal(t, http.StatusConflict, res.Status)
	require.Equal(t, service.MsgUserExists, res.Message)
	require.Equal(t, 1, e.uploadCount(t))
	require.Equal(t, 1, e.store.Counts()["files"])

	// wrong password
	res = e.sendJSON(t, http.MethodPost, "/auth", "", map[string]string{"email": "ana@example.com", "password": "nope123"})
	require.Equal(t, http.StatusUnauthorized, res.Status)
	require.Equal(t, service.MsgInvalidCredentials, res.Message)

	res = e.sendJSON(t, http.MethodGet, "/users/"+u.ID, tok, nil)
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, service.MsgUserFound, res.Message)

	res = e.sendJSON(t, http.MethodPatch, "/users/"+u.ID, tok, map[string]string{"name": "Dr. Ana Reis"})
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, "Dr. Ana Reis", decode[userJSON](t, res).Name)

	// new image through multipart replaces the old bytes
	res = e.sendForm(t, http.MethodPatch, "/users/"+u.ID, tok, nil,
		part{field: "image", filename: "new.png", contentType: "image/png", data: pngBytes})
	require.Equal(t, http.StatusOK, res.Status, res.Message)
	updated := decode[userJSON](t, res)
	require.Equal(t, u.Image.ID, updated.Image.ID)
	require.NotEqual(t, u.Image.Filename, updated.Image.Filename)
	require.Equal(t, 1, e.uploadCount(t))

	res = e.sendJSON(t, http.MethodDelete, "/users/"+u.ID, tok, nil)
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, service.MsgUserDeleted, res.Message)
	require.Equal(t, 0, e.uploadCount(t))

	res = e.sendJSON(t, http.MethodGet, "/users/"+u.ID, tok, nil)
	require.Equal(t, http.StatusNotFound, res.Status)
	require.Equal(t, service.MsgUserNotFound, res.Message)
}

func TestUsers_CreateValidation(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, Options{})

	res := e.sendForm(t, http.MethodPost, "/users", "",
		map[string][]string{"name": {"A"}, "email": {"not-an-email"}, "password": {"123"}},
		part{field: "image", filename: "a.png", data: pngBytes},
	)
	require.Equal(t, http.StatusBadRequest, res.Status)
	require.ElementsMatch(t, []string{"email must be a valid email", "password must be at least 6 characters"}, res.Errors)

	res = e.sendForm(t, http.MethodPost, "/users", "",
		map[string][]string{"name": {"A"}, "email": {"a@example.com"}, "password": {"secret1"}})
	require.Equal(t, http.StatusBadRequest, res.Status)
	require.Equal(t, []string{"image is required"}, res.Errors)

	res = e.sendJSON(t, http.MethodPost, "/users", "", map[string]string{"name": "A"})
	require.Equal(t, http.StatusBadRequest, res.Status)

	require.Equal(t, 0, e.uploadCount(t))
}

func TestRecords_Flow(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, Options{})
	u, tok := e.signup(t, "therapist@example.com")

	// patient owned by the caller
	res := e.sendJSON(t, http.MethodPost, "/patients", tok, map[string]string{
		"name": "John", "contact": "+55 11 99999-0000", "birthdate": "1990-04-12",
	})
	require.Equal(t, http.StatusCreated, res.Status, res.Message)
	p := decode[recordJSON](t, res)
	require.Equal(t, u.ID, p.User)

	res = e.sendJSON(t, http.MethodGet, "/users/"+u.ID+"/patients", tok, nil)
	require.Equal(t, http.StatusOK, res.Status)
	require.Len(t, decode[[]recordJSON](t, res), 1)

	res = e.sendJSON(t, http.MethodPost, "/patients/"+p.ID+"/timelines", tok, map[string]string{"name": "2024"})
	require.Equal(t, http.StatusCreated, res.Status)
	tl := decode[recordJSON](t, res)

	res = e.sendForm(t, http.MethodPost, "/timelines/"+tl.ID+"/occurrences", tok,
		map[string][]string{"name": {"First session"}, "content": {"Intake"}, "kind": {"session"}},
		part{field: "files", filename: "consent.png", data: pngBytes},
		part{field: "files", filename: "notes.txt", contentType: "text/plain", data: []byte("notes")},
	)
	require.Equal(t, http.StatusCreated, res.Status, res.Message)
	occ := decode[recordJSON](t, res)
	require.Len(t, occ.Files, 2)
	require.Equal(t, "image/png", occ.Files[0].Mimetype)
	require.Equal(t, "text/plain", occ.Files[1].Mimetype)
	require.Equal(t, 3, e.uploadCount(t))

	// keep the first file, drop the second, add a third
	res = e.sendForm(t, http.MethodPatch, "/occurrences/"+occ.ID, tok,
		map[string][]string{"keep": {occ.Files[0].ID}, "content": {"Intake, revised"}},
		part{field: "files", filename: "plan.txt", contentType: "text/plain", data: []byte("plan")},
	)
	require.Equal(t, http.StatusOK, res.Status, res.Message)
	occ2 := decode[recordJSON](t, res)
	require.Len(t, occ2.Files, 2)
	require.Equal(t, occ.Files[0].ID, occ2.Files[0].ID)
	require.True(t, strings.HasSuffix(occ2.Files[1].Filename, "-plan.txt"))
	_, err := os.Stat(filepath.Join(e.uploads, occ.Files[1].Filename))
	require.True(t, os.IsNotExist(err), "dropped attachment bytes must be removed")

	// a JSON patch without files leaves attachments alone
	res = e.sendJSON(t, http.MethodPatch, "/occurrences/"+occ.ID, tok, map[string]string{"kind": "relevant-fact"})
	require.Equal(t, http.StatusOK, res.Status)
	occ3 := decode[recordJSON](t, res)
	require.Equal(t, "relevant-fact", occ3.Kind)
	require.Len(t, occ3.Files, 2)

	res = e.sendJSON(t, http.MethodGet, "/timelines/"+tl.ID+"/occurrences?page=1&limit=5", tok, nil)
	require.Equal(t, http.StatusOK, res.Status)
	require.Len(t, decode[[]recordJSON](t, res), 1)

	res = e.sendJSON(t, http.MethodDelete, "/timelines/"+tl.ID+"/occurrences/"+occ.ID, tok, nil)
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, service.MsgOccurrenceDeleted, res.Message)
	require.Equal(t, 1, e.uploadCount(t), "only the avatar is left")

	res = e.sendJSON(t, http.MethodGet, "/timelines/"+tl.ID, tok, nil)
	require.Equal(t, http.StatusOK, res.Status)
	require.Empty(t, decode[recordJSON](t, res).Occurrences)

	res = e.sendJSON(t, http.MethodDelete, "/patients/"+p.ID, tok, nil)
	require.Equal(t, http.StatusOK, res.Status)
	counts := e.store.Counts()
	require.Equal(t, 0, counts["patients"])
	require.Equal(t, 0, counts["timelines"])

	res = e.sendJSON(t, http.MethodGet, "/users/"+u.ID+"/patients", tok, nil)
	require.Equal(t, http.StatusOK, res.Status)
	require.Empty(t, decode[[]recordJSON](t, res))
}

func TestOccurrences_JSONPatchCannotClaimStoredFiles(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, Options{})
	victim, _ := e.signup(t, "victim@example.com")
	_, tok := e.signup(t, "other@example.com")

	res := e.sendJSON(t, http.MethodPost, "/patients", tok, map[string]string{
		"name": "P", "contact": "c", "birthdate": "1990-01-01",
	})
	require.Equal(t, http.StatusCreated, res.Status)
	p := decode[recordJSON](t, res)
	res = e.sendJSON(t, http.MethodPost, "/patients/"+p.ID+"/timelines", tok, map[string]string{"name": "T"})
	require.Equal(t, http.StatusCreated, res.Status)
	tl := decode[recordJSON](t, res)
	res = e.sendForm(t, http.MethodPost, "/timelines/"+tl.ID+"/occurrences", tok,
		map[string][]string{"name": {"n"}, "content": {"c"}, "kind": {"session"}},
		part{field: "files", filename: "own.txt", contentType: "text/plain", data: []byte("own")},
	)
	require.Equal(t, http.StatusCreated, res.Status, res.Message)
	occ := decode[recordJSON](t, res)

	res = e.sendJSON(t, http.MethodPatch, "/occurrences/"+occ.ID, tok, map[string]any{
		"files": []map[string]string{{"filename": victim.Image.Filename, "mimetype": "image/png"}},
	})
	require.Equal(t, http.StatusBadRequest, res.Status)

	res = e.sendJSON(t, http.MethodPatch, "/occurrences/"+occ.ID, tok, map[string]any{
		"files": []map[string]string{{"id": uuidString()}},
	})
	require.Equal(t, http.StatusOK, res.Status, res.Message)
	require.Empty(t, decode[recordJSON](t, res).Files, "unknown ids keep nothing")
	require.Equal(t, 2, e.store.Counts()["files"], "only the two avatars remain")

	res = e.sendJSON(t, http.MethodDelete, "/timelines/"+tl.ID+"/occurrences/"+occ.ID, tok, nil)
	require.Equal(t, http.StatusOK, res.Status)

	r, err := http.Get(e.srv.URL + "/uploads/" + victim.Image.Filename)
	require.NoError(t, err)
	_ = r.Body.Close()
	require.Equal(t, http.StatusOK, r.StatusCode)
	require.Equal(t, 2, e.uploadCount(t))
}

func TestPagination_Coercion(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, Options{})
	_, tok := e.signup(t, "paging@example.com")

	res := e.sendJSON(t, http.MethodPost, "/patients", tok, map[string]string{
		"name": "P", "contact": "c", "birthdate": "2000-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, res.Status)
	p := decode[recordJSON](t, res)

	for i := 0; i < 12; i++ {
		res = e.sendJSON(t, http.MethodPost, "/patients/"+p.ID+"/timelines", tok, map[string]string{"name": fmt.Sprintf("t%02d", i)})
		require.Equal(t, http.StatusCreated, res.Status)
	}

	cases := map[string]int{
		"":                   10,
		"?page=2":            2,
		"?page=abc&limit=-3": 10,
		"?limit=5&page=3":    2,
		"?page=9":            0,
	}
	for q, want := range cases {
		res = e.sendJSON(t, http.MethodGet, "/patients/"+p.ID+"/timelines"+q, tok, nil)
		require.Equal(t, http.StatusOK, res.Status, q)
		require.Len(t, decode[[]recordJSON](t, res), want, q)
	}
}

func TestValidationAndNotFound(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, Options{})
	_, tok := e.signup(t, "v@example.com")

	res := e.sendJSON(t, http.MethodPost, "/patients", tok, map[string]string{"contact": "c"})
	require.Equal(t, http.StatusBadRequest, res.Status)
	require.Contains(t, res.Errors, "name is required")
	require.Contains(t, res.Errors, "birthdate is required")

	res = e.sendJSON(t, http.MethodPost, "/patients", tok, map[string]string{"name": "n", "contact": "c", "birthdate": "yesterday"})
	require.Equal(t, http.StatusBadRequest, res.Status)
	require.Equal(t, []string{"birthdate must be a date"}, res.Errors)

	res = e.do(t, http.MethodPost, "/patients", tok, "application/json", strings.NewReader("{"))
	require.Equal(t, http.StatusBadRequest, res.Status)

	res = e.sendJSON(t, http.MethodPost, "/patients", tok, map[string]string{
		"user": uuidString(), "name": "n", "contact": "c", "birthdate": "2000-01-01",
	})
	require.Equal(t, http.StatusNotFound, res.Status)
	require.Equal(t, service.MsgUserNotFound, res.Message)

	res = e.sendJSON(t, http.MethodGet, "/patients/not-a-uuid", tok, nil)
	require.Equal(t, http.StatusNotFound, res.Status)
	require.Equal(t, service.MsgPatientNotFound, res.Message)

	res = e.sendJSON(t, http.MethodPost, "/timelines/"+uuidString()+"/occurrences", tok,
		map[string]string{"name": "n", "content": "c", "kind": "dream"})
	require.Equal(t, http.StatusBadRequest, res.Status)
	require.Equal(t, []string{"kind must be one of [session relevant-fact]"}, res.Errors)

	res = e.sendJSON(t, http.MethodPost, "/timelines/"+uuidString()+"/occurrences", tok,
		map[string]string{"name": "n", "content": "c", "kind": "session"})
	require.Equal(t, http.StatusNotFound, res.Status)
	require.Equal(t, service.MsgTimelineNotFound, res.Message)

	res = e.sendJSON(t, http.MethodDelete, "/patients/"+uuidString()+"/timelines/"+uuidString(), tok, nil)
	require.Equal(t, http.StatusNotFound, res.Status)
	require.Equal(t, service.MsgPatientNotFound, res.Message)

	resp, err := e.srv.Client().Get(e.srv.URL + "/uploads/missing.png")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpload_TooLarge(t *testing.T) {
	t.Parallel()
	e := newTestEnv(t, Options{MaxUploadBytes: 1024})

	res := e.sendForm(t, http.MethodPost, "/users", "",
		map[string][]string{"name": {"A"}, "email": {"a@example.com"}, "password": {"secret1"}},
		part{field: "image", filename: "big.png", data: bytes.Repeat([]byte{1}, 4096)},
	)
	require.Equal(t, http.StatusRequestEntityTooLarge, res.Status)
	require.Equal(t, 0, e.uploadCount(t))
}

func TestRecover_Panic(t *testing.T) {
	t.Parallel()
	h := Recover(zaptest.NewLogger(t))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("oh no")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Internal server error")
}

func TestBearerToken(t *testing.T) {
	t.Parallel()
	cases := map[string]struct {
		header string
		want   string
		ok     bool
	}{
		"ok":        {"Bearer abc.def.ghi", "abc.def.ghi", true},
		"lowercase": {"bearer abc", "abc", true},
		"basic":     {"Basic foo", "", false},
		"empty":     {"Bearer   ", "", false},
		"no header": {"", "", false},
	}
	for name, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		got, ok := bearerToken(r)
		require.Equal(t, tc.ok, ok, name)
		require.Equal(t, tc.want, got, name)
	}
}
