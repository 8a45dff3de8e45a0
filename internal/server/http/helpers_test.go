package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/carenotes/internal/blob"
	"github.com/and161185/carenotes/internal/limiter"
	"github.com/and161185/carenotes/internal/metrics"
	"github.com/and161185/carenotes/internal/repository/memory"
	"github.com/and161185/carenotes/internal/service"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

type testEnv struct {
	srv     *httptest.Server
	store   *memory.Store
	uploads string
	metrics *metrics.Collector
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	log := zaptest.NewLogger(t)

	st := memory.New()
	repos := service.Repos{
		Files:       st.Files(),
		Occurrences: st.Occurrences(),
		Timelines:   st.Timelines(),
		Patients:    st.Patients(),
		Users:       st.Users(),
		Tx:          st,
	}
	dir := t.TempDir()
	blobs, err := blob.NewFS(dir)
	require.NoError(t, err)

	m := metrics.New("carenotes")
	cascader := service.NewCascader(repos, blobs, m, log)
	svc := Services{
		Auth:        service.NewAuthService(repos.Users, []byte("test-key"), 15*time.Minute, limiter.NewMemory(limiter.Policy{Window: time.Minute, MaxFails: 3, BlockFor: time.Minute})),
		Users:       service.NewUserService(repos, cascader),
		Patients:    service.NewPatientService(repos, cascader),
		Timelines:   service.NewTimelineService(repos, cascader),
		Occurrences: service.NewOccurrenceService(repos, cascader),
	}
	opts.Metrics = m

	srv := httptest.NewServer(New(svc, blobs, log, opts).Routes())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: st, uploads: dir, metrics: m}
}

type response struct {
	Status  int
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

func (e *testEnv) do(t *testing.T, method, path, token, contentType string, body io.Reader) response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := response{Status: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return out
}

func (e *testEnv) sendJSON(t *testing.T, method, path, token string, v any) response {
	t.Helper()
	var body io.Reader
	if v != nil {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	return e.do(t, method, path, token, "application/json", body)
}

type part struct {
	field, filename, contentType string
	data                         []byte
}

func multipartBody(t *testing.T, fields map[string][]string, parts ...part) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) sendForm(t *testing.T, method, path, token string, fields map[string][]string, parts ...part) response {
	t.Helper()
	body, ct := multipartBody(t, fields, parts...)
	return e.do(t, method, path, token, ct, body)
}

func (e *testEnv) uploadCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(e.uploads)
	require.NoError(t, err)
	return len(entries)
}

func decode[T any](t *testing.T, r response) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(r.Data, &v), string(r.Data))
	return v
}

type userJSON struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Patients []string `json:"patients"`
	Image    struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
		Mimetype string `json:"mimetype"`
	} `json:"image"`
}

type fileJSON struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Mimetype string `json:"mimetype"`
}

type recordJSON struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	User        string     `json:"user"`
	Timelines   []string   `json:"timelines"`
	Occurrences []string   `json:"occurrences"`
	Kind        string     `json:"kind"`
	Files       []fileJSON `json:"files"`
}

// signup creates a user and logs in, returning the user and an access token.
func (e *testEnv) signup(t *testing.T, email string) (userJSON, string) {
	t.Helper()
	res := e.sendForm(t, http.MethodPost, "/users", "",
		map[string][]string{"name": {"Dr. Reis"}, "email": {email}, "password": {"secret1"}},
		part{field: "image", filename: "avatar.png", contentType: "image/png", data: pngBytes},
	)
	require.Equal(t, http.StatusCreated, res.Status, res.Message)
	u := decode[userJSON](t, res)

	res = e.sendJSON(t, http.MethodPost, "/auth", "", map[string]string{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusOK, res.Status, res.Message)
	login := decode[struct {
		Token string `json:"token"`
	}](t, res)
	require.NotEmpty(t, login.Token)
	return u, login.Token
}

func uuidString() string { return uuid.Must(uuid.NewV4()).String() }
