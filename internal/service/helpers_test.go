package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/and161185/carenotes/internal/model"
	"github.com/and161185/carenotes/internal/repository/memory"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeBlobs struct {
	mu      sync.Mutex
	removed []string
	err     error
}

var _ BlobRemover = (*fakeBlobs)(nil)

func (b *fakeBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removed = append(b.removed, key)
	return b.err
}

type countingRecorder struct {
	mu       sync.Mutex
	created  map[string]int
	deleted  map[string]int
	failures map[string]int
}

var _ Recorder = (*countingRecorder)(nil)

func newRecorder() *countingRecorder {
	return &countingRecorder{created: map[string]int{}, deleted: map[string]int{}, failures: map[string]int{}}
}

func (r *countingRecorder) Created(kind string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created[kind] += n
}
func (r *countingRecorder) Deleted(kind string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted[kind] += n
}
func (r *countingRecorder) CascadeFailed(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[kind]++
}

type env struct {
	store       *memory.Store
	blobs       *fakeBlobs
	rec         *countingRecorder
	users       *UserServiceImpl
	patients    *PatientServiceImpl
	timelines   *TimelineServiceImpl
	occurrences *OccurrenceServiceImpl
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memory.New()
	r := Repos{
		Files:       st.Files(),
		Occurrences: st.Occurrences(),
		Timelines:   st.Timelines(),
		Patients:    st.Patients(),
		Users:       st.Users(),
		Tx:          st,
	}
	blobs := &fakeBlobs{}
	rec := newRecorder()
	c := NewCascader(r, blobs, rec, zaptest.NewLogger(t))
	return &env{
		store:       st,
		blobs:       blobs,
		rec:         rec,
		users:       NewUserService(r, c),
		patients:    NewPatientService(r, c),
		timelines:   NewTimelineService(r, c),
		occurrences: NewOccurrenceService(r, c),
	}
}

func (e *env) user(t *testing.T, email string) *model.UserView {
	t.Helper()
	u, err := e.users.Create(context.Background(), UserInput{
		Name:     "Dr. " + email,
		Email:    email,
		Password: "secret",
		Image:    model.Attachment{Filename: "1700000000000-" + email + ".png", Mimetype: "image/png"},
	})
	require.NoError(t, err)
	return u
}

func (e *env) patient(t *testing.T, userID uuid.UUID, name string) *model.Patient {
	t.Helper()
	p, err := e.patients.Create(context.Background(), PatientInput{
		User:      userID,
		Name:      name,
		Contact:   "555-0100",
		Birthdate: time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return p
}

func (e *env) timeline(t *testing.T, patientID uuid.UUID, name string) *model.Timeline {
	t.Helper()
	tl, err := e.timelines.Create(context.Background(), patientID, name)
	require.NoError(t, err)
	return tl
}

func (e *env) occurrence(t *testing.T, timelineID uuid.UUID, files ...string) *model.OccurrenceView {
	t.Helper()
	in := OccurrenceInput{Name: "Session", Content: "notes", Kind: model.KindSession}
	for _, f := range files {
		in.Files = append(in.Files, model.Attachment{Filename: f, Mimetype: "image/jpeg"})
	}
	o, err := e.occurrences.Create(context.Background(), timelineID, in)
	require.NoError(t, err)
	return o
}
