// Package memory contains in-process implementations of repository interfaces.
// It backs the "memory" store driver and coordinator tests. Every call is applied
// immediately, so a failed multi-step sequence keeps its earlier writes.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/and161185/carenotes/internal/model"
	"github.com/gofrs/uuid/v5"
)

// Store holds all five collections behind one mutex.
type Store struct {
	mu          sync.Mutex
	now         func() time.Time
	failures    map[string]error
	files       map[uuid.UUID]model.File
	occurrences map[uuid.UUID]model.Occurrence
	timelines   map[uuid.UUID]model.Timeline
	patients    map[uuid.UUID]model.Patient
	users       map[uuid.UUID]model.User
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:         time.Now,
		failures:    map[string]error{},
		files:       map[uuid.UUID]model.File{},
		occurrences: map[uuid.UUID]model.Occurrence{},
		timelines:   map[uuid.UUID]model.Timeline{},
		patients:    map[uuid.UUID]model.Patient{},
		users:       map[uuid.UUID]model.User{},
	}
}

// FailOn makes every later call of op (e.g. "files.DeleteMany") return err.
// A nil err clears the injected failure.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// WithinTx runs fn directly; there is no rollback.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Counts reports the number of rows per collection.
func (s *Store) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]int{
		"users":       len(s.users),
		"patients":    len(s.patients),
		"timelines":   len(s.timelines),
		"occurrences": len(s.occurrences),
		"files":       len(s.files),
	}
}

// Files returns the FileRepository view of the store.
func (s *Store) Files() *FileRepo { return &FileRepo{s: s} }

// Occurrences returns the OccurrenceRepository view of the store.
func (s *Store) Occurrences() *OccurrenceRepo { return &OccurrenceRepo{s: s} }

// Timelines returns the TimelineRepository view of the store.
func (s *Store) Timelines() *TimelineRepo { return &TimelineRepo{s: s} }

// Patients returns the PatientRepository view of the store.
func (s *Store) Patients() *PatientRepo { return &PatientRepo{s: s} }

// Users returns the UserRepository view of the store.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// begin locks the store and reports the injected failure for op, if any.
// The caller must unlock.
func (s *Store) begin(ctx context.Context, op string) error {
	s.mu.Lock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.failures[op]
}

func (s *Store) stamp() time.Time { return s.now().UTC() }

func newID() (uuid.UUID, error) { return uuid.NewV4() }

func pull(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	return slices.DeleteFunc(slices.Clone(ids), func(x uuid.UUID) bool { return x == id })
}

func cloneIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return slices.Clone(ids)
}

// collect resolves ids against m in list order, skipping missing keys.
func collect[T any](m map[uuid.UUID]T, ids []uuid.UUID, clone func(T) T) []T {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if v, ok := m[id]; ok {
			out = append(out, clone(v))
		}
	}
	return out
}
