package service

import (
	"context"
	"errors"

	"github.com/and161185/carenotes/internal/errs"
	"github.com/and161185/carenotes/internal/repository"
)

// Repos bundles the collection repositories and the transaction runner of one backend.
type Repos struct {
	Files       repository.FileRepository
	Occurrences repository.OccurrenceRepository
	Timelines   repository.TimelineRepository
	Patients    repository.PatientRepository
	Users       repository.UserRepository
	Tx          repository.Transactor
}

// BlobRemover deletes stored upload bytes by filename.
type BlobRemover interface {
	Delete(ctx context.Context, key string) error
}

// Recorder receives domain counters.
type Recorder interface {
	Created(kind string, n int)
	Deleted(kind string, n int)
	CascadeFailed(kind string)
}

// NopRecorder discards all counters.
type NopRecorder struct{}

func (NopRecorder) Created(string, int)  {}
func (NopRecorder) Deleted(string, int)  {}
func (NopRecorder) CascadeFailed(string) {}

// lookup classifies the error of a by-ID read: missing rows become NotFound(msg),
// anything else is internal.
func lookup(err error, msg string) error {
	if errors.Is(err, errs.ErrNotFound) {
		return errs.NotFound(msg)
	}
	return errs.Internal(err)
}
