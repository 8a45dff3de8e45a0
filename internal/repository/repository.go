// Package repository defines storage interfaces implemented by concrete backends.
//
// Reference lists are ordered. Associate appends an ID to a parent's list;
// Disassociate removes every occurrence of an ID and is a no-op when absent.
// Lookups and deletes of missing rows return errs.ErrNotFound.
package repository

import (
	"context"

	"github.com/and161185/carenotes/internal/model"
	"github.com/gofrs/uuid/v5"
)

// FileRepository stores File metadata.
type FileRepository interface {
	Create(ctx context.Context, a model.Attachment) (*model.File, error)
	// CreateMany inserts files in input order.
	CreateMany(ctx context.Context, as []model.Attachment) ([]model.File, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.File, error)
	// ListByIDs returns files in ids order, skipping missing ones.
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.File, error)
	// Update overwrites filename and mimetype in place.
	Update(ctx context.Context, id uuid.UUID, a model.Attachment) (*model.File, error)
	Delete(ctx context.Context, id uuid.UUID) (*model.File, error)
	// DeleteMany removes all listed files in one batch and returns the removed rows.
	DeleteMany(ctx context.Context, ids []uuid.UUID) ([]model.File, error)
}

// OccurrenceRepository stores occurrences.
type OccurrenceRepository interface {
	Create(ctx context.Context, o *model.Occurrence) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Occurrence, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Occurrence, error)
	// Update writes name, content and kind.
	Update(ctx context.Context, o *model.Occurrence) error
	// SetFiles replaces the file reference list.
	SetFiles(ctx context.Context, id uuid.UUID, files []uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) (*model.Occurrence, error)
}

// TimelineRepository stores timelines.
type TimelineRepository interface {
	Create(ctx context.Context, t *model.Timeline) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Timeline, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Timeline, error)
	Update(ctx context.Context, t *model.Timeline) error
	Delete(ctx context.Context, id uuid.UUID) (*model.Timeline, error)
	AssociateOccurrence(ctx context.Context, timelineID, occurrenceID uuid.UUID) error
	DisassociateOccurrence(ctx context.Context, timelineID, occurrenceID uuid.UUID) error
}

// PatientRepository stores patients.
type PatientRepository interface {
	Create(ctx context.Context, p *model.Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Patient, error)
	Update(ctx context.Context, p *model.Patient) error
	Delete(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	AssociateTimeline(ctx context.Context, patientID, timelineID uuid.UUID) error
	DisassociateTimeline(ctx context.Context, patientID, timelineID uuid.UUID) error
}

// UserRepository stores practitioners.
type UserRepository interface {
	// Create inserts a new user; a taken email yields errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// Update writes name, email and password hash.
	Update(ctx context.Context, u *model.User) error
	SetImage(ctx context.Context, id, fileID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) (*model.User, error)
	AssociatePatient(ctx context.Context, userID, patientID uuid.UUID) error
	DisassociatePatient(ctx context.Context, userID, patientID uuid.UUID) error
}

// Transactor runs a multi-step sequence as one logical unit when the backend supports it.
// Backends without transactions run fn directly; earlier writes then survive a failure.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
