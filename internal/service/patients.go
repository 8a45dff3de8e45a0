package service

import (
	"context"
	"time"

	"github.com/and161185/carenotes/internal/errs"
	"github.com/and161185/carenotes/internal/model"
	"github.com/and161185/carenotes/internal/paginate"
	"github.com/gofrs/uuid/v5"
)

// PatientInput is the payload of patient creation.
type PatientInput struct {
	User                uuid.UUID
	Name                string
	Contact             string
	Birthdate           time.Time
	Demands             string
	PersonalAnnotations string
}

// PatientService coordinates patients and their timelines.
type PatientService interface {
	Create(ctx context.Context, in PatientInput) (*model.Patient, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	Update(ctx context.Context, id uuid.UUID, patch model.PatientPatch) (*model.Patient, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListTimelines(ctx context.Context, id uuid.UUID, page, limit int) ([]model.Timeline, error)
}

type PatientServiceImpl struct {
	r Repos
	c *Cascader
}

// NewPatientService constructs PatientService.
func NewPatientService(r Repos, c *Cascader) *PatientServiceImpl {
	return &PatientServiceImpl{r: r, c: c}
}

// Create checks the owning user exists, inserts the patient and appends it to the user's list.
func (s *PatientServiceImpl) Create(ctx context.Context, in PatientInput) (*model.Patient, error) {
	if in.User == uuid.Nil || in.Name == "" || in.Contact == "" || in.Birthdate.IsZero() {
		return nil, errs.Validation("validation: user/name/contact/birthdate required")
	}
	p := &model.Patient{
		User:                in.User,
		Name:                in.Name,
		Contact:             in.Contact,
		Birthdate:           in.Birthdate,
		Demands:             in.Demands,
		PersonalAnnotations: in.PersonalAnnotations,
	}
	err := s.r.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.r.Users.GetByID(ctx, in.User); err != nil {
			return lookup(err, MsgUserNotFound)
		}
		if err := s.r.Patients.Create(ctx, p); err != nil {
			return errs.Internal(err)
		}
		return s.r.Users.AssociatePatient(ctx, in.User, p.ID)
	})
	if err != nil {
		return nil, errs.Internal(err)
	}
	s.c.rec.Created(KindPatient, 1)
	return p, nil
}

// Get loads a patient.
func (s *PatientServiceImpl) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	p, err := s.r.Patients.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, MsgPatientNotFound)
	}
	return p, nil
}

// Update applies a partial update to the patient's own fields.
func (s *PatientServiceImpl) Update(ctx context.Context, id uuid.UUID, patch model.PatientPatch) (*model.Patient, error) {
	p, err := s.r.Patients.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, MsgPatientNotFound)
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Contact != nil {
		p.Contact = *patch.Contact
	}
	if patch.Birthdate != nil {
		p.Birthdate = *patch.Birthdate
	}
	if patch.Demands != nil {
		p.Demands = *patch.Demands
	}
	if patch.PersonalAnnotations != nil {
		p.PersonalAnnotations = *patch.PersonalAnnotations
	}
	if err := s.r.Patients.Update(ctx, p); err != nil {
		return nil, lookup(err, MsgPatientNotFound)
	}
	return p, nil
}

// Delete removes the patient subtree and pulls the patient from its user's list.
func (s *PatientServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	var rm Removal
	err := s.r.Tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.c.Patient(ctx, id, &rm)
		if err != nil {
			return err
		}
		return s.r.Users.DisassociatePatient(ctx, p.User, p.ID)
	})
	if err != nil {
		return s.c.Failed(KindPatient, err, MsgPatientNotFound)
	}
	s.c.Finish(ctx, &rm)
	return nil
}

// ListTimelines returns one page of the patient's timelines.
func (s *PatientServiceImpl) ListTimelines(ctx context.Context, id uuid.UUID, page, limit int) ([]model.Timeline, error) {
	p, err := s.r.Patients.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, MsgPatientNotFound)
	}
	timelines, err := s.r.Timelines.ListByIDs(ctx, p.Timelines)
	if err != nil {
		return nil, errs.Internal(err)
	}
	return paginate.Paginate(timelines, page, limit), nil
}
