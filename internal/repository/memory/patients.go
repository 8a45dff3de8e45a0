package memory

import (
	"context"

	"github.com/and161185/carenotes/internal/errs"
	"github.com/and161185/carenotes/internal/model"
	"github.com/gofrs/uuid/v5"
)

// PatientRepo implements repository.PatientRepository in memory.
type PatientRepo struct{ s *Store }

func clonePatient(p model.Patient) model.Patient {
	p.Timelines = cloneIDs(p.Timelines)
	return p
}

func (r *PatientRepo) Create(ctx context.Context, p *model.Patient) error {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "patients.Create"); err != nil {
		return err
	}
	id, err := newID()
	if err != nil {
		return err
	}
	now := r.s.stamp()
	p.ID, p.CreatedAt, p.UpdatedAt, p.Timelines = id, now, now, []uuid.UUID{}
	r.s.patients[id] = clonePatient(*p)
	return nil
}

func (r *PatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "patients.GetByID"); err != nil {
		return nil, err
	}
	p, ok := r.s.patients[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	p = clonePatient(p)
	return &p, nil
}

func (r *PatientRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Patient, error) {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "patients.ListByIDs"); err != nil {
		return nil, err
	}
	return collect(r.s.patients, ids, clonePatient), nil
}

func (r *PatientRepo) Update(ctx context.Context, p *model.Patient) error {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "patients.Update"); err != nil {
		return err
	}
	cur, ok := r.s.patients[p.ID]
	if !ok {
		return errs.ErrNotFound
	}
	cur.Name, cur.Contact, cur.Birthdate = p.Name, p.Contact, p.Birthdate
	cur.Demands, cur.PersonalAnnotations = p.Demands, p.PersonalAnnotations
	cur.UpdatedAt = r.s.stamp()
	r.s.patients[p.ID] = cur
	p.UpdatedAt = cur.UpdatedAt
	return nil
}

func (r *PatientRepo) Delete(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "patients.Delete"); err != nil {
		return nil, err
	}
	p, ok := r.s.patients[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	delete(r.s.patients, id)
	return &p, nil
}

func (r *PatientRepo) AssociateTimeline(ctx context.Context, patientID, timelineID uuid.UUID) error {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "patients.AssociateTimeline"); err != nil {
		return err
	}
	p, ok := r.s.patients[patientID]
	if !ok {
		return errs.ErrNotFound
	}
	p.Timelines = append(cloneIDs(p.Timelines), timelineID)
	p.UpdatedAt = r.s.stamp()
	r.s.patients[patientID] = p
	return nil
}

func (r *PatientRepo) DisassociateTimeline(ctx context.Context, patientID, timelineID uuid.UUID) error {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "patients.DisassociateTimeline"); err != nil {
		return err
	}
	p, ok := r.s.patients[patientID]
	if !ok {
		return nil
	}
	p.Timelines = pull(p.Timelines, timelineID)
	p.UpdatedAt = r.s.stamp()
	r.s.patients[patientID] = p
	return nil
}
