package postgres

import (
	"context"

	"github.com/and161185/carenotes/internal/model"
	"github.com/gofrs/uuid/v5"
)

// PatientRepo implements PatientRepository using PostgreSQL.
type PatientRepo struct{ db *DB }

// NewPatientRepo constructs a patient repository.
func NewPatientRepo(db *DB) *PatientRepo { return &PatientRepo{db: db} }

const patientCols = `id, user_id, name, contact, birthdate, demands, personal_annotations, timelines, created_at, updated_at`

func scanPatient(s scanner) (model.Patient, error) {
	var p model.Patient
	err := s.Scan(&p.ID, &p.User, &p.Name, &p.Contact, &p.Birthdate, &p.Demands,
		&p.PersonalAnnotations, &p.Timelines, &p.CreatedAt, &p.UpdatedAt)
	if p.Timelines == nil {
		p.Timelines = []uuid.UUID{}
	}
	return p, err
}

// Create inserts a patient with an empty timeline list.
func (r *PatientRepo) Create(ctx context.Context, p *model.Patient) error {
	const q = `
INSERT INTO patients (id, user_id, name, contact, birthdate, demands, personal_annotations)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at, updated_at`
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	if err := r.db.q(ctx).QueryRow(ctx, q, id, p.User, p.Name, p.Contact, p.Birthdate,
		p.Demands, p.PersonalAnnotations).Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return err
	}
	p.ID = id
	p.Timelines = []uuid.UUID{}
	return nil
}

// GetByID selects a patient by ID.
func (r *PatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	const q = `SELECT ` + patientCols + ` FROM patients WHERE id=$1`
	p, err := scanPatient(r.db.q(ctx).QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// ListByIDs selects patients in reference-list order.
func (r *PatientRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Patient, error) {
	if len(ids) == 0 {
		return []model.Patient{}, nil
	}
	const q = `
SELECT ` + patientCols + `
FROM patients WHERE id = ANY($1)
ORDER BY array_position($1::uuid[], id)`
	rows, err := r.db.q(ctx).Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Patient, 0, len(ids))
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update writes the patient's own fields. Ownership (user_id) is never changed.
func (r *PatientRepo) Update(ctx context.Context, p *model.Patient) error {
	const q = `
UPDATE patients
SET name=$2, contact=$3, birthdate=$4, demands=$5, personal_annotations=$6, updated_at=now()
WHERE id=$1
RETURNING updated_at`
	return notFound(r.db.q(ctx).QueryRow(ctx, q, p.ID, p.Name, p.Contact, p.Birthdate,
		p.Demands, p.PersonalAnnotations).Scan(&p.UpdatedAt))
}

// Delete removes a patient row and returns it.
func (r *PatientRepo) Delete(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	const q = `DELETE FROM patients WHERE id=$1 RETURNING ` + patientCols
	p, err := scanPatient(r.db.q(ctx).QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// AssociateTimeline appends timelineID to the patient's list.
func (r *PatientRepo) AssociateTimeline(ctx context.Context, patientID, timelineID uuid.UUID) error {
	const q = `
UPDATE patients SET timelines = array_append(timelines, $2), updated_at=now()
WHERE id=$1`
	return mustAffect(r.db.q(ctx).Exec(ctx, q, patientID, timelineID))
}

// DisassociateTimeline removes timelineID from the patient's list.
func (r *PatientRepo) DisassociateTimeline(ctx context.Context, patientID, timelineID uuid.UUID) error {
	const q = `
UPDATE patients SET timelines = array_remove(timelines, $2), updated_at=now()
WHERE id=$1`
	_, err := r.db.q(ctx).Exec(ctx, q, patientID, timelineID)
	return err
}
