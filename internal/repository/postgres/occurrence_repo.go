package postgres

import (
	"context"

	"github.com/and161185/carenotes/internal/model"
	"github.com/gofrs/uuid/v5"
)

// OccurrenceRepo implements OccurrenceRepository using PostgreSQL.
type OccurrenceRepo struct{ db *DB }

// NewOccurrenceRepo constructs an occurrence repository.
func NewOccurrenceRepo(db *DB) *OccurrenceRepo { return &OccurrenceRepo{db: db} }

const occurrenceCols = `id, name, content, kind, files, created_at, updated_at`

func scanOccurrence(s scanner) (model.Occurrence, error) {
	var o model.Occurrence
	var kind string
	err := s.Scan(&o.ID, &o.Name, &o.Content, &kind, &o.Files, &o.CreatedAt, &o.UpdatedAt)
	o.Kind = model.OccurrenceKind(kind)
	if o.Files == nil {
		o.Files = []uuid.UUID{}
	}
	return o, err
}

// Create inserts an occurrence and fills in ID and timestamps.
func (r *OccurrenceRepo) Create(ctx context.Context, o *model.Occurrence) error {
	const q = `
INSERT INTO occurrences (id, name, content, kind, files)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at`
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	if o.Files == nil {
		o.Files = []uuid.UUID{}
	}
	if err := r.db.q(ctx).QueryRow(ctx, q, id, o.Name, o.Content, string(o.Kind), o.Files).
		Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		return err
	}
	o.ID = id
	return nil
}

// GetByID selects an occurrence by ID.
func (r *OccurrenceRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Occurrence, error) {
	const q = `SELECT ` + occurrenceCols + ` FROM occurrences WHERE id=$1`
	o, err := scanOccurrence(r.db.q(ctx).QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

// ListByIDs selects occurrences in reference-list order.
func (r *OccurrenceRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Occurrence, error) {
	if len(ids) == 0 {
		return []model.Occurrence{}, nil
	}
	const q = `
SELECT ` + occurrenceCols + `
FROM occurrences WHERE id = ANY($1)
ORDER BY array_position($1::uuid[], id)`
	rows, err := r.db.q(ctx).Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Occurrence, 0, len(ids))
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Update writes name, content and kind.
func (r *OccurrenceRepo) Update(ctx context.Context, o *model.Occurrence) error {
	const q = `
UPDATE occurrences SET name=$2, content=$3, kind=$4, updated_at=now()
WHERE id=$1
RETURNING updated_at`
	err := r.db.q(ctx).QueryRow(ctx, q, o.ID, o.Name, o.Content, string(o.Kind)).Scan(&o.UpdatedAt)
	return notFound(err)
}

// SetFiles replaces the file reference list.
func (r *OccurrenceRepo) SetFiles(ctx context.Context, id uuid.UUID, files []uuid.UUID) error {
	const q = `UPDATE occurrences SET files=$2, updated_at=now() WHERE id=$1`
	if files == nil {
		files = []uuid.UUID{}
	}
	return mustAffect(r.db.q(ctx).Exec(ctx, q, id, files))
}

// Delete removes an occurrence row and returns it.
func (r *OccurrenceRepo) Delete(ctx context.Context, id uuid.UUID) (*model.Occurrence, error) {
	const q = `DELETE FROM occurrences WHERE id=$1 RETURNING ` + occurrenceCols
	o, err := scanOccurrence(r.db.q(ctx).QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}
