package postgres

import (
	"context"

	"github.com/and161185/carenotes/internal/model"
	"github.com/gofrs/uuid/v5"
)

// FileRepo implements FileRepository using PostgreSQL.
type FileRepo struct{ db *DB }

// NewFileRepo constructs a file repository.
func NewFileRepo(db *DB) *FileRepo { return &FileRepo{db: db} }

const fileCols = `id, filename, mimetype, created_at, updated_at`

func scanFile(s scanner) (model.File, error) {
	var f model.File
	err := s.Scan(&f.ID, &f.Filename, &f.Mimetype, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

// Create inserts one file row.
func (r *FileRepo) Create(ctx context.Context, a model.Attachment) (*model.File, error) {
	const q = `
INSERT INTO files (id, filename, mimetype)
VALUES ($1, $2, $3)
RETURNING ` + fileCols
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	f, err := scanFile(r.db.q(ctx).QueryRow(ctx, q, id, a.Filename, a.Mimetype))
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateMany inserts files one by one, preserving input order.
func (r *FileRepo) CreateMany(ctx context.Context, as []model.Attachment) ([]model.File, error) {
	out := make([]model.File, 0, len(as))
	for _, a := range as {
		f, err := r.Create(ctx, a)
		if err != nil {
			return out, err
		}
		out = append(out, *f)
	}
	return out, nil
}

// GetByID selects a file by ID.
func (r *FileRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.File, error) {
	const q = `SELECT ` + fileCols + ` FROM files WHERE id=$1`
	f, err := scanFile(r.db.q(ctx).QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// ListByIDs selects files in reference-list order.
func (r *FileRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.File, error) {
	if len(ids) == 0 {
		return []model.File{}, nil
	}
	const q = `
SELECT ` + fileCols + `
FROM files WHERE id = ANY($1)
ORDER BY array_position($1::uuid[], id)`
	rows, err := r.db.q(ctx).Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.File, 0, len(ids))
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Update overwrites filename and mimetype of an existing file.
func (r *FileRepo) Update(ctx context.Context, id uuid.UUID, a model.Attachment) (*model.File, error) {
	const q = `
UPDATE files SET filename=$2, mimetype=$3, updated_at=now()
WHERE id=$1
RETURNING ` + fileCols
	f, err := scanFile(r.db.q(ctx).QueryRow(ctx, q, id, a.Filename, a.Mimetype))
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// Delete removes a file row and returns it.
func (r *FileRepo) Delete(ctx context.Context, id uuid.UUID) (*model.File, error) {
	const q = `DELETE FROM files WHERE id=$1 RETURNING ` + fileCols
	f, err := scanFile(r.db.q(ctx).QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// DeleteMany removes all listed files in one statement.
func (r *FileRepo) DeleteMany(ctx context.Context, ids []uuid.UUID) ([]model.File, error) {
	if len(ids) == 0 {
		return []model.File{}, nil
	}
	const q = `DELETE FROM files WHERE id = ANY($1) RETURNING ` + fileCols
	rows, err := r.db.q(ctx).Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
