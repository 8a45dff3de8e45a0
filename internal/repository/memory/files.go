package memory

import (
	"context"

	"github.com/and161185/carenotes/internal/errs"
	"github.com/and161185/carenotes/internal/model"
	"github.com/gofrs/uuid/v5"
)

// FileRepo implements repository.FileRepository in memory.
type FileRepo struct{ s *Store }

func (r *FileRepo) insert(a model.Attachment) (model.File, error) {
	id, err := newID()
	if err != nil {
		return model.File{}, err
	}
	now := r.s.stamp()
	f := model.File{ID: id, Filename: a.Filename, Mimetype: a.Mimetype, CreatedAt: now, UpdatedAt: now}
	r.s.files[id] = f
	return f, nil
}

func (r *FileRepo) Create(ctx context.Context, a model.Attachment) (*model.File, error) {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "files.Create"); err != nil {
		return nil, err
	}
	f, err := r.insert(a)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FileRepo) CreateMany(ctx context.Context, as []model.Attachment) ([]model.File, error) {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "files.CreateMany"); err != nil {
		return nil, err
	}
	out := make([]model.File, 0, len(as))
	for _, a := range as {
		f, err := r.insert(a)
		if err != nil {
			return out, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *FileRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.File, error) {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "files.GetByID"); err != nil {
		return nil, err
	}
	f, ok := r.s.files[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &f, nil
}

func (r *FileRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.File, error) {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "files.ListByIDs"); err != nil {
		return nil, err
	}
	return collect(r.s.files, ids, func(f model.File) model.File { return f }), nil
}

func (r *FileRepo) Update(ctx context.Context, id uuid.UUID, a model.Attachment) (*model.File, error) {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "files.Update"); err != nil {
		return nil, err
	}
	f, ok := r.s.files[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	f.Filename, f.Mimetype, f.UpdatedAt = a.Filename, a.Mimetype, r.s.stamp()
	r.s.files[id] = f
	return &f, nil
}

func (r *FileRepo) Delete(ctx context.Context, id uuid.UUID) (*model.File, error) {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "files.Delete"); err != nil {
		return nil, err
	}
	f, ok := r.s.files[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	delete(r.s.files, id)
	return &f, nil
}

func (r *FileRepo) DeleteMany(ctx context.Context, ids []uuid.UUID) ([]model.File, error) {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "files.DeleteMany"); err != nil {
		return nil, err
	}
	out := collect(r.s.files, ids, func(f model.File) model.File { return f })
	for _, f := range out {
		delete(r.s.files, f.ID)
	}
	return out, nil
}
