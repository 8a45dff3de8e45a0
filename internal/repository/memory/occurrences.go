package memory

import (
	"context"

	"github.com/and161185/carenotes/internal/errs"
	"github.com/and161185/carenotes/internal/model"
	"github.com/gofrs/uuid/v5"
)

// OccurrenceRepo implements repository.OccurrenceRepository in memory.
type OccurrenceRepo struct{ s *Store }

func cloneOccurrence(o model.Occurrence) model.Occurrence {
	o.Files = cloneIDs(o.Files)
	return o
}

func (r *OccurrenceRepo) Create(ctx context.Context, o *model.Occurrence) error {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "occurrences.Create"); err != nil {
		return err
	}
	id, err := newID()
	if err != nil {
		return err
	}
	now := r.s.stamp()
	o.ID, o.CreatedAt, o.UpdatedAt = id, now, now
	o.Files = cloneIDs(o.Files)
	r.s.occurrences[id] = cloneOccurrence(*o)
	return nil
}

func (r *OccurrenceRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Occurrence, error) {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "occurrences.GetByID"); err != nil {
		return nil, err
	}
	o, ok := r.s.occurrences[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	o = cloneOccurrence(o)
	return &o, nil
}

func (r *OccurrenceRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Occurrence, error) {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "occurrences.ListByIDs"); err != nil {
		return nil, err
	}
	return collect(r.s.occurrences, ids, cloneOccurrence), nil
}

func (r *OccurrenceRepo) Update(ctx context.Context, o *model.Occurrence) error {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "occurrences.Update"); err != nil {
		return err
	}
	cur, ok := r.s.occurrences[o.ID]
	if !ok {
		return errs.ErrNotFound
	}
	cur.Name, cur.Content, cur.Kind, cur.UpdatedAt = o.Name, o.Content, o.Kind, r.s.stamp()
	r.s.occurrences[o.ID] = cur
	o.UpdatedAt = cur.UpdatedAt
	return nil
}

func (r *OccurrenceRepo) SetFiles(ctx context.Context, id uuid.UUID, files []uuid.UUID) error {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "occurrences.SetFiles"); err != nil {
		return err
	}
	cur, ok := r.s.occurrences[id]
	if !ok {
		return errs.ErrNotFound
	}
	cur.Files, cur.UpdatedAt = cloneIDs(files), r.s.stamp()
	r.s.occurrences[id] = cur
	return nil
}

func (r *OccurrenceRepo) Delete(ctx context.Context, id uuid.UUID) (*model.Occurrence, error) {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "occurrences.Delete"); err != nil {
		return nil, err
	}
	o, ok := r.s.occurrences[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	delete(r.s.occurrences, id)
	return &o, nil
}
