package memory

import (
	"context"

	"github.com/and161185/carenotes/internal/errs"
	"github.com/and161185/carenotes/internal/model"
	"github.com/gofrs/uuid/v5"
)

// TimelineRepo implements repository.TimelineRepository in memory.
type TimelineRepo struct{ s *Store }

func cloneTimeline(t model.Timeline) model.Timeline {
	t.Occurrences = cloneIDs(t.Occurrences)
	return t
}

func (r *TimelineRepo) Create(ctx context.Context, t *model.Timeline) error {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "timelines.Create"); err != nil {
		return err
	}
	id, err := newID()
	if err != nil {
		return err
	}
	now := r.s.stamp()
	t.ID, t.CreatedAt, t.UpdatedAt, t.Occurrences = id, now, now, []uuid.UUID{}
	r.s.timelines[id] = cloneTimeline(*t)
	return nil
}

func (r *TimelineRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Timeline, error) {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "timelines.GetByID"); err != nil {
		return nil, err
	}
	t, ok := r.s.timelines[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	t = cloneTimeline(t)
	return &t, nil
}

func (r *TimelineRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Timeline, error) {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "timelines.ListByIDs"); err != nil {
		return nil, err
	}
	return collect(r.s.timelines, ids, cloneTimeline), nil
}

func (r *TimelineRepo) Update(ctx context.Context, t *model.Timeline) error {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "timelines.Update"); err != nil {
		return err
	}
	cur, ok := r.s.timelines[t.ID]
	if !ok {
		return errs.ErrNotFound
	}
	cur.Name, cur.UpdatedAt = t.Name, r.s.stamp()
	r.s.timelines[t.ID] = cur
	t.UpdatedAt = cur.UpdatedAt
	return nil
}

func (r *TimelineRepo) Delete(ctx context.Context, id uuid.UUID) (*model.Timeline, error) {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "timelines.Delete"); err != nil {
		return nil, err
	}
	t, ok := r.s.timelines[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	delete(r.s.timelines, id)
	return &t, nil
}

func (r *TimelineRepo) AssociateOccurrence(ctx context.Context, timelineID, occurrenceID uuid.UUID) error {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "timelines.AssociateOccurrence"); err != nil {
		return err
	}
	t, ok := r.s.timelines[timelineID]
	if !ok {
		return errs.ErrNotFound
	}
	t.Occurrences = append(cloneIDs(t.Occurrences), occurrenceID)
	t.UpdatedAt = r.s.stamp()
	r.s.timelines[timelineID] = t
	return nil
}

func (r *TimelineRepo) DisassociateOccurrence(ctx context.Context, timelineID, occurrenceID uuid.UUID) error {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "timelines.DisassociateOccurrence"); err != nil {
		return err
	}
	t, ok := r.s.timelines[timelineID]
	if !ok {
		return nil
	}
	t.Occurrences = pull(t.Occurrences, occurrenceID)
	t.UpdatedAt = r.s.stamp()
	r.s.timelines[timelineID] = t
	return nil
}
