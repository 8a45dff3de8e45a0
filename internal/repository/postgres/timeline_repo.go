package postgres

import (
	"context"

	"github.com/and161185/carenotes/internal/model"
	"github.com/gofrs/uuid/v5"
)

// TimelineRepo implements TimelineRepository using PostgreSQL.
type TimelineRepo struct{ db *DB }

// NewTimelineRepo constructs a timeline repository.
func NewTimelineRepo(db *DB) *TimelineRepo { return &TimelineRepo{db: db} }

const timelineCols = `id, name, occurrences, created_at, updated_at`

func scanTimeline(s scanner) (model.Timeline, error) {
	var t model.Timeline
	err := s.Scan(&t.ID, &t.Name, &t.Occurrences, &t.CreatedAt, &t.UpdatedAt)
	if t.Occurrences == nil {
		t.Occurrences = []uuid.UUID{}
	}
	return t, err
}

// Create inserts a timeline with an empty occurrence list.
func (r *TimelineRepo) Create(ctx context.Context, t *model.Timeline) error {
	const q = `
INSERT INTO timelines (id, name)
VALUES ($1, $2)
RETURNING created_at, updated_at`
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	if err := r.db.q(ctx).QueryRow(ctx, q, id, t.Name).Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return err
	}
	t.ID = id
	t.Occurrences = []uuid.UUID{}
	return nil
}

// GetByID selects a timeline by ID.
func (r *TimelineRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Timeline, error) {
	const q = `SELECT ` + timelineCols + ` FROM timelines WHERE id=$1`
	t, err := scanTimeline(r.db.q(ctx).QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// ListByIDs selects timelines in reference-list order.
func (r *TimelineRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Timeline, error) {
	if len(ids) == 0 {
		return []model.Timeline{}, nil
	}
	const q = `
SELECT ` + timelineCols + `
FROM timelines WHERE id = ANY($1)
ORDER BY array_position($1::uuid[], id)`
	rows, err := r.db.q(ctx).Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Timeline, 0, len(ids))
	for rows.Next() {
		t, err := scanTimeline(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Update writes the timeline name.
func (r *TimelineRepo) Update(ctx context.Context, t *model.Timeline) error {
	const q = `UPDATE timelines SET name=$2, updated_at=now() WHERE id=$1 RETURNING updated_at`
	return notFound(r.db.q(ctx).QueryRow(ctx, q, t.ID, t.Name).Scan(&t.UpdatedAt))
}

// Delete removes a timeline row and returns it.
func (r *TimelineRepo) Delete(ctx context.Context, id uuid.UUID) (*model.Timeline, error) {
	const q = `DELETE FROM timelines WHERE id=$1 RETURNING ` + timelineCols
	t, err := scanTimeline(r.db.q(ctx).QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// AssociateOccurrence appends occurrenceID to the timeline's list.
func (r *TimelineRepo) AssociateOccurrence(ctx context.Context, timelineID, occurrenceID uuid.UUID) error {
	const q = `
UPDATE timelines SET occurrences = array_append(occurrences, $2), updated_at=now()
WHERE id=$1`
	return mustAffect(r.db.q(ctx).Exec(ctx, q, timelineID, occurrenceID))
}

// DisassociateOccurrence removes occurrenceID from the timeline's list.
// Missing timelines and absent IDs are no-ops.
func (r *TimelineRepo) DisassociateOccurrence(ctx context.Context, timelineID, occurrenceID uuid.UUID) error {
	const q = `
UPDATE timelines SET occurrences = array_remove(occurrences, $2), updated_at=now()
WHERE id=$1`
	_, err := r.db.q(ctx).Exec(ctx, q, timelineID, occurrenceID)
	return err
}
