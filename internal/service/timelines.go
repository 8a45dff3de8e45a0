package service

import (
	"context"
	"slices"

	"github.com/and161185/carenotes/internal/errs"
	"github.com/and161185/carenotes/internal/model"
	"github.com/and161185/carenotes/internal/paginate"
	"github.com/gofrs/uuid/v5"
)

// TimelineService coordinates timelines and their occurrences.
type TimelineService interface {
	Create(ctx context.Context, patientID uuid.UUID, name string) (*model.Timeline, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Timeline, error)
	Update(ctx context.Context, id uuid.UUID, name string) (*model.Timeline, error)
	Delete(ctx context.Context, patientID, id uuid.UUID) error
	ListOccurrences(ctx context.Context, id uuid.UUID, page, limit int) ([]model.Occurrence, error)
}

type TimelineServiceImpl struct {
	r Repos
	c *Cascader
}

// NewTimelineService constructs TimelineService.
func NewTimelineService(r Repos, c *Cascader) *TimelineServiceImpl {
	return &TimelineServiceImpl{r: r, c: c}
}

// Create inserts a timeline under an existing patient.
func (s *TimelineServiceImpl) Create(ctx context.Context, patientID uuid.UUID, name string) (*model.Timeline, error) {
	if name == "" {
		return nil, errs.Validation("validation: name required", "name is required")
	}
	t := &model.Timeline{Name: name}
	err := s.r.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.r.Patients.GetByID(ctx, patientID); err != nil {
			return lookup(err, MsgPatientNotFound)
		}
		if err := s.r.Timelines.Create(ctx, t); err != nil {
			return errs.Internal(err)
		}
		return s.r.Patients.AssociateTimeline(ctx, patientID, t.ID)
	})
	if err != nil {
		return nil, errs.Internal(err)
	}
	s.c.rec.Created(KindTimeline, 1)
	return t, nil
}

// Get loads a timeline.
func (s *TimelineServiceImpl) Get(ctx context.Context, id uuid.UUID) (*model.Timeline, error) {
	t, err := s.r.Timelines.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, MsgTimelineNotFound)
	}
	return t, nil
}

// Update renames a timeline.
func (s *TimelineServiceImpl) Update(ctx context.Context, id uuid.UUID, name string) (*model.Timeline, error) {
	if name == "" {
		return nil, errs.Validation("validation: name required", "name is required")
	}
	t, err := s.r.Timelines.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, MsgTimelineNotFound)
	}
	t.Name = name
	if err := s.r.Timelines.Update(ctx, t); err != nil {
		return nil, lookup(err, MsgTimelineNotFound)
	}
	return t, nil
}

// Delete checks the patient exists and lists the timeline, removes the timeline
// subtree and pulls the timeline from the patient's list.
func (s *TimelineServiceImpl) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	var rm Removal
	err := s.r.Tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.r.Patients.GetByID(ctx, patientID)
		if err != nil {
			return lookup(err, MsgPatientNotFound)
		}
		if !slices.Contains(p.Timelines, id) {
			return errs.NotFound(MsgTimelineNotFound)
		}
		if _, err := s.c.Timeline(ctx, id, &rm); err != nil {
			return err
		}
		return s.r.Patients.DisassociateTimeline(ctx, patientID, id)
	})
	if err != nil {
		return s.c.Failed(KindTimeline, err, MsgTimelineNotFound)
	}
	s.c.Finish(ctx, &rm)
	return nil
}

// ListOccurrences returns one page of the timeline's occurrences.
func (s *TimelineServiceImpl) ListOccurrences(ctx context.Context, id uuid.UUID, page, limit int) ([]model.Occurrence, error) {
	t, err := s.r.Timelines.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, MsgTimelineNotFound)
	}
	occurrences, err := s.r.Occurrences.ListByIDs(ctx, t.Occurrences)
	if err != nil {
		return nil, errs.Internal(err)
	}
	return paginate.Paginate(occurrences, page, limit), nil
}
