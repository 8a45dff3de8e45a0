package service

import (
	"context"
	"errors"
	"slices"

	"github.com/and161185/carenotes/internal/errs"
	"github.com/and161185/carenotes/internal/model"
	"github.com/gofrs/uuid/v5"
)

// OccurrenceInput is the payload of occurrence creation.
type OccurrenceInput struct {
	Name    string
	Content string
	Kind    model.OccurrenceKind
	Files   []model.Attachment
}

// OccurrenceService coordinates occurrences and their attached files.
type OccurrenceService interface {
	Create(ctx context.Context, timelineID uuid.UUID, in OccurrenceInput) (*model.OccurrenceView, error)
	Get(ctx context.Context, id uuid.UUID) (*model.OccurrenceView, error)
	Update(ctx context.Context, id uuid.UUID, patch model.OccurrencePatch) (*model.OccurrenceView, error)
	Delete(ctx context.Context, timelineID, id uuid.UUID) error
}

type OccurrenceServiceImpl struct {
	r Repos
	c *Cascader
}

// NewOccurrenceService constructs OccurrenceService.
func NewOccurrenceService(r Repos, c *Cascader) *OccurrenceServiceImpl {
	return &OccurrenceServiceImpl{r: r, c: c}
}

// Create checks the timeline exists, stores the attachments as Files, inserts the
// occurrence referencing them and appends it to the timeline's list.
func (s *OccurrenceServiceImpl) Create(ctx context.Context, timelineID uuid.UUID, in OccurrenceInput) (*model.OccurrenceView, error) {
	if in.Name == "" || in.Content == "" {
		return nil, errs.Validation("validation: name/content required")
	}
	if !in.Kind.Valid() {
		return nil, errs.Validation("validation: kind", "kind must be one of [session relevant-fact]")
	}
	o := &model.Occurrence{Name: in.Name, Content: in.Content, Kind: in.Kind}
	var files []model.File
	err := s.r.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.r.Timelines.GetByID(ctx, timelineID); err != nil {
			return lookup(err, MsgTimelineNotFound)
		}
		var err error
		if len(in.Files) > 0 {
			if files, err = s.r.Files.CreateMany(ctx, in.Files); err != nil {
				return err
			}
		}
		o.Files = fileIDs(files)
		if err = s.r.Occurrences.Create(ctx, o); err != nil {
			return err
		}
		return s.r.Timelines.AssociateOccurrence(ctx, timelineID, o.ID)
	})
	if err != nil {
		return nil, errs.Internal(err)
	}
	s.c.rec.Created(KindFile, len(files))
	s.c.rec.Created(KindOccurrence, 1)
	if files == nil {
		files = []model.File{}
	}
	return &model.OccurrenceView{Occurrence: *o, Files: files}, nil
}

// Get loads an occurrence with its files resolved.
func (s *OccurrenceServiceImpl) Get(ctx context.Context, id uuid.UUID) (*model.OccurrenceView, error) {
	o, err := s.r.Occurrences.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, MsgOccurrenceNotFound)
	}
	return s.view(ctx, o)
}

func (s *OccurrenceServiceImpl) view(ctx context.Context, o *model.Occurrence) (*model.OccurrenceView, error) {
	files, err := s.r.Files.ListByIDs(ctx, o.Files)
	if err != nil {
		return nil, errs.Internal(err)
	}
	return &model.OccurrenceView{Occurrence: *o, Files: files}, nil
}

// Update applies a partial update. When patch.Files is non-nil the stored files are
// diffed against it: new attachments are created first, unreferenced files are
// deleted next and the occurrence is written last.
func (s *OccurrenceServiceImpl) Update(ctx context.Context, id uuid.UUID, patch model.OccurrencePatch) (*model.OccurrenceView, error) {
	if patch.Kind != nil && !patch.Kind.Valid() {
		return nil, errs.Validation("validation: kind", "kind must be one of [session relevant-fact]")
	}
	o, err := s.r.Occurrences.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, MsgOccurrenceNotFound)
	}
	if patch.Name != nil {
		o.Name = *patch.Name
	}
	if patch.Content != nil {
		o.Content = *patch.Content
	}
	if patch.Kind != nil {
		o.Kind = *patch.Kind
	}

	var created, removed []model.File
	err = s.r.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if patch.Files != nil {
			existing, err := s.r.Files.ListByIDs(ctx, o.Files)
			if err != nil {
				return err
			}
			d := diffFiles(existing, patch.Files)
			if len(d.create) > 0 {
				if created, err = s.r.Files.CreateMany(ctx, d.create); err != nil {
					return err
				}
			}
			if len(d.remove) > 0 {
				if removed, err = s.r.Files.DeleteMany(ctx, fileIDs(d.remove)); err != nil {
					return err
				}
			}
			o.Files = append(d.keep, fileIDs(created)...)
			if err := s.r.Occurrences.SetFiles(ctx, o.ID, o.Files); err != nil {
				return err
			}
		}
		return s.r.Occurrences.Update(ctx, o)
	})
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.NotFound(MsgOccurrenceNotFound)
		}
		return nil, errs.Internal(err)
	}
	s.c.rec.Created(KindFile, len(created))
	s.c.rec.Deleted(KindFile, len(removed))
	s.c.removeBlobs(ctx, removed...)
	return s.view(ctx, o)
}

// Delete checks the timeline exists and lists the occurrence, removes the
// occurrence with its files and pulls it from the timeline's list.
func (s *OccurrenceServiceImpl) Delete(ctx context.Context, timelineID, id uuid.UUID) error {
	var rm Removal
	err := s.r.Tx.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.r.Timelines.GetByID(ctx, timelineID)
		if err != nil {
			return lookup(err, MsgTimelineNotFound)
		}
		if !slices.Contains(t.Occurrences, id) {
			return errs.NotFound(MsgOccurrenceNotFound)
		}
		if _, err := s.c.Occurrence(ctx, id, &rm); err != nil {
			return err
		}
		return s.r.Timelines.DisassociateOccurrence(ctx, timelineID, id)
	})
	if err != nil {
		return s.c.Failed(KindOccurrence, err, MsgOccurrenceNotFound)
	}
	s.c.Finish(ctx, &rm)
	return nil
}
