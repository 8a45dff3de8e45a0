package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/carenotes/internal/errs"
	"github.com/and161185/carenotes/internal/model"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// Cascader deletes an entity together with everything it owns.
//
// Each level deletes its own row first, then walks the deleted row's reference
// list in order, one child at a time. Children that no longer exist are skipped.
// Pulling the entity out of its ancestor's list is left to the caller, since only
// the top of a cascade has a surviving ancestor.
type Cascader struct {
	r     Repos
	blobs BlobRemover
	rec   Recorder
	log   *zap.Logger
}

// NewCascader constructs a Cascader. blobs may be nil when upload bytes are not managed.
func NewCascader(r Repos, blobs BlobRemover, rec Recorder, log *zap.Logger) *Cascader {
	if rec == nil {
		rec = NopRecorder{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cascader{r: r, blobs: blobs, rec: rec, log: log}
}

// Removal collects what one cascade deleted.
type Removal struct {
	Files  []model.File
	counts map[string]int
}

func (rm *Removal) add(kind string, n int) {
	if rm.counts == nil {
		rm.counts = map[string]int{}
	}
	rm.counts[kind] += n
}

// Count returns how many rows of kind were deleted.
func (rm *Removal) Count(kind string) int { return rm.counts[kind] }

// Occurrence deletes an occurrence and its files in one batch.
func (c *Cascader) Occurrence(ctx context.Context, id uuid.UUID, rm *Removal) (*model.Occurrence, error) {
	o, err := c.r.Occurrences.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	rm.add(KindOccurrence, 1)
	if len(o.Files) == 0 {
		return o, nil
	}
	files, err := c.r.Files.DeleteMany(ctx, o.Files)
	if err != nil {
		return nil, fmt.Errorf("occurrence %s: delete files: %w", id, err)
	}
	rm.Files = append(rm.Files, files...)
	rm.add(KindFile, len(files))
	return o, nil
}

// Timeline deletes a timeline and cascades into its occurrences.
func (c *Cascader) Timeline(ctx context.Context, id uuid.UUID, rm *Removal) (*model.Timeline, error) {
	t, err := c.r.Timelines.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	rm.add(KindTimeline, 1)
	for _, oid := range t.Occurrences {
		if _, err := c.Occurrence(ctx, oid, rm); err != nil && !errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("timeline %s: %w", id, err)
		}
	}
	return t, nil
}

// Patient deletes a patient and cascades into its timelines.
func (c *Cascader) Patient(ctx context.Context, id uuid.UUID, rm *Removal) (*model.Patient, error) {
	p, err := c.r.Patients.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	rm.add(KindPatient, 1)
	for _, tid := range p.Timelines {
		if _, err := c.Timeline(ctx, tid, rm); err != nil && !errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("patient %s: %w", id, err)
		}
	}
	return p, nil
}

// User deletes a user, cascades into its patients and removes the profile image.
func (c *Cascader) User(ctx context.Context, id uuid.UUID, rm *Removal) (*model.User, error) {
	u, err := c.r.Users.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	rm.add(KindUser, 1)
	for _, pid := range u.Patients {
		if _, err := c.Patient(ctx, pid, rm); err != nil && !errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", id, err)
		}
	}
	if u.Image == uuid.Nil {
		return u, nil
	}
	img, err := c.r.Files.Delete(ctx, u.Image)
	switch {
	case err == nil:
		rm.Files = append(rm.Files, *img)
		rm.add(KindFile, 1)
	case !errors.Is(err, errs.ErrNotFound):
		return nil, fmt.Errorf("user %s: delete image: %w", id, err)
	}
	return u, nil
}

// Finish runs the after-commit effects of a successful cascade: stored bytes of
// deleted files are removed best-effort and the deletions are counted.
func (c *Cascader) Finish(ctx context.Context, rm *Removal) {
	for kind, n := range rm.counts {
		c.rec.Deleted(kind, n)
	}
	c.removeBlobs(ctx, rm.Files...)
}

// Failed classifies a failed cascade rooted at kind. A missing root becomes
// NotFound(notFoundMsg) unless the caller already said what was missing; anything
// else is counted and reported as internal.
func (c *Cascader) Failed(kind string, err error, notFoundMsg string) error {
	var e *errs.Error
	if errors.As(err, &e) && e.Kind == errs.KindNotFound {
		return e
	}
	if errors.Is(err, errs.ErrNotFound) {
		return errs.NotFound(notFoundMsg)
	}
	c.rec.CascadeFailed(kind)
	return errs.Internal(err)
}

func (c *Cascader) removeBlobs(ctx context.Context, files ...model.File) {
	if c.blobs == nil {
		return
	}
	for _, f := range files {
		if err := c.blobs.Delete(ctx, f.Filename); err != nil {
			c.log.Warn("blob remove failed",
				zap.String("file_id", f.ID.String()),
				zap.String("filename", f.Filename),
				zap.Error(err))
		}
	}
}
