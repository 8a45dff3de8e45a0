package service

import (
	"context"
	"errors"
	"strings"

	pkgcrypto "github.com/and161185/carenotes/internal/crypto"
	"github.com/and161185/carenotes/internal/errs"
	"github.com/and161185/carenotes/internal/model"
	"github.com/and161185/carenotes/internal/paginate"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// UserInput is the payload of user creation.
type UserInput struct {
	Name     string
	Email    string
	Password string
	Image    model.Attachment
}

// UserService coordinates users, their profile image and their patients.
type UserService interface {
	Create(ctx context.Context, in UserInput) (*model.UserView, error)
	Get(ctx context.Context, id uuid.UUID) (*model.UserView, error)
	Update(ctx context.Context, id uuid.UUID, patch model.UserPatch) (*model.UserView, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListPatients(ctx context.Context, id uuid.UUID, page, limit int) ([]model.Patient, error)
}

type UserServiceImpl struct {
	r Repos
	c *Cascader
}

// NewUserService constructs UserService.
func NewUserService(r Repos, c *Cascader) *UserServiceImpl {
	return &UserServiceImpl{r: r, c: c}
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Create stores the image File, hashes the password and inserts the user.
// A duplicate email is rejected by the store and reported as Conflict; the image
// File created for the attempt is then removed again.
func (s *UserServiceImpl) Create(ctx context.Context, in UserInput) (*model.UserView, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, errs.Validation("validation: name/email/password required")
	}
	if in.Image.Filename == "" {
		return nil, errs.Validation("validation: image required", "image is required")
	}
	hash, err := pkgcrypto.HashPassword(in.Password)
	if err != nil {
		return nil, errs.Internal(err)
	}

	var (
		img *model.File
		u   = &model.User{Name: in.Name, Email: normalizeEmail(in.Email), PwdHash: hash}
	)
	err = s.r.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if img, err = s.r.Files.Create(ctx, in.Image); err != nil {
			return err
		}
		u.Image = img.ID
		return s.r.Users.Create(ctx, u)
	})
	if err != nil {
		if img != nil {
			// no-op when the transaction already rolled it back
			if _, derr := s.r.Files.Delete(ctx, img.ID); derr != nil && !errors.Is(derr, errs.ErrNotFound) {
				s.c.log.Warn("compensating image delete failed",
					zap.String("file_id", img.ID.String()), zap.Error(derr))
			}
		}
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, errs.Conflict(MsgUserExists)
		}
		return nil, errs.Internal(err)
	}
	s.c.rec.Created(KindFile, 1)
	s.c.rec.Created(KindUser, 1)
	return &model.UserView{User: *u, Image: img}, nil
}

// Get loads a user with the image resolved. A dangling image reference yields a nil image.
func (s *UserServiceImpl) Get(ctx context.Context, id uuid.UUID) (*model.UserView, error) {
	u, err := s.r.Users.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, MsgUserNotFound)
	}
	return s.view(ctx, u)
}

func (s *UserServiceImpl) view(ctx context.Context, u *model.User) (*model.UserView, error) {
	v := &model.UserView{User: *u}
	if u.Image == uuid.Nil {
		return v, nil
	}
	img, err := s.r.Files.GetByID(ctx, u.Image)
	switch {
	case err == nil:
		v.Image = img
	case !errors.Is(err, errs.ErrNotFound):
		return nil, errs.Internal(err)
	}
	return v, nil
}

// Update applies a partial update. A user without an image gets a new File; an
// existing image File is overwritten in place and its old bytes are released.
func (s *UserServiceImpl) Update(ctx context.Context, id uuid.UUID, patch model.UserPatch) (*model.UserView, error) {
	u, err := s.r.Users.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, MsgUserNotFound)
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Email != nil {
		u.Email = normalizeEmail(*patch.Email)
	}
	if patch.Password != nil {
		if u.PwdHash, err = pkgcrypto.HashPassword(*patch.Password); err != nil {
			return nil, errs.Internal(err)
		}
	}

	var released *model.File
	created := false
	err = s.r.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.r.Users.Update(ctx, u); err != nil {
			return err
		}
		if patch.Image == nil {
			return nil
		}
		if u.Image != uuid.Nil {
			old, err := s.r.Files.GetByID(ctx, u.Image)
			switch {
			case err == nil:
				if _, err := s.r.Files.Update(ctx, u.Image, *patch.Image); err != nil {
					return err
				}
				if old.Filename != patch.Image.Filename {
					released = old
				}
				return nil
			case !errors.Is(err, errs.ErrNotFound):
				return err
			}
		}
		img, err := s.r.Files.Create(ctx, *patch.Image)
		if err != nil {
			return err
		}
		created = true
		u.Image = img.ID
		return s.r.Users.SetImage(ctx, u.ID, img.ID)
	})
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrAlreadyExists):
			return nil, errs.Conflict(MsgUserExists)
		case errors.Is(err, errs.ErrNotFound):
			return nil, errs.NotFound(MsgUserNotFound)
		}
		return nil, errs.Internal(err)
	}
	if created {
		s.c.rec.Created(KindFile, 1)
	}
	if released != nil {
		s.c.removeBlobs(ctx, *released)
	}
	return s.view(ctx, u)
}

// Delete removes the user, every patient subtree it owns and its image.
func (s *UserServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	var rm Removal
	err := s.r.Tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := s.c.User(ctx, id, &rm)
		return err
	})
	if err != nil {
		return s.c.Failed(KindUser, err, MsgUserNotFound)
	}
	s.c.Finish(ctx, &rm)
	return nil
}

// ListPatients returns one page of the user's patients in association order.
func (s *UserServiceImpl) ListPatients(ctx context.Context, id uuid.UUID, page, limit int) ([]model.Patient, error) {
	u, err := s.r.Users.GetByID(ctx, id)
	if err != nil {
		return nil, lookup(err, MsgUserNotFound)
	}
	patients, err := s.r.Patients.ListByIDs(ctx, u.Patients)
	if err != nil {
		return nil, errs.Internal(err)
	}
	return paginate.Paginate(patients, page, limit), nil
}
