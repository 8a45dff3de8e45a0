package memory

import (
	"context"
	"slices"

	"github.com/and161185/carenotes/internal/errs"
	"github.com/and161185/carenotes/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepo implements repository.UserRepository in memory.
// Email uniqueness is checked under the store mutex, like a unique index.
type UserRepo struct{ s *Store }

func cloneUser(u model.User) model.User {
	u.Patients = cloneIDs(u.Patients)
	u.PwdHash = slices.Clone(u.PwdHash)
	return u
}

func (r *UserRepo) emailTaken(email string, except uuid.UUID) bool {
	for id, u := range r.s.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "users.Create"); err != nil {
		return err
	}
	if r.emailTaken(u.Email, uuid.Nil) {
		return errs.ErrAlreadyExists
	}
	id, err := newID()
	if err != nil {
		return err
	}
	now := r.s.stamp()
	u.ID, u.CreatedAt, u.UpdatedAt, u.Patients = id, now, now, []uuid.UUID{}
	r.s.users[id] = cloneUser(*u)
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "users.GetByID"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	u = cloneUser(u)
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "users.GetByEmail"); err != nil {
		return nil, err
	}
	for _, u := range r.s.users {
		if u.Email == email {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "users.Update"); err != nil {
		return err
	}
	cur, ok := r.s.users[u.ID]
	if !ok {
		return errs.ErrNotFound
	}
	if r.emailTaken(u.Email, u.ID) {
		return errs.ErrAlreadyExists
	}
	cur.Name, cur.Email, cur.PwdHash = u.Name, u.Email, slices.Clone(u.PwdHash)
	cur.UpdatedAt = r.s.stamp()
	r.s.users[u.ID] = cur
	u.UpdatedAt = cur.UpdatedAt
	return nil
}

func (r *UserRepo) SetImage(ctx context.Context, id, fileID uuid.UUID) error {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "users.SetImage"); err != nil {
		return err
	}
	cur, ok := r.s.users[id]
	if !ok {
		return errs.ErrNotFound
	}
	cur.Image, cur.UpdatedAt = fileID, r.s.stamp()
	r.s.users[id] = cur
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) (*model.User, error) {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "users.Delete"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	delete(r.s.users, id)
	return &u, nil
}

func (r *UserRepo) AssociatePatient(ctx context.Context, userID, patientID uuid.UUID) error {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "users.AssociatePatient"); err != nil {
		return err
	}
	u, ok := r.s.users[userID]
	if !ok {
		return errs.ErrNotFound
	}
	u.Patients = append(cloneIDs(u.Patients), patientID)
	u.UpdatedAt = r.s.stamp()
	r.s.users[userID] = u
	return nil
}

func (r *UserRepo) DisassociatePatient(ctx context.Context, userID, patientID uuid.UUID) error {
	defer r.s.mu.Unlock()
	if err := r.s.begin(ctx, "users.DisassociatePatient"); err != nil {
		return err
	}
	u, ok := r.s.users[userID]
	if !ok {
		return nil
	}
	u.Patients = pull(u.Patients, patientID)
	u.UpdatedAt = r.s.stamp()
	r.s.users[userID] = u
	return nil
}
