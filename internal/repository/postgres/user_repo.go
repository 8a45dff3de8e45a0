package postgres

import (
	"context"

	"github.com/and161185/carenotes/internal/errs"
	"github.com/and161185/carenotes/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userCols = `id, name, email, pwd_hash, image_id, patients, created_at, updated_at`

func scanUser(s scanner) (model.User, error) {
	var u model.User
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PwdHash, &u.Image, &u.Patients, &u.CreatedAt, &u.UpdatedAt)
	if u.Patients == nil {
		u.Patients = []uuid.UUID{}
	}
	return u, err
}

// Create inserts a new user row. The unique index on email rejects duplicates.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, name, email, pwd_hash, image_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at`
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	err = r.db.q(ctx).QueryRow(ctx, q, id, u.Name, u.Email, u.PwdHash, u.Image).Scan(&u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	u.ID = id
	u.Patients = []uuid.UUID{}
	return nil
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1`
	u, err := scanUser(r.db.q(ctx).QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email=$1`
	u, err := scanUser(r.db.q(ctx).QueryRow(ctx, q, email))
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// Update writes name, email and password hash.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	const q = `
UPDATE users SET name=$2, email=$3, pwd_hash=$4, updated_at=now()
WHERE id=$1
RETURNING updated_at`
	err := r.db.q(ctx).QueryRow(ctx, q, u.ID, u.Name, u.Email, u.PwdHash).Scan(&u.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return notFound(err)
}

// SetImage points the user's image slot at fileID.
func (r *UserRepo) SetImage(ctx context.Context, id, fileID uuid.UUID) error {
	const q = `UPDATE users SET image_id=$2, updated_at=now() WHERE id=$1`
	return mustAffect(r.db.q(ctx).Exec(ctx, q, id, fileID))
}

// Delete removes a user row and returns it.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `DELETE FROM users WHERE id=$1 RETURNING ` + userCols
	u, err := scanUser(r.db.q(ctx).QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// AssociatePatient appends patientID to the user's list.
func (r *UserRepo) AssociatePatient(ctx context.Context, userID, patientID uuid.UUID) error {
	const q = `
UPDATE users SET patients = array_append(patients, $2), updated_at=now()
WHERE id=$1`
	return mustAffect(r.db.q(ctx).Exec(ctx, q, userID, patientID))
}

// DisassociatePatient removes patientID from the user's list.
func (r *UserRepo) DisassociatePatient(ctx context.Context, userID, patientID uuid.UUID) error {
	const q = `
UPDATE users SET patients = array_remove(patients, $2), updated_at=now()
WHERE id=$1`
	_, err := r.db.q(ctx).Exec(ctx, q, userID, patientID)
	return err
}
