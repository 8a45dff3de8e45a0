// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects the issued access token.
type Tokens struct {
	AccessToken string    `json:"token"`
	ExpiresAt   time.Time `json:"expiresAt"` // access token expiry (for diagnostics)
}

// File is the metadata of one stored upload. Bytes live in the blob store under Filename.
type File struct {
	ID        uuid.UUID `json:"id"`
	Filename  string    `json:"filename"`
	Mimetype  string    `json:"mimetype"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Attachment is an incoming file reference on create/update.
// ID is set when the caller passes back an already stored File it wants to keep.
type Attachment struct {
	ID       uuid.UUID `json:"id,omitempty"`
	Filename string    `json:"filename" validate:"required"`
	Mimetype string    `json:"mimetype" validate:"required"`
}

// User is a practitioner, the root of the hierarchy.
type User struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`   // unique
	PwdHash   []byte      `json:"-"`       // bcrypt
	Image     uuid.UUID   `json:"image"`   // File ref
	Patients  []uuid.UUID `json:"patients"` // ordered
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// UserView is a User with its image File resolved.
type UserView struct {
	User
	Image *File `json:"image"`
}

// Patient belongs to exactly one User.
type Patient struct {
	ID                  uuid.UUID   `json:"id"`
	User                uuid.UUID   `json:"user"`
	Name                string      `json:"name"`
	Contact             string      `json:"contact"`
	Birthdate           time.Time   `json:"birthdate"`
	Demands             string      `json:"demands,omitempty"`
	PersonalAnnotations string      `json:"personalAnnotations,omitempty"`
	Timelines           []uuid.UUID `json:"timelines"`
	CreatedAt           time.Time   `json:"createdAt"`
	UpdatedAt           time.Time   `json:"updatedAt"`
}

// PatientPatch carries optional patient field updates; nil fields are left unchanged.
type PatientPatch struct {
	Name                *string
	Contact             *string
	Birthdate           *time.Time
	Demands             *string
	PersonalAnnotations *string
}

// Timeline groups occurrences of one Patient.
type Timeline struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Occurrences []uuid.UUID `json:"occurrences"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// OccurrenceKind enumerates occurrence types.
type OccurrenceKind string

const (
	KindSession      OccurrenceKind = "session"
	KindRelevantFact OccurrenceKind = "relevant-fact"
)

// Valid reports whether k is a known kind.
func (k OccurrenceKind) Valid() bool {
	return k == KindSession || k == KindRelevantFact
}

// Occurrence is a session note or relevant fact inside a Timeline.
type Occurrence struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Content   string         `json:"content"`
	Kind      OccurrenceKind `json:"kind"`
	Files     []uuid.UUID    `json:"files"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// OccurrenceView is an Occurrence with its files resolved.
type OccurrenceView struct {
	Occurrence
	Files []File `json:"files"`
}

// OccurrencePatch carries optional occurrence updates.
// Files == nil leaves attachments untouched; a non-nil empty slice removes them all.
type OccurrencePatch struct {
	Name    *string
	Content *string
	Kind    *OccurrenceKind
	Files   []Attachment
}

// UserPatch carries optional user updates. Image == nil keeps the current image.
type UserPatch struct {
	Name     *string
	Email    *string
	Password *string
	Image    *Attachment
}
