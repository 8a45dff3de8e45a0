package httpserver

import (
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/carenotes/internal/model"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt string     `json:"expiresAt"`
	User      model.User `json:"user"`
}

type createUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type updateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6"`
}

type createPatientRequest struct {
	User                string `json:"user" validate:"omitempty,uuid"`
	Name                string `json:"name" validate:"required"`
	Contact             string `json:"contact" validate:"required"`
	Birthdate           string `json:"birthdate" validate:"required"`
	Demands             string `json:"demands"`
	PersonalAnnotations string `json:"personalAnnotations"`
}

type updatePatientRequest struct {
	Name                *string `json:"name" validate:"omitempty,min=1"`
	Contact             *string `json:"contact" validate:"omitempty,min=1"`
	Birthdate           *string `json:"birthdate"`
	Demands             *string `json:"demands"`
	PersonalAnnotations *string `json:"personalAnnotations"`
}

type timelineRequest struct {
	Name string `json:"name" validate:"required"`
}

type createOccurrenceRequest struct {
	Name    string `json:"name" validate:"required"`
	Content string `json:"content" validate:"required"`
	Kind    string `json:"kind" validate:"required,oneof=session relevant-fact"`
}

// attachmentRequest references a file already attached to the occurrence. New
// files only arrive as multipart uploads, so a JSON body cannot point a record at
// bytes it did not store.
type attachmentRequest struct {
	ID string `json:"id" validate:"required,uuid"`
}

type updateOccurrenceRequest struct {
	Name    *string             `json:"name" validate:"omitempty,min=1"`
	Content *string             `json:"content" validate:"omitempty,min=1"`
	Kind    *string             `json:"kind" validate:"omitempty,oneof=session relevant-fact"`
	Files   []attachmentRequest `json:"files" validate:"omitempty,dive"`
}

// attachments converts the request list, preserving nil.
func attachments(in []attachmentRequest) []model.Attachment {
	if in == nil {
		return nil
	}
	out := make([]model.Attachment, 0, len(in))
	for _, a := range in {
		id, _ := uuid.FromString(a.ID)
		out = append(out, model.Attachment{ID: id})
	}
	return out
}
