package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	pkgcrypto "github.com/and161185/carenotes/internal/crypto"
	"github.com/and161185/carenotes/internal/errs"
	"github.com/and161185/carenotes/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

func TestUser_Create(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	u, err := e.users.Create(context.Background(), UserInput{
		Name:     "Ana",
		Email:    " Ana@Example.com",
		Password: "secret",
		Image:    model.Attachment{Filename: "1700000000000-ana.png", Mimetype: "image/png"},
	})
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", u.Email)
	require.NotNil(t, u.Image)
	require.Equal(t, u.Image.ID, u.User.Image)
	require.Empty(t, u.Patients)

	ok, err := pkgcrypto.VerifyPassword("secret", u.PwdHash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, e.rec.created[KindUser])
}

func TestUser_Create_RequiresImage(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	_, err := e.users.Create(context.Background(), UserInput{Name: "A", Email: "a@example.com", Password: "x"})
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Equal(t, 0, e.store.Counts()["files"])
}

func TestUser_Create_DuplicateEmailCompensatesImage(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.user(t, "dup@example.com")

	_, err := e.users.Create(context.Background(), UserInput{
		Name: "Other", Email: "dup@example.com", Password: "x",
		Image: model.Attachment{Filename: "other.png", Mimetype: "image/png"},
	})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
	require.Equal(t, "User already exists", errs.MessageOf(err))

	counts := e.store.Counts()
	require.Equal(t, 1, counts["users"])
	require.Equal(t, 1, counts["files"], "image of the rejected user removed again")
}

func TestUser_Create_StoreFailure(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.store.FailOn("users.Create", errors.New("disk full"))

	_, err := e.users.Create(context.Background(), UserInput{
		Name: "A", Email: "a@example.com", Password: "x",
		Image: model.Attachment{Filename: "a.png", Mimetype: "image/png"},
	})
	require.Equal(t, errs.KindInternal, errs.KindOf(err))
	require.Equal(t, 0, e.store.Counts()["files"])
}

func TestUser_ConcurrentCreateSameEmail(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	const n = 8
	var wg sync.WaitGroup
	errsOut := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errsOut[i] = e.users.Create(context.Background(), UserInput{
				Name:     fmt.Sprintf("u%d", i),
				Email:    "race@example.com",
				Password: "x",
				Image:    model.Attachment{Filename: fmt.Sprintf("%d.png", i), Mimetype: "image/png"},
			})
		}(i)
	}
	wg.Wait()

	var ok, conflict int
	for _, err := range errsOut {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, errs.ErrAlreadyExists):
			conflict++
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, n-1, conflict)
	counts := e.store.Counts()
	require.Equal(t, 1, counts["users"])
	require.Equal(t, 1, counts["files"])
}

func TestUser_UpdateImageInPlace(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "a@example.com")
	oldName := u.Image.Filename

	name := "Dr. Ana"
	got, err := e.users.Update(ctx, u.ID, model.UserPatch{
		Name:  &name,
		Image: &model.Attachment{Filename: "new.png", Mimetype: "image/png"},
	})
	require.NoError(t, err)
	require.Equal(t, name, got.Name)
	require.Equal(t, u.Image.ID, got.Image.ID, "same File row, overwritten")
	require.Equal(t, "new.png", got.Image.Filename)
	require.Equal(t, []string{oldName}, e.blobs.removed)
	require.Equal(t, 1, e.store.Counts()["files"])
}

func TestUser_UpdateCreatesImageWhenMissing(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	u := e.user(t, "a@example.com")
	_, err := e.store.Files().Delete(ctx, u.Image.ID)
	require.NoError(t, err)

	got, err := e.users.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, got.Image)

	got, err = e.users.Update(ctx, u.ID, model.UserPatch{Image: &model.Attachment{Filename: "fresh.png", Mimetype: "image/png"}})
	require.NoError(t, err)
	require.NotNil(t, got.Image)
	require.NotEqual(t, u.Image.ID, got.Image.ID)
	require.Equal(t, got.Image.ID, got.User.Image)
}

func TestUser_UpdateEmailConflictAndPassword(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "taken@example.com")
	u := e.user(t, "b@example.com")

	email := "taken@example.com"
	_, err := e.users.Update(ctx, u.ID, model.UserPatch{Email: &email})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	pwd := "new-secret"
	got, err := e.users.Update(ctx, u.ID, model.UserPatch{Password: &pwd})
	require.NoError(t, err)
	ok, err := pkgcrypto.VerifyPassword(pwd, got.PwdHash)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = e.users.Update(ctx, uuid.Must(uuid.NewV4()), model.UserPatch{Password: &pwd})
	require.Equal(t, MsgUserNotFound, errs.MessageOf(err))
}
