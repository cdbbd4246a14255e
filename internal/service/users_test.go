package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/agenda-api/internal/apperror"
	"github.com/sakif/agenda-api/internal/model"
)

func TestUser_CreateHashesPassword(t *testing.T) {
	f := newFixture(t)

	id, err := f.users.Create(ctx(), model.NewUser{Name: " Ana ", Email: "ana@x.com", Password: "pw"})
	require.NoError(t, err)

	got, err := f.users.Get(ctx(), id)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	assert.NotEqual(t, "pw", got.PasswordHash)
	assert.True(t, strings.HasPrefix(got.PasswordHash, "$2a$"))
	assert.NoError(t, f.passwords.Verify(got.PasswordHash, "pw"))
}

func TestUser_CreateRequiresAllFields(t *testing.T) {
	tests := []struct {
		name string
		req  model.NewUser
	}{
		{"missing name", model.NewUser{Email: "a@x.com", Password: "pw"}},
		{"missing email", model.NewUser{Name: "Ana", Password: "pw"}},
		{"missing password", model.NewUser{Name: "Ana", Email: "a@x.com"}},
		{"blank name", model.NewUser{Name: "  ", Email: "a@x.com", Password: "pw"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.users.Create(ctx(), tt.req)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.True(t, errors.Is(err, apperror.ErrValidation))
			assert.Equal(t, MsgUserRequired, appErr.Message)
		})
	}
}

func TestUser_CreateRejectsOverlongPassword(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.Create(ctx(), model.NewUser{Name: "Ana", Email: "a@x.com", Password: strings.Repeat("x", 73)})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestUser_UpdateRehashesPassword(t *testing.T) {
	f := newFixture(t)
	id, err := f.users.Create(ctx(), model.NewUser{Name: "Ana", Email: "ana@x.com", Password: "old"})
	require.NoError(t, err)

	n, err := f.users.Update(ctx(), id, map[string]any{"senha": "new"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := f.users.Get(ctx(), id)
	require.NoError(t, err)
	assert.NoError(t, f.passwords.Verify(got.PasswordHash, "new"))
	assert.Error(t, f.passwords.Verify(got.PasswordHash, "old"))
}

func TestUser_UpdateCannotBlankEmail(t *testing.T) {
	f := newFixture(t)
	id, err := f.users.Create(ctx(), model.NewUser{Name: "Ana", Email: "ana@x.com", Password: "pw"})
	require.NoError(t, err)

	_, err = f.users.Update(ctx(), id, map[string]any{"email": ""})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}
