package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/agenda-api/internal/apperror"
	"github.com/sakif/agenda-api/internal/ident"
	"github.com/sakif/agenda-api/internal/model"
)

// =========================================================================
// CATEGORIES (the simplest kind, used to cover the shared CRUD path)
// =========================================================================

func TestCategory_CreateGetList(t *testing.T) {
	f := newFixture(t)

	id, err := f.categories.Create(ctx(), model.NewCategory{Name: "Trabalho", Color: " #ff0000 "})
	require.NoError(t, err)
	_, err = ident.Decode(id)
	assert.NoError(t, err, "id %q should be 24 hex chars", id)

	got, err := f.categories.Get(ctx(), id)
	require.NoError(t, err)
	assert.Equal(t, "Trabalho", got.Name)
	assert.Equal(t, "#ff0000", got.Color)

	all, err := f.categories.List(ctx())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCategory_CreateRequiresName(t *testing.T) {
	f := newFixture(t)

	for _, name := range []string{"", "   ", "<b></b>"} {
		_, err := f.categories.Create(ctx(), model.NewCategory{Name: name})
		require.Error(t, err, "name %q", name)
		assert.True(t, errors.Is(err, apperror.ErrValidation))

		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, MsgCategoryRequired, appErr.Message)
	}
	assert.Equal(t, 0, f.store.Collection("categorias").(interface{ Len() int }).Len())
}

func TestCreate_RecordsRejectedPayloads(t *testing.T) {
	f := newFixture(t)

	_, err := f.categories.Create(ctx(), model.NewCategory{})
	require.Error(t, err)
	_, err = f.users.Create(ctx(), model.NewUser{Name: "Ana"})
	require.Error(t, err)
	_, err = f.categories.Create(ctx(), model.NewCategory{Name: "   "})
	require.Error(t, err)

	assert.Equal(t, []string{
		"Categoria.insert: Campos obrigatórios faltando (nome)",
		"Usuario.insert: Campos obrigatórios faltando (email, senha)",
		"Categoria.insert: " + MsgCategoryRequired,
	}, f.sink.all())
}

func TestCategory_CreateStripsMarkup(t *testing.T) {
	f := newFixture(t)

	id, err := f.categories.Create(ctx(), model.NewCategory{Name: "<script>x()</script>Lazer"})
	require.NoError(t, err)

	got, err := f.categories.Get(ctx(), id)
	require.NoError(t, err)
	assert.Equal(t, "Lazer", got.Name)
}

func TestGet_MissingAndMalformed(t *testing.T) {
	f := newFixture(t)

	_, err := f.categories.Get(ctx(), "507f1f77bcf86cd799439011")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	_, err = f.categories.Get(ctx(), "abc")
	assert.True(t, errors.Is(err, apperror.ErrInvalidID))
}

func TestList_EmptyIsNotNil(t *testing.T) {
	f := newFixture(t)

	all, err := f.events.List(ctx())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

// =========================================================================
// UPDATE
// =========================================================================

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	id, err := f.categories.Create(ctx(), model.NewCategory{Name: "Casa"})
	require.NoError(t, err)

	t.Run("changes a field", func(t *testing.T) {
		n, err := f.categories.Update(ctx(), id, map[string]any{"cor": "azul"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got, err := f.categories.Get(ctx(), id)
		require.NoError(t, err)
		assert.Equal(t, "azul", got.Color)
		assert.Equal(t, "Casa", got.Name)
	})

	t.Run("same value modifies nothing", func(t *testing.T) {
		n, err := f.categories.Update(ctx(), id, map[string]any{"cor": "azul"})
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})

	t.Run("identifier and unknown keys only", func(t *testing.T) {
		_, err := f.categories.Update(ctx(), id, map[string]any{"_id": "x", "id": "y", "extra": 1})
		require.Error(t, err)

		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, MsgNothingToUpdate, appErr.Message)
	})

	t.Run("empty payload", func(t *testing.T) {
		_, err := f.categories.Update(ctx(), id, map[string]any{})
		assert.True(t, errors.Is(err, apperror.ErrValidation))
	})

	t.Run("blank required field", func(t *testing.T) {
		_, err := f.categories.Update(ctx(), id, map[string]any{"nome": "  "})
		assert.True(t, errors.Is(err, apperror.ErrValidation))
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := f.categories.Update(ctx(), id, map[string]any{"cor": 42.0})
		assert.True(t, errors.Is(err, apperror.ErrValidation))
	})

	t.Run("unknown id", func(t *testing.T) {
		n, err := f.categories.Update(ctx(), "507f1f77bcf86cd799439011", map[string]any{"cor": "verde"})
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := f.categories.Update(ctx(), "nope", map[string]any{"cor": "verde"})
		assert.True(t, errors.Is(err, apperror.ErrInvalidID))
	})
}

func TestUpdate_RecordsRejectedPayloads(t *testing.T) {
	f := newFixture(t)
	id, err := f.categories.Create(ctx(), model.NewCategory{Name: "Casa"})
	require.NoError(t, err)

	_, err = f.categories.Update(ctx(), id, map[string]any{"cor": 42.0})
	require.Error(t, err)
	_, err = f.categories.Update(ctx(), id, map[string]any{"extra": 1})
	require.Error(t, err)

	assert.Equal(t, []string{
		"Categoria.update: O campo cor deve ser um texto. (ID: " + id + ")",
		"Categoria.update: nenhum campo para atualizar (ID: " + id + ")",
	}, f.sink.all())
}

// =========================================================================
// DELETE
// =========================================================================

func TestDelete(t *testing.T) {
	f := newFixture(t)
	id, err := f.categories.Create(ctx(), model.NewCategory{Name: "Casa"})
	require.NoError(t, err)

	n, err := f.categories.Delete(ctx(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = f.categories.Delete(ctx(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = f.categories.Delete(ctx(), "zz")
	assert.True(t, errors.Is(err, apperror.ErrInvalidID))
}
