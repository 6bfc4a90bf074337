package memdao

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-booking/pkg/common/document"
	errs "tour-booking/pkg/common/errors"
	"tour-booking/pkg/core/query"
	"tour-booking/pkg/core/repository/dao"
)

type widget struct {
	document.Base
	Name   string   `json:"name"`
	Price  float64  `json:"price"`
	Tags   []string `json:"tags"`
	Hidden bool     `json:"hidden"`
}

func (w *widget) Prepare() {
	if w.Tags == nil {
		w.Tags = []string{}
	}
}

func (w *widget) Validate() error {
	v := &errs.ValidationError{}
	if w.Name == "" {
		v.Add("name", "A widget must have a name")
	}
	return v.ErrOrNil()
}

func newWidgets(t *testing.T) *MemCollection[widget] {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	c := NewMemCollection[widget](
		WithScopes[widget](func(w *widget) bool { return !w.Hidden }),
		WithUnique[widget]("name"),
		WithClock[widget](func() time.Time {
			n++
			return base.Add(time.Duration(n) * time.Minute)
		}),
	)

	ctx := context.Background()
	for _, p := range []map[string]any{
		{"name": "alpha", "price": 10, "tags": []string{"a", "b"}},
		{"name": "beta", "price": 20, "tags": []string{"b"}},
		{"name": "gamma", "price": 30},
		{"name": "secret", "price": 5, "hidden": true},
	} {
		_, err := c.Create(ctx, p)
		require.NoError(t, err)
	}
	return c
}

func names(ws []widget) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Name)
	}
	return out
}

func find(t *testing.T, c *MemCollection[widget], pairs ...string) ([]widget, error) {
	t.Helper()
	raw := query.Raw{}
	for i := 0; i+1 < len(pairs); i += 2 {
		raw.Add(pairs[i], pairs[i+1])
	}
	return c.Find(context.Background(), query.Translate(raw, query.WithWhitelist("price")))
}

func TestMemCollectionFind(t *testing.T) {
	c := newWidgets(t)

	t.Run("default sort is newest first and hides scoped documents", func(t *testing.T) {
		ws, err := find(t, c)
		require.NoError(t, err)
		assert.Equal(t, []string{"gamma", "beta", "alpha"}, names(ws))
	})

	t.Run("comparison filter", func(t *testing.T) {
		ws, err := find(t, c, "price[gte]", "20", "sort", "price")
		require.NoError(t, err)
		assert.Equal(t, []string{"beta", "gamma"}, names(ws))
	})

	t.Run("IN for whitelisted fields", func(t *testing.T) {
		ws, err := find(t, c, "price", "10", "price", "30", "sort", "price")
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "gamma"}, names(ws))
	})

	t.Run("array fields match any element", func(t *testing.T) {
		ws, err := find(t, c, "tags", "b", "sort", "name")
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "beta"}, names(ws))
	})

	t.Run("unknown field matches nothing", func(t *testing.T) {
		ws, err := find(t, c, "colour", "red")
		require.NoError(t, err)
		assert.Empty(t, ws)
	})

	t.Run("pagination", func(t *testing.T) {
		ws, err := find(t, c, "sort", "price", "page", "2", "limit", "2")
		require.NoError(t, err)
		assert.Equal(t, []string{"gamma"}, names(ws))

		ws, err = find(t, c, "page", "9", "limit", "2")
		require.NoError(t, err)
		assert.Empty(t, ws)
	})

	t.Run("bad number is a cast error", func(t *testing.T) {
		_, err := find(t, c, "price[gt]", "cheap")
		var castErr *errs.CastError
		require.ErrorAs(t, err, &castErr)
		assert.Equal(t, "price", castErr.Path)
	})

	t.Run("unsupported operator", func(t *testing.T) {
		_, err := find(t, c, "price[ne]", "10")
		var appErr *errs.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 400, appErr.StatusCode)
	})

	t.Run("mixed projection", func(t *testing.T) {
		_, err := find(t, c, "fields", "name,-price")
		var appErr *errs.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "Projection cannot have a mix of inclusion and exclusion.", appErr.Message)
	})

	t.Run("results are copies", func(t *testing.T) {
		ws, err := find(t, c, "name", "alpha")
		require.NoError(t, err)
		ws[0].Tags[0] = "mutated"

		again, err := find(t, c, "name", "alpha")
		require.NoError(t, err)
		assert.Equal(t, "a", again[0].Tags[0])
	})
}

func TestMemCollectionWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("create assigns id, createdAt and runs validation", func(t *testing.T) {
		c := newWidgets(t)
		w, err := c.Create(ctx, map[string]any{"name": "delta", "id": "ignored", "__v": 7})
		require.NoError(t, err)
		assert.True(t, document.ValidID(w.ID))
		assert.False(t, w.CreatedAt.IsZero())
		assert.Equal(t, 0, w.Version)

		_, err = c.Create(ctx, map[string]any{"price": 1})
		var valErr *errs.ValidationError
		require.ErrorAs(t, err, &valErr)
		assert.Equal(t, []string{"A widget must have a name"}, valErr.Messages())
	})

	t.Run("wrong type is a cast error", func(t *testing.T) {
		c := newWidgets(t)
		_, err := c.Create(ctx, map[string]any{"name": "x", "price": "expensive"})
		var castErr *errs.CastError
		require.ErrorAs(t, err, &castErr)
		assert.Equal(t, "price", castErr.Path)
	})

	t.Run("unique index covers hidden documents", func(t *testing.T) {
		c := newWidgets(t)
		_, err := c.Create(ctx, map[string]any{"name": "secret"})
		var dupErr *errs.DuplicateKeyError
		require.ErrorAs(t, err, &dupErr)
		assert.Equal(t, `"secret"`, dupErr.Value)
	})

	t.Run("update merges, validates and bumps the version", func(t *testing.T) {
		c := newWidgets(t)
		ws, err := find(t, c, "name", "alpha")
		require.NoError(t, err)
		id := ws[0].ID

		w, err := c.UpdateByID(ctx, id, map[string]any{"price": 11, "createdAt": "2000-01-01T00:00:00Z"})
		require.NoError(t, err)
		assert.Equal(t, 11.0, w.Price)
		assert.Equal(t, "alpha", w.Name)
		assert.Equal(t, ws[0].CreatedAt, w.CreatedAt)
		assert.Equal(t, 1, w.Version)

		_, err = c.UpdateByID(ctx, id, map[string]any{"name": ""})
		var valErr *errs.ValidationError
		assert.ErrorAs(t, err, &valErr)

		_, err = c.UpdateByID(ctx, id, map[string]any{"name": "beta"})
		var dupErr *errs.DuplicateKeyError
		assert.ErrorAs(t, err, &dupErr)
	})

	t.Run("lookups by id", func(t *testing.T) {
		c := newWidgets(t)

		_, err := c.FindByID(ctx, "not-a-uuid")
		var castErr *errs.CastError
		require.ErrorAs(t, err, &castErr)
		assert.Equal(t, query.IDField, castErr.Path)

		_, err = c.FindByID(ctx, "6f1c1d3e-8a0b-4b8e-9c52-0d8d3c6b8f11")
		assert.ErrorIs(t, err, dao.ErrNotFound)

		secret, err := c.FindFunc(ctx, func(w *widget) bool { return w.Name == "secret" })
		assert.ErrorIs(t, err, dao.ErrNotFound)
		assert.Nil(t, secret)
	})

	t.Run("delete twice", func(t *testing.T) {
		c := newWidgets(t)
		ws, err := find(t, c, "name", "beta")
		require.NoError(t, err)

		deleted, err := c.DeleteByID(ctx, ws[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "beta", deleted.Name)

		_, err = c.DeleteByID(ctx, ws[0].ID)
		assert.ErrorIs(t, err, dao.ErrNotFound)
	})

	t.Run("save replaces hidden documents too", func(t *testing.T) {
		c := newWidgets(t)
		w, err := c.Create(ctx, map[string]any{"name": "delta"})
		require.NoError(t, err)

		w.Hidden = true
		require.NoError(t, c.Save(ctx, w))
		_, err = c.FindByID(ctx, w.ID)
		assert.ErrorIs(t, err, dao.ErrNotFound)

		n, err := c.DeleteAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)
	})
}
