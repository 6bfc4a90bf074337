package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawOf(pairs ...string) Raw {
	r := Raw{}
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Add(pairs[i], pairs[i+1])
	}
	return r
}

func TestTranslate(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		f := Translate(Raw{})

		assert.Empty(t, f.Filter)
		assert.Equal(t, []SortField{{Field: CreatedAtField, Desc: true}}, f.Sort)
		assert.Equal(t, Projection{{Field: VersionField, Exclude: true}}, f.Projection)
		assert.Equal(t, 1, f.Page)
		assert.Equal(t, 100, f.Limit)
		assert.Equal(t, 0, f.Skip)
	})

	t.Run("reserved keys are not filters", func(t *testing.T) {
		f := Translate(rawOf("page", "2", "sort", "price", "limit", "10", "fields", "name", "difficulty", "easy"))

		require.Len(t, f.Filter, 1)
		assert.Equal(t, Condition{Field: "difficulty", Op: OpEq, Value: "easy"}, f.Filter[0])
	})

	t.Run("comparison operators", func(t *testing.T) {
		f := Translate(rawOf("duration[gte]", "5", "price[lt]", "1500", "ratingsAverage[gt]", "4", "maxGroupSize[lte]", "10"))

		assert.ElementsMatch(t, []Condition{
			{Field: "duration", Op: OpGte, Value: "5"},
			{Field: "price", Op: OpLt, Value: "1500"},
			{Field: "ratingsAverage", Op: OpGt, Value: "4"},
			{Field: "maxGroupSize", Op: OpLte, Value: "10"},
		}, f.Filter)
	})

	t.Run("unknown operator is passed through", func(t *testing.T) {
		f := Translate(rawOf("price[ne]", "5"))

		require.Len(t, f.Filter, 1)
		assert.Equal(t, Operator("ne"), f.Filter[0].Op)
	})

	t.Run("parameter pollution", func(t *testing.T) {
		t.Run("last value wins", func(t *testing.T) {
			f := Translate(rawOf("sort", "duration", "sort", "price"))
			assert.Equal(t, []SortField{{Field: "price"}}, f.Sort)
		})

		t.Run("whitelisted field becomes IN", func(t *testing.T) {
			f := Translate(rawOf("duration", "5", "duration", "9"), WithWhitelist("duration"))

			require.Len(t, f.Filter, 1)
			assert.Equal(t, OpIn, f.Filter[0].Op)
			assert.Equal(t, []string{"5", "9"}, f.Filter[0].Values)
		})

		t.Run("non-whitelisted field keeps the last value", func(t *testing.T) {
			f := Translate(rawOf("name", "a", "name", "b"))

			require.Len(t, f.Filter, 1)
			assert.Equal(t, Condition{Field: "name", Op: OpEq, Value: "b"}, f.Filter[0])
		})
	})

	t.Run("sort tolerates whitespace", func(t *testing.T) {
		f := Translate(rawOf("sort", "-ratingsAverage, price"))

		assert.Equal(t, []SortField{
			{Field: "ratingsAverage", Desc: true},
			{Field: "price"},
		}, f.Sort)
	})

	t.Run("projection", func(t *testing.T) {
		f := Translate(rawOf("fields", "name,price"))
		assert.True(t, f.Projection.Included())
		assert.False(t, f.Projection.Mixed())

		f = Translate(rawOf("fields", "-description"))
		assert.False(t, f.Projection.Included())

		f = Translate(rawOf("fields", "name,-price"))
		assert.True(t, f.Projection.Mixed())
	})

	t.Run("pagination", func(t *testing.T) {
		cases := []struct {
			page, limit         string
			wantPage, wantLimit int
			wantSkip            int
		}{
			{"3", "10", 3, 10, 20},
			{"abc", "-4", 1, 100, 0},
			{"0", "0", 1, 100, 0},
			{"2.7", "5", 2, 5, 5},
			{"1e1", "", 10, 100, 900},
		}
		for _, tc := range cases {
			f := Translate(rawOf("page", tc.page, "limit", tc.limit))
			assert.Equal(t, tc.wantPage, f.Page, "page=%q", tc.page)
			assert.Equal(t, tc.wantLimit, f.Limit, "limit=%q", tc.limit)
			assert.Equal(t, tc.wantSkip, f.Skip)
		}
	})

	t.Run("translation does not mutate the raw query", func(t *testing.T) {
		raw := rawOf("sort", "price", "difficulty", "easy")
		Translate(raw)

		assert.Equal(t, "price", raw.Get("sort"))
		assert.Equal(t, "easy", raw.Get("difficulty"))
	})
}

func TestFeaturesScope(t *testing.T) {
	f := Translate(rawOf("rating", "5"))
	f.Scope("tour", "t-1")

	require.Len(t, f.Filter, 2)
	assert.Equal(t, Condition{Field: "tour", Op: OpEq, Value: "t-1"}, f.Filter[0])
}

func TestProjectionShape(t *testing.T) {
	doc := struct {
		ID    string  `json:"id"`
		Name  string  `json:"name"`
		Price float64 `json:"price"`
		V     int     `json:"__v"`
	}{ID: "1", Name: "Forest Hiker", Price: 397, V: 0}

	t.Run("include keeps id", func(t *testing.T) {
		m, err := Projection{{Field: "name"}}.Shape(doc)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"id": "1", "name": "Forest Hiker"}, m)
	})

	t.Run("exclude", func(t *testing.T) {
		m, err := Projection{{Field: VersionField, Exclude: true}}.Shape(doc)
		require.NoError(t, err)
		assert.NotContains(t, m, VersionField)
		assert.Contains(t, m, "price")
	})
}
