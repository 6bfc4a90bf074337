package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-booking/pkg/common/config"
	"tour-booking/pkg/core/query"
	userservice "tour-booking/pkg/core/user/service"
)

const (
	usersJSON = `[
		{"_id": "5c8a1d5b0190b214360dc057", "name": "Jonas Schmedtmann", "email": "admin@natours.io", "role": "admin", "password": "test1234"},
		{"_id": "5c8a1f292f8fb814b56fa184", "name": "Leo Gillespie", "email": "leo@example.com", "role": "lead-guide", "password": "test1234"},
		{"_id": "5c8a1dfa2f8fb814b56fa181", "name": "Lourdes Browning", "email": "loulou@example.com", "role": "user", "password": "test1234"},
		{"_id": "5c8a1e1a2f8fb814b56fa182", "name": "Sophie Louise Hart", "email": "sophie@example.com", "role": "user", "password": "test1234"}
	]`
	toursJSON = `[
		{
			"_id": "5c88fa8cf4afda39709c2955",
			"name": "The Sea Explorer",
			"duration": 7,
			"maxGroupSize": 15,
			"difficulty": "medium",
			"guides": ["5c8a1f292f8fb814b56fa184"],
			"price": 497,
			"summary": "Exploring the jaw-dropping US east coast by foot and by boat",
			"imageCover": "tour-2-cover.jpg",
			"startDates": ["2021-06-19,10:00", "2021-07-20,10:00"],
			"startLocation": {"type": "Point", "coordinates": [-80.185942, 25.774772], "address": "301 Biscayne Blvd, Miami, FL 33132, USA"}
		}
	]`
	reviewsJSON = `[
		{"_id": "5c8a34ed14eb5c17645c9108", "review": "Cras mollis nisi parturient mi nec aliquet", "rating": 5, "user": "5c8a1dfa2f8fb814b56fa181", "tour": "5c88fa8cf4afda39709c2955"},
		{"_id": "5c8a355b14eb5c17645c9109", "review": "Tempus curabitur faucibus auctor bibendum", "rating": 4, "user": "5c8a1e1a2f8fb814b56fa182", "tour": "5c88fa8cf4afda39709c2955"}
	]`
)

func writeDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"users.json":   usersJSON,
		"tours.json":   toursJSON,
		"reviews.json": reviewsJSON,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestOpenMemory(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Driver = config.DriverMemory

	st, err := Open(&cfg)
	require.NoError(t, err)
	assert.Equal(t, config.DriverMemory, st.Driver)
	assert.Nil(t, st.DB())
	assert.NoError(t, st.Close())
}

func TestSeeder(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()
	users := userservice.NewUserService(st.Users, nil, userservice.Options{
		BcryptCost:    4,
		ResetTokenTTL: 10 * time.Minute,
	})
	seeder := NewSeeder(st, users)

	t.Run("missing dataset file", func(t *testing.T) {
		_, err := ReadDataset(t.TempDir())
		assert.Error(t, err)
	})

	t.Run("import rewrites references", func(t *testing.T) {
		ds, err := ReadDataset(writeDataset(t))
		require.NoError(t, err)
		require.NoError(t, seeder.Import(ctx, ds))

		tours, err := st.Tours.Find(ctx, query.Translate(query.Raw{}))
		require.NoError(t, err)
		require.Len(t, tours, 1)
		tour := tours[0]

		assert.Equal(t, "the-sea-explorer", tour.Slug)
		assert.Equal(t, 2, tour.RatingsQuantity)
		assert.Equal(t, 4.5, tour.RatingsAverage)
		require.Len(t, tour.StartDates, 2)
		assert.Equal(t, time.Date(2021, time.June, 19, 10, 0, 0, 0, time.UTC), tour.StartDates[0].UTC())

		require.Len(t, tour.Guides, 1)
		guide, err := st.Users.FindByID(ctx, tour.Guides[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "Leo Gillespie", guide.Name)

		reviews, err := st.Reviews.Find(ctx, query.Translate(query.Raw{}))
		require.NoError(t, err)
		require.Len(t, reviews, 2)
		for _, r := range reviews {
			assert.Equal(t, tour.ID, r.Tour)
			_, err := st.Users.FindByID(ctx, r.User)
			assert.NoError(t, err)
		}

		u, err := users.Login(ctx, "admin@natours.io", "test1234")
		require.NoError(t, err)
		assert.EqualValues(t, "admin", u.Role)
	})

	t.Run("delete all", func(t *testing.T) {
		require.NoError(t, seeder.DeleteAll(ctx))

		tours, err := st.Tours.Find(ctx, query.Translate(query.Raw{}))
		require.NoError(t, err)
		assert.Empty(t, tours)

		_, err = users.Login(ctx, "admin@natours.io", "test1234")
		assert.Error(t, err)
	})
}
