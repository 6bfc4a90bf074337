package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-booking/pkg/core/review/model"
	reviewmem "tour-booking/pkg/core/review/repository/dao/memdao"
	tourmem "tour-booking/pkg/core/tour/repository/dao/memdao"
	usermem "tour-booking/pkg/core/user/repository/dao/memdao"
)

func TestRatingService(t *testing.T) {
	ctx := context.Background()
	users := usermem.NewUserRepository()
	reviews := reviewmem.NewReviewRepository(users)
	tours := tourmem.NewTourRepository(users, reviews)
	svc := NewRatingService(reviews, tours)

	tour, err := tours.Create(ctx, map[string]any{
		"name":         "The Forest Hiker",
		"duration":     5,
		"maxGroupSize": 25,
		"difficulty":   "easy",
		"price":        397,
		"imageCover":   "tour-1-cover.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, 4.5, tour.RatingsAverage)

	var written []*model.Review
	for _, rating := range []float64{3, 5, 0} {
		r, err := reviews.Create(ctx, map[string]any{
			"review": "Great tour",
			"rating": rating,
			"tour":   tour.ID,
			"user":   uuid.NewString(),
		})
		require.NoError(t, err)
		svc.AfterWrite(ctx, r)
		written = append(written, r)
	}

	t.Run("unrated reviews are counted but not averaged", func(t *testing.T) {
		got, err := tours.FindByID(ctx, tour.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.RatingsQuantity)
		assert.Equal(t, 4.0, got.RatingsAverage)
	})

	t.Run("no reviews left resets the defaults", func(t *testing.T) {
		for _, r := range written {
			deleted, err := reviews.DeleteByID(ctx, r.ID)
			require.NoError(t, err)
			svc.AfterWrite(ctx, deleted)
		}

		got, err := tours.FindByID(ctx, tour.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.RatingsQuantity)
		assert.Equal(t, model.DefaultRatingsAverage, got.RatingsAverage)
	})

	t.Run("missing tour is only logged", func(t *testing.T) {
		assert.NotPanics(t, func() {
			svc.AfterWrite(ctx, &model.Review{Tour: uuid.NewString()})
		})
		_, err := svc.Recalculate(ctx, uuid.NewString())
		assert.Error(t, err)
	})

	t.Run("one review per user and tour", func(t *testing.T) {
		user := uuid.NewString()
		payload := map[string]any{"review": "Nice", "rating": 4, "tour": tour.ID, "user": user}
		_, err := reviews.Create(ctx, payload)
		require.NoError(t, err)
		_, err = reviews.Create(ctx, payload)
		assert.Error(t, err)
	})
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, model.RatingStats{Quantity: 0, Average: 4.5}, model.Summarize(nil))
	assert.Equal(t, model.RatingStats{Quantity: 2, Average: 4.5}, model.Summarize([]model.Review{{Rating: 4}, {Rating: 5}}))
	assert.Equal(t, model.RatingStats{Quantity: 1, Average: 4.5}, model.Summarize([]model.Review{{Rating: 0}}))
}
