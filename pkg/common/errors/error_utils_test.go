package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("4xx is fail", func(t *testing.T) {
		e := New("nope", 404)
		assert.Equal(t, StatusFail, e.Status)
		assert.True(t, e.IsOperational)
		assert.NotEmpty(t, e.Stack)
	})

	t.Run("5xx is error", func(t *testing.T) {
		assert.Equal(t, StatusError, New("boom", 500).Status)
	})

	t.Run("wrap keeps the cause", func(t *testing.T) {
		cause := errors.New("smtp down")
		e := Wrap(cause, "There was an error sending to the email. Try again later!", 500)
		assert.ErrorIs(t, e, cause)
	})
}

func TestNormalize(t *testing.T) {
	t.Run("plain error becomes a non-operational 500", func(t *testing.T) {
		e := Normalize(errors.New("boom"))
		assert.Equal(t, 500, e.StatusCode)
		assert.Equal(t, StatusError, e.Status)
		assert.False(t, e.IsOperational)
	})

	t.Run("missing status code defaults to 500", func(t *testing.T) {
		e := Normalize(&AppError{Message: "x"})
		assert.Equal(t, 500, e.StatusCode)
		assert.Equal(t, StatusError, e.Status)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, Normalize(nil))
	})
}

func TestForClient(t *testing.T) {
	t.Run("cast error", func(t *testing.T) {
		e := ForClient(&CastError{Path: "id", Value: "wwwww"})
		assert.Equal(t, 400, e.StatusCode)
		assert.Equal(t, "Invalid id: wwwww.", e.Message)
		assert.True(t, e.IsOperational)
	})

	t.Run("duplicate key", func(t *testing.T) {
		e := ForClient(fmt.Errorf("insert: %w", &DuplicateKeyError{Value: `"The Forest Hiker"`}))
		assert.Equal(t, 400, e.StatusCode)
		assert.Equal(t, `Duplicate field value: "The Forest Hiker". Please use another value!`, e.Message)
	})

	t.Run("validation errors are joined", func(t *testing.T) {
		v := &ValidationError{}
		v.Add("name", "A tour must have a name")
		v.Add("price", "A tour must have a price")

		e := ForClient(v.ErrOrNil())
		assert.Equal(t, 400, e.StatusCode)
		assert.Equal(t, "Invalid input data. A tour must have a name. A tour must have a price", e.Message)
	})

	t.Run("token errors", func(t *testing.T) {
		e := ForClient(fmt.Errorf("parse: %w", jwt.ErrTokenExpired))
		assert.Equal(t, 401, e.StatusCode)
		assert.Equal(t, "Your token has expired! Please log in again", e.Message)

		e = ForClient(fmt.Errorf("parse: %w", jwt.ErrTokenSignatureInvalid))
		assert.Equal(t, 401, e.StatusCode)
		assert.Equal(t, "Invalid token. Please log in again", e.Message)
	})

	t.Run("app error passes through", func(t *testing.T) {
		orig := Forbidden("You do not have permission to perform this action.")
		assert.Same(t, orig, ForClient(orig))
	})

	t.Run("unknown error stays non-operational", func(t *testing.T) {
		e := ForClient(errors.New("db exploded"))
		assert.Equal(t, 500, e.StatusCode)
		assert.False(t, e.IsOperational)
	})
}

func TestValidationError(t *testing.T) {
	t.Run("empty is nil", func(t *testing.T) {
		v := &ValidationError{}
		require.NoError(t, v.ErrOrNil())
	})

	t.Run("merge", func(t *testing.T) {
		a := &ValidationError{}
		a.Add("name", "Please tell us your name!")
		b := &ValidationError{}
		b.Add("password", "Please provide a password.")

		a.Merge(b)
		a.Merge(errors.New("ignored"))
		assert.Equal(t, []string{"Please tell us your name!", "Please provide a password."}, a.Messages())
	})
}
