package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSMTPClient(t *testing.T) {
	t.Run("cancelled context is not dialed", func(t *testing.T) {
		c := NewSMTPClient("127.0.0.1", 1, "u", "p", "noreply@example.com")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := c.Send(ctx, Message{To: "a@example.com", Subject: "s", Text: "t"})
		require.ErrorIs(t, err, context.Canceled)
	})
}
