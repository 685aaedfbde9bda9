package transcript_test

import (
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeos/internal/models"
	"lifeos/internal/transcript"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func serverMessage(n int, role models.Role) models.Message {
	return models.Message{
		ID:        fmt.Sprintf("srv-%d", n),
		Role:      role,
		Content:   fmt.Sprintf("message %d", n),
		CreatedAt: time.Date(2026, 1, 1, 0, 0, n, 0, time.UTC),
		State:     models.StateConfirmed,
	}
}

func TestAppendUserMessage(t *testing.T) {
	t.Run("appends user message and pending placeholder", func(t *testing.T) {
		store := transcript.NewStore(testLogger())

		user, err := store.AppendUserMessage("hi")
		require.NoError(t, err)

		msgs := store.Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, models.RoleUser, msgs[0].Role)
		assert.Equal(t, models.StateConfirmed, msgs[0].State)
		assert.Equal(t, "hi", msgs[0].Content)
		assert.Equal(t, user.ID, msgs[0].ID)
		assert.Equal(t, models.RoleAssistant, msgs[1].Role)
		assert.Equal(t, models.StatePending, msgs[1].State)
		assert.True(t, store.Sending())
	})

	t.Run("rejects empty text", func(t *testing.T) {
		store := transcript.NewStore(testLogger())

		_, err := store.AppendUserMessage("   ")
		require.ErrorIs(t, err, transcript.ErrEmptyMessage)
		assert.Zero(t, store.Len())
	})

	t.Run("rejects send while reply is pending", func(t *testing.T) {
		store := transcript.NewStore(testLogger())

		_, err := store.AppendUserMessage("first")
		require.NoError(t, err)

		_, err = store.AppendUserMessage("second")
		require.ErrorIs(t, err, transcript.ErrReplyPending)
		assert.Equal(t, 2, store.Len(), "rejected send must leave the transcript unchanged")
	})

	t.Run("local ids never collide", func(t *testing.T) {
		store := transcript.NewStore(testLogger())

		_, err := store.AppendUserMessage("hi")
		require.NoError(t, err)
		store.ResolvePending("hello")
		_, err = store.AppendUserMessage("again")
		require.NoError(t, err)

		seen := map[string]struct{}{}
		for _, m := range store.Messages() {
			_, dup := seen[m.ID]
			require.False(t, dup, "duplicate id %s", m.ID)
			seen[m.ID] = struct{}{}
		}
	})
}

func TestResolvePending(t *testing.T) {
	t.Run("append then resolve yields confirmed pair", func(t *testing.T) {
		store := transcript.NewStore(testLogger())

		_, err := store.AppendUserMessage("hi")
		require.NoError(t, err)
		store.ResolvePending("hello")

		msgs := store.Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, "hi", msgs[0].Content)
		assert.Equal(t, models.StateConfirmed, msgs[0].State)
		assert.Equal(t, "hello", msgs[1].Content)
		assert.Equal(t, models.StateConfirmed, msgs[1].State)
		assert.False(t, store.Sending())
	})

	t.Run("empty reply gets a readable fallback", func(t *testing.T) {
		store := transcript.NewStore(testLogger())

		_, err := store.AppendUserMessage("hi")
		require.NoError(t, err)
		store.ResolvePending("")

		msgs := store.Messages()
		assert.Equal(t, models.StateConfirmed, msgs[1].State)
		assert.NotEmpty(t, msgs[1].Content)
	})

	t.Run("double resolution is a no-op", func(t *testing.T) {
		store := transcript.NewStore(testLogger())

		_, err := store.AppendUserMessage("hi")
		require.NoError(t, err)
		store.ResolvePending("hello")
		store.ResolvePending("hello again")

		msgs := store.Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, "hello", msgs[1].Content)
	})

	t.Run("error resolution marks the placeholder errored", func(t *testing.T) {
		store := transcript.NewStore(testLogger())

		_, err := store.AppendUserMessage("hi")
		require.NoError(t, err)
		store.ResolvePendingWithError("Failed to send message: timeout")

		msgs := store.Messages()
		require.Len(t, msgs, 2)
		assert.Equal(t, models.StateErrored, msgs[1].State)
		assert.Contains(t, msgs[1].Content, "timeout")
		assert.False(t, store.Sending())
	})
}

func TestPrependHistory(t *testing.T) {
	t.Run("inserts a contiguous prefix", func(t *testing.T) {
		store := transcript.NewStore(testLogger())
		require.NoError(t, store.ReplaceAll([]models.Message{
			serverMessage(3, models.RoleUser),
			serverMessage(4, models.RoleAssistant),
		}))

		err := store.PrependHistory([]models.Message{
			serverMessage(1, models.RoleUser),
			serverMessage(2, models.RoleAssistant),
		})
		require.NoError(t, err)

		msgs := store.Messages()
		require.Len(t, msgs, 4)
		for i, m := range msgs {
			assert.Equal(t, fmt.Sprintf("srv-%d", i+1), m.ID)
		}
	})

	t.Run("stays chronological across repeated prepends", func(t *testing.T) {
		store := transcript.NewStore(testLogger())
		require.NoError(t, store.ReplaceAll([]models.Message{serverMessage(9, models.RoleUser)}))

		for _, batch := range [][]models.Message{
			{serverMessage(7, models.RoleUser), serverMessage(8, models.RoleAssistant)},
			{serverMessage(5, models.RoleUser), serverMessage(6, models.RoleAssistant)},
			{serverMessage(4, models.RoleAssistant)},
		} {
			require.NoError(t, store.PrependHistory(batch))
		}

		msgs := store.Messages()
		require.Len(t, msgs, 6)
		seen := map[string]struct{}{}
		for i := 1; i < len(msgs); i++ {
			assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt), "transcript out of order at %d", i)
		}
		for _, m := range msgs {
			_, dup := seen[m.ID]
			require.False(t, dup)
			seen[m.ID] = struct{}{}
		}
	})

	t.Run("id collision is an invariant violation", func(t *testing.T) {
		store := transcript.NewStore(testLogger())
		require.NoError(t, store.ReplaceAll([]models.Message{serverMessage(2, models.RoleUser)}))

		err := store.PrependHistory([]models.Message{
			serverMessage(1, models.RoleUser),
			serverMessage(2, models.RoleUser),
		})

		var inv *transcript.InvariantError
		require.ErrorAs(t, err, &inv)
		assert.Equal(t, 1, store.Len(), "violating prefix must not be applied")
	})

	t.Run("empty prefix is a no-op", func(t *testing.T) {
		store := transcript.NewStore(testLogger())
		require.NoError(t, store.ReplaceAll([]models.Message{serverMessage(1, models.RoleUser)}))
		require.NoError(t, store.PrependHistory(nil))
		assert.Equal(t, 1, store.Len())
	})
}

func TestOnChange(t *testing.T) {
	store := transcript.NewStore(testLogger())
	var fires int
	store.OnChange(func() { fires++ })

	_, err := store.AppendUserMessage("hi")
	require.NoError(t, err)
	store.ResolvePending("hello")
	require.NoError(t, store.PrependHistory([]models.Message{serverMessage(1, models.RoleUser)}))

	assert.Equal(t, 3, fires)

	_, err = store.AppendUserMessage("")
	require.Error(t, err)
	assert.Equal(t, 3, fires, "rejected mutations must not notify")
}
