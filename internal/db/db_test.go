//go:build integration

// Package db provides integration tests for the Postgres message store.
// Run with: go test -tags integration ./internal/db/...
package db

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"lifeos/internal/models"
)

var testDB *Client

// TestMain sets up and tears down the Postgres container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("lifeos_test"),
		postgres.WithUsername("lifeos"),
		postgres.WithPassword("lifeos"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Fatalf("Failed to start Postgres container: %v", err)
	}

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("Failed to get connection string: %v", err)
	}

	testDB, err = NewClient(ctx, connString, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	testDB.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestInsertAndListMessages(t *testing.T) {
	ctx := context.Background()

	turns := []struct {
		role    models.Role
		content string
	}{
		{models.RoleUser, "good morning"},
		{models.RoleAssistant, "Good morning! How did you sleep?"},
		{models.RoleUser, "pretty well"},
		{models.RoleAssistant, "Great to hear."},
	}
	for _, turn := range turns {
		msg, err := testDB.InsertMessage(ctx, turn.role, turn.content)
		require.NoError(t, err)
		assert.NotEmpty(t, msg.ID)
		assert.False(t, msg.CreatedAt.IsZero())
	}

	t.Run("list is newest first", func(t *testing.T) {
		msgs, err := testDB.ListMessages(ctx, 1, 10)
		require.NoError(t, err)
		require.Len(t, msgs, 4)
		assert.Equal(t, "Great to hear.", msgs[0].Content)
		assert.Equal(t, "good morning", msgs[3].Content)
		for i := 1; i < len(msgs); i++ {
			assert.False(t, msgs[i].CreatedAt.After(msgs[i-1].CreatedAt))
		}
	})

	t.Run("pages do not overlap", func(t *testing.T) {
		first, err := testDB.ListMessages(ctx, 1, 3)
		require.NoError(t, err)
		second, err := testDB.ListMessages(ctx, 2, 3)
		require.NoError(t, err)

		require.Len(t, first, 3)
		require.Len(t, second, 1)
		seen := map[string]struct{}{}
		for _, m := range append(first, second...) {
			_, dup := seen[m.ID]
			require.False(t, dup, "message %s appears on two pages", m.ID)
			seen[m.ID] = struct{}{}
		}
	})

	t.Run("count matches", func(t *testing.T) {
		total, err := testDB.CountMessages(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, total)
	})
}

func TestHabitEntries(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	require.NoError(t, testDB.UpsertHabitEntry(ctx, "exercise", day, map[string]any{"completed": true}))
	require.NoError(t, testDB.UpsertHabitEntry(ctx, "reading", day, map[string]any{"pages": float64(12)}))

	t.Run("same day overwrites", func(t *testing.T) {
		require.NoError(t, testDB.UpsertHabitEntry(ctx, "exercise", day, map[string]any{"completed": false}))

		entries, err := testDB.HabitEntriesOn(ctx, day)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "exercise", entries[0].Habit)
		assert.Equal(t, map[string]any{"completed": false}, entries[0].Value)
		assert.Equal(t, map[string]any{"pages": float64(12)}, entries[1].Value)
	})

	t.Run("other days are empty", func(t *testing.T) {
		entries, err := testDB.HabitEntriesOn(ctx, day.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestJournal(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	require.NoError(t, testDB.UpsertJournal(ctx, day, "Rough draft.", nil, nil))
	require.NoError(t, testDB.UpsertJournal(ctx, day, "Solid day.", []string{"shipped"}, []string{"sleep earlier"}))

	entry, err := testDB.JournalOn(ctx, day)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Solid day.", entry.Text, "second upsert replaces the first")
	assert.Equal(t, []string{"shipped"}, entry.Wins)
	assert.Equal(t, []string{"sleep earlier"}, entry.Improvements)

	missing, err := testDB.JournalOn(ctx, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPlan(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	require.NoError(t, testDB.UpsertPlan(ctx, day, []string{"gym", "write"}))
	require.NoError(t, testDB.UpsertPlan(ctx, day, []string{"gym", "write", "review"}))

	plan, err := testDB.PlanOn(ctx, day)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, []string{"gym", "write", "review"}, plan.Tasks)

	missing, err := testDB.PlanOn(ctx, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Nil(t, missing)
}
