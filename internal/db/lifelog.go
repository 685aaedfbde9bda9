package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"lifeos/internal/models"
)

// journalMeta is the JSONB shape stored alongside the journal text.
type journalMeta struct {
	Wins         []string `json:"wins"`
	Improvements []string `json:"improvements"`
}

// UpsertHabitEntry logs one habit for one day, creating the habit on first
// use and overwriting an existing entry for the same day.
func (c *Client) UpsertHabitEntry(ctx context.Context, name string, day time.Time, value map[string]any) error {
	var habitID int
	const habitQuery = `
		INSERT INTO habits (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`
	if err := c.pool.QueryRow(ctx, habitQuery, name).Scan(&habitID); err != nil {
		return fmt.Errorf("upsert habit %q: %w", name, err)
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal habit value: %w", err)
	}

	const entryQuery = `
		INSERT INTO habit_entries (habit_id, date, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (habit_id, date) DO UPDATE SET value = EXCLUDED.value
	`
	if _, err := c.pool.Exec(ctx, entryQuery, habitID, day, payload); err != nil {
		return fmt.Errorf("upsert habit entry %q: %w", name, err)
	}
	return nil
}

// HabitEntriesOn returns all habit logs for one day.
func (c *Client) HabitEntriesOn(ctx context.Context, day time.Time) ([]models.HabitEntry, error) {
	const query = `
		SELECT h.name, e.date, e.value
		FROM habit_entries e
		JOIN habits h ON h.id = e.habit_id
		WHERE e.date = $1
		ORDER BY h.name
	`

	rows, err := c.pool.Query(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("list habit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.HabitEntry
	for rows.Next() {
		var (
			e   models.HabitEntry
			raw []byte
		)
		if err := rows.Scan(&e.Habit, &e.Date, &raw); err != nil {
			return nil, fmt.Errorf("scan habit entry: %w", err)
		}
		if err := json.Unmarshal(raw, &e.Value); err != nil {
			return nil, fmt.Errorf("unmarshal habit value: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate habit entries: %w", err)
	}
	return entries, nil
}

// UpsertJournal stores the daily journal, overwriting an existing entry for
// the same day.
func (c *Client) UpsertJournal(ctx context.Context, day time.Time, text string, wins, improvements []string) error {
	meta, err := json.Marshal(journalMeta{Wins: wins, Improvements: improvements})
	if err != nil {
		return fmt.Errorf("marshal journal meta: %w", err)
	}

	const query = `
		INSERT INTO daily_journal (date, text, meta)
		VALUES ($1, $2, $3)
		ON CONFLICT (date) DO UPDATE SET text = EXCLUDED.text, meta = EXCLUDED.meta
	`
	if _, err := c.pool.Exec(ctx, query, day, text, meta); err != nil {
		return fmt.Errorf("upsert journal: %w", err)
	}
	return nil
}

// JournalOn returns the journal for one day, or nil when none exists.
func (c *Client) JournalOn(ctx context.Context, day time.Time) (*models.JournalEntry, error) {
	const query = `SELECT date, coalesce(text, ''), meta FROM daily_journal WHERE date = $1`

	var (
		entry models.JournalEntry
		raw   []byte
	)
	err := c.pool.QueryRow(ctx, query, day).Scan(&entry.Date, &entry.Text, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get journal: %w", err)
	}

	if len(raw) > 0 {
		var meta journalMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("unmarshal journal meta: %w", err)
		}
		entry.Wins = meta.Wins
		entry.Improvements = meta.Improvements
	}
	return &entry, nil
}

// UpsertPlan stores the task list for one day, overwriting an existing plan
// for the same day.
func (c *Client) UpsertPlan(ctx context.Context, day time.Time, tasks []string) error {
	if tasks == nil {
		tasks = []string{}
	}
	payload, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("marshal plan tasks: %w", err)
	}

	const query = `
		INSERT INTO plans (date, tasks)
		VALUES ($1, $2)
		ON CONFLICT (date) DO UPDATE SET tasks = EXCLUDED.tasks
	`
	if _, err := c.pool.Exec(ctx, query, day, payload); err != nil {
		return fmt.Errorf("upsert plan: %w", err)
	}
	return nil
}

// PlanOn returns the plan for one day, or nil when none exists.
func (c *Client) PlanOn(ctx context.Context, day time.Time) (*models.Plan, error) {
	const query = `SELECT date, tasks FROM plans WHERE date = $1`

	var (
		plan models.Plan
		raw  []byte
	)
	err := c.pool.QueryRow(ctx, query, day).Scan(&plan.Date, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}

	if err := json.Unmarshal(raw, &plan.Tasks); err != nil {
		return nil, fmt.Errorf("unmarshal plan tasks: %w", err)
	}
	return &plan, nil
}
