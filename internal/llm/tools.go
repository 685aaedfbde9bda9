package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"lifeos/internal/models"
)

// contextMessageLimit is how many recent messages get_context includes.
const contextMessageLimit = 20

// LifeLog is the storage surface the assistant's tools operate on.
// *db.Client implements it.
type LifeLog interface {
	ListMessages(ctx context.Context, page, limit int) ([]models.Message, error)
	UpsertHabitEntry(ctx context.Context, name string, day time.Time, value map[string]any) error
	HabitEntriesOn(ctx context.Context, day time.Time) ([]models.HabitEntry, error)
	UpsertJournal(ctx context.Context, day time.Time, text string, wins, improvements []string) error
	JournalOn(ctx context.Context, day time.Time) (*models.JournalEntry, error)
	UpsertPlan(ctx context.Context, day time.Time, tasks []string) error
	PlanOn(ctx context.Context, day time.Time) (*models.Plan, error)
}

// toolDefs declares the assistant's tools in the wire schema the provider
// expects.
var toolDefs = []llms.Tool{
	{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name: "save_habits",
			Description: `Store today's habit log. Each key is a habit name; values may be a
boolean, or an object like {"pages": 12, "book": "Atomic Habits"}.`,
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"habits": map[string]any{
						"type":        "object",
						"description": "habit name to value",
					},
				},
				"required": []string{"habits"},
			},
		},
	},
	{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        "save_journal",
			Description: "Save today's journal entry: a short reflection plus wins and improvements.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text":         map[string]any{"type": "string"},
					"wins":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"improvements": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"text"},
			},
		},
	},
	{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        "get_context",
			Description: "Returns the last messages, today's habits, today's journal, and yesterday's plan.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	},
	{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        "save_tomorrow_plan",
			Description: "Save the task list for tomorrow.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"tasks": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"tasks"},
			},
		},
	},
}

// runTool executes one tool call. Failures are reported as tool output so the
// model can recover in conversation instead of aborting the reply.
func (m *Model) runTool(ctx context.Context, call llms.ToolCall) string {
	if m.log == nil {
		return "Error: no storage available"
	}
	name := call.FunctionCall.Name
	args := call.FunctionCall.Arguments

	switch name {
	case "save_habits":
		return m.saveHabits(ctx, args)
	case "save_journal":
		return m.saveJournal(ctx, args)
	case "get_context":
		return m.getContext(ctx)
	case "save_tomorrow_plan":
		return m.saveTomorrowPlan(ctx, args)
	default:
		return fmt.Sprintf("Error: unknown tool %q", name)
	}
}

func (m *Model) saveHabits(ctx context.Context, args string) string {
	var in struct {
		Habits map[string]any `json:"habits"`
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return fmt.Sprintf("Error saving habits: %v", err)
	}

	today := time.Now().Truncate(24 * time.Hour)
	var logged []string
	for habit, value := range in.Habits {
		// Normalize scalar payloads into an object.
		var entry map[string]any
		switch v := value.(type) {
		case bool:
			entry = map[string]any{"completed": v}
		case map[string]any:
			entry = v
		default:
			entry = map[string]any{"value": v}
		}

		if err := m.log.UpsertHabitEntry(ctx, habit, today, entry); err != nil {
			return fmt.Sprintf("Error saving habits: %v", err)
		}
		logged = append(logged, habit)
	}
	return fmt.Sprintf("Habits saved: %s", strings.Join(logged, ", "))
}

func (m *Model) saveJournal(ctx context.Context, args string) string {
	var in struct {
		Text         string   `json:"text"`
		Wins         []string `json:"wins"`
		Improvements []string `json:"improvements"`
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return fmt.Sprintf("Error saving journal: %v", err)
	}

	today := time.Now().Truncate(24 * time.Hour)
	if err := m.log.UpsertJournal(ctx, today, in.Text, in.Wins, in.Improvements); err != nil {
		return fmt.Sprintf("Error saving journal: %v", err)
	}
	return "Journal entry saved."
}

func (m *Model) getContext(ctx context.Context) string {
	today := time.Now().Truncate(24 * time.Hour)
	yesterday := today.AddDate(0, 0, -1)

	msgs, err := m.log.ListMessages(ctx, 1, contextMessageLimit)
	if err != nil {
		return fmt.Sprintf("Error retrieving context: %v", err)
	}
	var lines []string
	for _, msg := range msgs {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}

	habits, err := m.log.HabitEntriesOn(ctx, today)
	if err != nil {
		return fmt.Sprintf("Error retrieving context: %v", err)
	}
	var habitLines []string
	for _, h := range habits {
		habitLines = append(habitLines, fmt.Sprintf("%s: %v", h.Habit, h.Value))
	}

	journal, err := m.log.JournalOn(ctx, today)
	if err != nil {
		return fmt.Sprintf("Error retrieving context: %v", err)
	}
	journalStr := "None"
	if journal != nil {
		journalStr = fmt.Sprintf("%s (wins: %v, improvements: %v)", journal.Text, journal.Wins, journal.Improvements)
	}

	plan, err := m.log.PlanOn(ctx, yesterday)
	if err != nil {
		return fmt.Sprintf("Error retrieving context: %v", err)
	}
	planStr := "None"
	if plan != nil {
		planStr = strings.Join(plan.Tasks, "; ")
	}

	return fmt.Sprintf(`Context:
--- Last Messages ---
%s

--- Today's Habits ---
%s

--- Today's Journal ---
%s

--- Yesterday's Plan ---
%s
`, strings.Join(lines, "\n"), strings.Join(habitLines, "\n"), journalStr, planStr)
}

func (m *Model) saveTomorrowPlan(ctx context.Context, args string) string {
	var in struct {
		Tasks []string `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return fmt.Sprintf("Error saving plan: %v", err)
	}

	tomorrow := time.Now().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	if err := m.log.UpsertPlan(ctx, tomorrow, in.Tasks); err != nil {
		return fmt.Sprintf("Error saving plan: %v", err)
	}
	return fmt.Sprintf("Plan for %s saved with %d tasks.", tomorrow.Format("2006-01-02"), len(in.Tasks))
}
