package models

import "time"

// HabitEntry is one habit's log for one day. Value carries the habit's
// free-form payload ({"completed": true}, {"pages": 12, "book": "..."}, ...).
type HabitEntry struct {
	Habit string         `json:"habit"`
	Date  time.Time      `json:"date"`
	Value map[string]any `json:"value"`
}

// JournalEntry is the daily journal: a reflection plus structured wins and
// improvements. One entry per day.
type JournalEntry struct {
	Date         time.Time `json:"date"`
	Text         string    `json:"text"`
	Wins         []string  `json:"wins,omitempty"`
	Improvements []string  `json:"improvements,omitempty"`
}

// Plan is the task list for one day. One plan per day.
type Plan struct {
	Date  time.Time `json:"date"`
	Tasks []string  `json:"tasks"`
}
