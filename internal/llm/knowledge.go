package llm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// knowledgeFiles are injected into the system prompt, in this order, when
// present in the knowledge directory.
var knowledgeFiles = []string{
	"GOAL.md",
	"DAILY_REVIEW_TEMPLATE.md",
	"CORE_PRINCIPLES_PROTOCOL.md",
	"IDENTITY.md",
}

const fallbackSystemPrompt = `You are the LifeOS assistant. You help the user reflect on their journal,
habits, and plans, and answer questions about their day. Be concise and friendly.
Format answers in Markdown where structure helps.`

// loadSystemPrompt reads SYSTEM_PROMPT.md from the knowledge directory,
// falling back to a built-in prompt when the file is missing.
func loadSystemPrompt(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "SYSTEM_PROMPT.md"))
	if err != nil {
		return fallbackSystemPrompt
	}
	return strings.TrimSpace(string(data))
}

// loadKnowledge concatenates the knowledge files, each under a filename
// header. Missing files are skipped; an empty directory yields "".
func loadKnowledge(dir string) string {
	var sections []string
	for _, name := range knowledgeFiles {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		sections = append(sections, fmt.Sprintf("--- %s ---\n%s\n", name, string(data)))
	}
	if len(sections) == 0 {
		return ""
	}
	return "\n\n" + strings.Join(sections, "\n")
}
