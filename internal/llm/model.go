// Package llm wraps langchaingo reply generation for the chat server.
// Replies are produced by a tool-calling loop: the model can log habits,
// journal entries, and plans, and pull recent context, before answering.
package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"lifeos/internal/config"
)

// maxToolRounds caps the tool-calling loop for one reply.
const maxToolRounds = 5

// Model wraps a langchaingo LLM plus the tools it may call.
type Model struct {
	llm          llms.Model
	log          LifeLog
	modelName    string
	knowledgeDir string
}

// NewModel creates an LLM model based on configuration. The tools write to
// and read from log.
func NewModel(ctx context.Context, cfg config.Config, log LifeLog) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderGoogle:
		if cfg.GoogleAPIKey == "" {
			return nil, fmt.Errorf("Google API key required")
		}
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.GoogleAPIKey),
			googleai.WithDefaultModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create google model: %w", err)
		}

	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Model{
		llm:          model,
		log:          log,
		modelName:    cfg.LLMModel,
		knowledgeDir: cfg.KnowledgeDir,
	}, nil
}

// systemPrompt combines the base prompt with the knowledge files. Read per
// reply so edits to the knowledge directory take effect without a restart.
func (m *Model) systemPrompt() string {
	return loadSystemPrompt(m.knowledgeDir) + loadKnowledge(m.knowledgeDir)
}

// Reply generates an assistant reply for a user message, executing tool
// calls until the model produces a final answer.
func (m *Model) Reply(ctx context.Context, message string) (string, error) {
	history := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, m.systemPrompt()),
		llms.TextParts(llms.ChatMessageTypeHuman, message),
	}

	for round := 0; round < maxToolRounds; round++ {
		response, err := m.llm.GenerateContent(ctx, history, llms.WithTools(toolDefs))
		if err != nil {
			return "", fmt.Errorf("generate reply: %w", err)
		}
		if len(response.Choices) == 0 {
			return "", fmt.Errorf("no response choices")
		}

		choice := response.Choices[0]
		if len(choice.ToolCalls) == 0 {
			return choice.Content, nil
		}

		assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		for _, call := range choice.ToolCalls {
			assistant.Parts = append(assistant.Parts, call)
		}
		history = append(history, assistant)

		for _, call := range choice.ToolCalls {
			history = append(history, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: call.ID,
					Name:       call.FunctionCall.Name,
					Content:    m.runTool(ctx, call),
				}},
			})
		}
	}

	return "", fmt.Errorf("no final answer after %d tool rounds", maxToolRounds)
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}
