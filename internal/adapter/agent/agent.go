package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tdnguyen/library-desk/internal/core/domain"
)

// maxToolTurns bounds the tool-use loop for one user turn.
const maxToolTurns = 8

const defaultMaxTokens = 1024

// Anthropic answers a user turn with the Messages API, running tool
// calls against the catalog until the model produces plain text.
//
// Invariant: a tool_use block and its tool_result stay adjacent in the
// conversation sent back to the model.
type Anthropic struct {
	client anthropic.Client
	model  anthropic.Model
	system string
	tools  []ToolDefinition
}

// NewAnthropic builds the adapter. The API key is read from the env by
// the SDK; extra options are for tests.
func NewAnthropic(model, systemPrompt string, tools []ToolDefinition, opts ...option.RequestOption) *Anthropic {
	return &Anthropic{
		client: anthropic.NewClient(opts...),
		model:  anthropic.Model(model),
		system: systemPrompt,
		tools:  tools,
	}
}

func (a *Anthropic) Reply(ctx context.Context, sessionID string, history []domain.Message, message string) (string, error) {
	conv := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, m := range history {
		switch m.Role {
		case domain.RoleUser:
			conv = append(conv, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case domain.RoleAssistant:
			conv = append(conv, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	conv = append(conv, anthropic.NewUserMessage(anthropic.NewTextBlock(message)))

	for turn := 0; turn < maxToolTurns; turn++ {
		msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     a.model,
			MaxTokens: defaultMaxTokens,
			System:    []anthropic.TextBlockParam{{Text: a.system}},
			Messages:  conv,
			Tools:     a.anthropicTools(),
		})
		if err != nil {
			return "", fmt.Errorf("messages api: %w", err)
		}
		conv = append(conv, msg.ToParam())

		var text strings.Builder
		var toolResults []anthropic.ContentBlockParamUnion
		for _, block := range msg.Content {
			switch v := block.AsAny().(type) {
			case anthropic.TextBlock:
				if v.Text != "" {
					if text.Len() > 0 {
						text.WriteString("\n")
					}
					text.WriteString(v.Text)
				}
			case anthropic.ToolUseBlock:
				input := json.RawMessage(v.JSON.Input.Raw())
				toolResults = append(toolResults, a.execTool(ctx, sessionID, v.ID, v.Name, input))
			}
		}
		if len(toolResults) == 0 {
			return text.String(), nil
		}
		// Tool results go back to the model as a user message.
		conv = append(conv, anthropic.NewUserMessage(toolResults...))
	}
	return "", fmt.Errorf("tool loop did not settle after %d turns", maxToolTurns)
}

func (a *Anthropic) anthropicTools() []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(a.tools))
	for _, t := range a.tools {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: t.InputSchema,
		}})
	}
	return out
}

func (a *Anthropic) execTool(ctx context.Context, sessionID, id, name string, input json.RawMessage) anthropic.ContentBlockParamUnion {
	for i := range a.tools {
		if a.tools[i].Name != name {
			continue
		}
		out, err := a.tools[i].Function(ctx, sessionID, input)
		if err != nil {
			return anthropic.NewToolResultBlock(id, err.Error(), true)
		}
		return anthropic.NewToolResultBlock(id, out, false)
	}
	return anthropic.NewToolResultBlock(id, "tool not found: "+name, true)
}
