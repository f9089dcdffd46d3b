// Package ai drafts journal entries from natural-language business events.
// Drafts are proposals only: they go through the same validation as any other entry.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"accounting-core/internal/core"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
	"github.com/rs/zerolog"
)

// Drafter turns a described business event into a proposed journal entry or a clarification request.
type Drafter interface {
	DraftJournal(ctx context.Context, event string, chart *core.Chart, today time.Time) (*core.AgentResponse, error)
}

type Agent struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

func NewAgent(apiKey, model string, log zerolog.Logger) *Agent {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = string(shared.ChatModelGPT4o)
	}
	return &Agent{client: &client, model: model, log: log}
}

func (a *Agent) DraftJournal(ctx context.Context, event string, chart *core.Chart, today time.Time) (*core.AgentResponse, error) {
	if strings.TrimSpace(event) == "" {
		return nil, errors.New("event description is empty")
	}

	schemaMap, err := responseSchema()
	if err != nil {
		return nil, err
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(a.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(buildPrompt(event, chart, today)),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "journal_entry_draft",
					Schema:      schemaMap,
					Description: param.NewOpt("A proposed double-entry journal entry or a request for clarification"),
				},
			},
		},
	}

	resp, err := a.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}
	a.log.Debug().Str("model", a.model).Int("bytes", len(content)).Msg("draft received")

	return decodeResponse(content)
}

func buildPrompt(event string, chart *core.Chart, today time.Time) string {
	return fmt.Sprintf(`You are an expert accountant.
Your goal is to interpret a business event described in natural language and propose a double-entry journal entry.
Rules:
1. Use ONLY account codes from the Chart of Accounts below.
2. Debits MUST equal Credits.
3. Amounts must be positive decimal strings with two places (e.g. "100.00").
4. Use YYYY-MM-DD for the transaction date. Today is %s.
5. Provide a confidence score (0.0-1.0) and explain your reasoning.
6. If the event lacks an amount or cannot be mapped to the accounts, ask for clarification instead.

Chart of Accounts:
%s

Event: %s`, today.Format("2006-01-02"), formatChart(chart), event)
}

func formatChart(chart *core.Chart) string {
	if chart == nil {
		return ""
	}
	var b strings.Builder
	for _, acc := range chart.Accounts() {
		fmt.Fprintf(&b, "- %s %s (%s)\n", acc.Code, acc.Name, acc.Type)
	}
	return b.String()
}

// decodeResponse parses the model output and rejects responses that carry neither branch.
func decodeResponse(content string) (*core.AgentResponse, error) {
	var response core.AgentResponse
	if err := json.Unmarshal([]byte(content), &response); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}

	if response.IsClarificationRequest {
		if response.Clarification == nil || strings.TrimSpace(response.Clarification.Message) == "" {
			return nil, errors.New("clarification requested without a message")
		}
		response.Proposal = nil
		return &response, nil
	}
	if response.Proposal == nil || len(response.Proposal.Lines) == 0 {
		return nil, errors.New("response contains no journal lines")
	}
	response.Proposal.Normalize()
	return &response, nil
}

func responseSchema() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemaJSON, err := json.Marshal(reflector.Reflect(&core.AgentResponse{}))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}
	return schemaMap, nil
}
