// internal/evaluation/judge.go
package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/mwiater/pdfrag/internal/providers"
	"github.com/mwiater/pdfrag/internal/util"
)

const judgeSchema = `{
  "type": "object",
  "required": ["relevance", "accuracy", "completeness", "clarity"],
  "properties": {
    "relevance":    {"type": "number", "minimum": 1, "maximum": 5},
    "accuracy":     {"type": "number", "minimum": 1, "maximum": 5},
    "completeness": {"type": "number", "minimum": 1, "maximum": 5},
    "clarity":      {"type": "number", "minimum": 1, "maximum": 5},
    "explanation":  {"type": "string"}
  }
}`

const judgeTemplate = `
You are an expert evaluator. Please evaluate the following Q&A based on the given context.

Question: %s
Answer: %s
Context: %s...

Please rate the answer on a scale of 1-5 for each criterion:
1. Relevance: How well does the answer address the question?
2. Accuracy: Is the answer factually correct based on the context?
3. Completeness: Does the answer fully address the question?
4. Clarity: Is the answer clear and well-structured?

Respond in JSON format:
{"relevance": <score>, "accuracy": <score>, "completeness": <score>, "clarity": <score>, "explanation": "<brief explanation>"}
`

// ErrNoJudgeClient is the error text recorded when no provider is configured.
const ErrNoJudgeClient = "LLM client not available"

// Judge rates answers with an LLM. A nil provider yields error scores.
type Judge struct {
	provider     providers.CompletionProvider
	model        string
	maxTokens    int
	contextChars int
	schema       *gojsonschema.Schema
}

// NewJudge compiles the response schema. provider may be nil.
func NewJudge(provider providers.CompletionProvider, model string, maxTokens, contextChars int) (*Judge, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(judgeSchema))
	if err != nil {
		return nil, fmt.Errorf("compile judge schema: %w", err)
	}
	if maxTokens <= 0 {
		maxTokens = 300
	}
	if contextChars <= 0 {
		contextChars = 1000
	}
	return &Judge{provider: provider, model: model, maxTokens: maxTokens, contextChars: contextChars, schema: schema}, nil
}

// JudgePrompt renders the rating prompt with the context cut to contextChars.
func JudgePrompt(question, answer, context string, contextChars int) string {
	return fmt.Sprintf(judgeTemplate, question, answer, util.HeadRunes(context, contextChars))
}

// Score never fails; problems are reported in JudgeScores.Error.
func (j *Judge) Score(ctx context.Context, question, answer, context string) JudgeScores {
	if j == nil || j.provider == nil {
		return JudgeScores{Error: ErrNoJudgeClient}
	}
	out, err := j.provider.Complete(ctx, providers.CompletionRequest{
		Model:       j.model,
		Messages:    []providers.ChatMessage{{Role: "user", Content: JudgePrompt(question, answer, context, j.contextChars)}},
		Temperature: 0.1,
		MaxTokens:   j.maxTokens,
	})
	if err != nil {
		return JudgeScores{Error: fmt.Sprintf("LLM evaluation failed: %v", err)}
	}
	return j.parse(out.Text)
}

func (j *Judge) parse(text string) JudgeScores {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return JudgeScores{Error: "Could not parse LLM response", RawResponse: text}
	}
	payload := text[start : end+1]

	var doc any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return JudgeScores{Error: fmt.Sprintf("Could not parse LLM response: %v", err), RawResponse: text}
	}
	result, err := j.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return JudgeScores{Error: fmt.Sprintf("schema validation error: %v", err), RawResponse: text}
	}
	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return JudgeScores{Error: "judge response failed validation: " + strings.Join(details, "; "), RawResponse: text}
	}

	var scores JudgeScores
	if err := json.Unmarshal([]byte(payload), &scores); err != nil {
		return JudgeScores{Error: fmt.Sprintf("Could not parse LLM response: %v", err), RawResponse: text}
	}
	scores.Error, scores.RawResponse = "", ""
	return scores
}
