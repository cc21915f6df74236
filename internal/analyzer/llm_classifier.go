package analyzer

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/abhisek/rootcause/internal/llm"
)

// LLMClassifierConfig holds generation settings for LLMClassifier.
type LLMClassifierConfig struct {
	MaxTokens   int
	Temperature float64
}

// DefaultLLMClassifierConfig returns sensible defaults.
func DefaultLLMClassifierConfig() LLMClassifierConfig {
	return LLMClassifierConfig{
		MaxTokens:   256,
		Temperature: 0.2,
	}
}

// LLMClassifier implements Classifier on an llm.Provider.
type LLMClassifier struct {
	provider llm.Provider
	cfg      LLMClassifierConfig
}

// NewLLMClassifier creates a classifier backed by provider.
func NewLLMClassifier(provider llm.Provider, cfg LLMClassifierConfig) *LLMClassifier {
	return &LLMClassifier{provider: provider, cfg: cfg}
}

type classificationOutput struct {
	Outcome         string  `json:"outcome"`
	MisconceptionID *string `json:"misconception_id"`
	Confidence      float64 `json:"confidence"`
	Reasoning       string  `json:"reasoning"`
}

func (c *LLMClassifier) Classify(ctx context.Context, pc ProbeContext, raw string) (Classification, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeClassification)

	userMsg, err := buildClassificationMessage(pc, raw)
	if err != nil {
		return Classification{}, fmt.Errorf("build classification prompt: %w", err)
	}

	resp, err := c.provider.Generate(ctx, llm.Request{
		System:      classificationSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userMsg}},
		Schema:      ClassificationSchema,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return Classification{}, fmt.Errorf("LLM classification failed: %w", err)
	}

	var out classificationOutput
	if err := resp.Decode(&out); err != nil {
		return Classification{}, err
	}

	result := Classification{
		Outcome:    Outcome(out.Outcome),
		Confidence: out.Confidence,
		Source:     "llm:" + c.provider.ModelID(),
		Reasoning:  out.Reasoning,
	}
	if out.MisconceptionID != nil {
		result.MisconceptionID = *out.MisconceptionID
	}
	return result, nil
}

const classificationSystemPrompt = `You are an expert elementary mathematics diagnostician. A learner answered one short probe question targeting a single skill. Decide whether the answer shows the skill is mastered, shows a gap, or cannot be judged.

Instructions:
- "mastered": the answer is correct, or differs only in notation.
- "gap": the answer is wrong in a way that shows the skill is missing.
- "uncertain": the answer is off-topic, ambiguous or unreadable.
- If the outcome is "gap" and the error clearly matches a listed misconception, return its ID; otherwise return null.
- Do NOT invent misconception IDs. Only use IDs from the list provided.
- Keep reasoning to one sentence.`

var classificationUserTemplate = template.Must(template.New("classification").Parse(`Skill: {{.NodeName}} ({{.NodeCode}}, grade {{.Grade}})
{{- if .Description}}
Skill description: {{.Description}}{{end}}
{{- if .Prompt}}
Question: {{.Prompt}}{{end}}
{{- if .ExpectedAnswer}}
Expected answer: {{.ExpectedAnswer}}{{end}}
Learner's answer: {{.Raw}}
{{if .Misconceptions}}
Known misconceptions for this skill:
{{range .Misconceptions}}- {{.ID}}: {{.Description}}{{if .Evidence}} (evidence: {{.Evidence}}){{end}}
{{end}}{{else}}
No known misconceptions are listed for this skill; return null for misconception_id.
{{end}}`))

func buildClassificationMessage(pc ProbeContext, raw string) (string, error) {
	data := struct {
		ProbeContext
		Raw string
	}{pc, raw}

	var buf bytes.Buffer
	if err := classificationUserTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
