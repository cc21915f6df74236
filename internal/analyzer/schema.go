package analyzer

import "github.com/abhisek/rootcause/internal/llm"

// ClassificationSchema is the JSON schema LLM classifications must match.
var ClassificationSchema = &llm.Schema{
	Name:        "response-classification",
	Description: "Verdict on whether a learner's answer shows mastery of one curriculum skill",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"outcome": map[string]any{
				"type":        "string",
				"enum":        []any{"mastered", "gap", "uncertain"},
				"description": "mastered if the answer is correct and shows the skill, gap if it shows the skill is missing, uncertain if the answer cannot be judged",
			},
			"misconception_id": map[string]any{
				"type":        []any{"string", "null"},
				"description": "ID of the matching misconception from the candidate list, or null",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0.0,
				"maximum":     1.0,
				"description": "Confidence in the outcome (0.0-1.0)",
			},
			"reasoning": map[string]any{
				"type":        "string",
				"description": "One sentence explaining the verdict",
			},
		},
		"required":             []any{"outcome", "misconception_id", "confidence", "reasoning"},
		"additionalProperties": false,
	},
}
