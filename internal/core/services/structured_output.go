package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// maxRepairEcho bounds how much of a rejected answer is echoed into the repair prompt.
const maxRepairEcho = 12000

// ruleSchemaJSON is the response schema sent with every extraction request.
// Operators and thresholds are checked per candidate after parsing, so one bad
// rule never invalidates its batch.
const ruleSchemaJSON = `{
  "type": "object",
  "required": ["rules"],
  "properties": {
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["applies_to", "attribute", "operator", "threshold", "description"],
        "properties": {
          "id": {"type": "string"},
          "applies_to": {"type": "string", "minLength": 1},
          "attribute": {"type": "string", "minLength": 1},
          "operator": {"type": "string"},
          "threshold": {"type": "number"},
          "unit": {"type": "string"},
          "description": {"type": "string"},
          "source_reference": {"type": "string"},
          "tags": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

var ruleSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rules.json", strings.NewReader(ruleSchemaJSON)); err != nil {
		return nil, fmt.Errorf("load rule schema: %w", err)
	}
	return compiler.Compile("rules.json")
})

// extractedRules is the wire shape of an extraction response.
type extractedRules struct {
	Rules []extractedRule `json:"rules"`
}

type extractedRule struct {
	ID              string   `json:"id"`
	AppliesTo       string   `json:"applies_to"`
	Attribute       string   `json:"attribute"`
	Operator        string   `json:"operator"`
	Threshold       float64  `json:"threshold"`
	Unit            string   `json:"unit"`
	Description     string   `json:"description"`
	SourceReference string   `json:"source_reference"`
	Tags            []string `json:"tags"`
}

// decodeRules parses and validates model output against the rule schema.
func decodeRules(content string) (*extractedRules, error) {
	parsed, err := parseStructuredJSON(content)
	if err != nil {
		return nil, err
	}

	schema, err := ruleSchema()
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(parsed, &doc); err != nil {
		return nil, fmt.Errorf("decode structured JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("structured output does not match schema: %w", err)
	}

	var out extractedRules
	if err := json.Unmarshal(parsed, &out); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	return &out, nil
}

// parseStructuredJSON parses JSON from model output, recovering from
// markdown code fences and surrounding prose.
func parseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty structured output")
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	if extracted := extractJSONObject(content); extracted != "" && extracted != content {
		candidates = append(candidates, extracted)
	}

	for _, candidate := range candidates {
		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			return json.Marshal(parsed)
		}
	}
	return nil, fmt.Errorf("output is not valid JSON")
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(content[start : end+1])
}

// repairPrompt fills the repair template with the schema, the rejected
// output and the validation problem.
func repairPrompt(template, lastOutput string, problem error) string {
	lastOutput = strings.TrimSpace(lastOutput)
	if len(lastOutput) > maxRepairEcho {
		lastOutput = lastOutput[:maxRepairEcho] + "\n...[truncated]"
	}
	return fmt.Sprintf(template, ruleSchemaJSON, lastOutput, problem)
}
