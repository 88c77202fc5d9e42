package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// parseStructuredJSON pulls a JSON document out of model output. Models
// without native structured output tend to wrap the JSON in a markdown code
// fence or surrounding prose, so after a direct parse fails the fenced block
// and the outermost brace span are tried in turn.
func parseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty structured output")
	}

	for _, candidate := range []string{content, unfence(content), braceSpan(content)} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
			continue
		}
		normalized, err := json.Marshal(parsed)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize structured output: %w", err)
		}
		return normalized, nil
	}

	return nil, fmt.Errorf("failed to parse structured JSON")
}

// unfence strips a markdown code fence, returning "" when content is not
// fenced.
func unfence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return ""
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return ""
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// braceSpan returns the span from the first opening brace or bracket to the
// last matching closer, or "" when none is found.
func braceSpan(content string) string {
	start := strings.IndexAny(content, "{[")
	if start < 0 {
		return ""
	}
	closer := "}"
	if content[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(content, closer)
	if end < start {
		return ""
	}
	return content[start : end+1]
}

// validateStructuredJSON checks the parsed document against the request's
// response schema. The schema arrives in the {"name","strict","schema":{...}}
// wrapper the extraction prompts use; a bare schema document also works.
func validateStructuredJSON(schemaRaw, parsed json.RawMessage) error {
	if len(schemaRaw) == 0 || len(parsed) == 0 {
		return nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(unwrapSchema(schemaRaw))); err != nil {
		return fmt.Errorf("failed to load structured schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("failed to compile structured schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(parsed, &doc); err != nil {
		return fmt.Errorf("failed to decode structured JSON for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("structured output does not match schema: %w", err)
	}
	return nil
}

// unwrapSchema extracts the inner schema from the json_schema wrapper; an
// unwrapped document comes back unchanged.
func unwrapSchema(schemaRaw json.RawMessage) json.RawMessage {
	var wrapper struct {
		Schema json.RawMessage `json:"schema"`
	}
	if err := json.Unmarshal(schemaRaw, &wrapper); err == nil && len(wrapper.Schema) > 0 {
		return wrapper.Schema
	}
	return schemaRaw
}
