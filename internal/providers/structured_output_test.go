package providers

import (
	"encoding/json"
	"testing"
)

func TestParseStructuredJSON(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain object", input: `{"a": 1}`, want: `{"a":1}`},
		{name: "code fence", input: "```json\n{\"a\": 1}\n```", want: `{"a":1}`},
		{name: "fence without language", input: "```\n[1, 2]\n```", want: `[1,2]`},
		{name: "surrounding prose", input: "Here you go:\n{\"a\": 1}\nDone.", want: `{"a":1}`},
		{name: "empty", input: "", wantErr: true},
		{name: "no json at all", input: "I could not extract anything.", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseStructuredJSON(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseStructuredJSON: %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestValidateStructuredJSON(t *testing.T) {
	wrapped := json.RawMessage(`{
		"name": "toc",
		"schema": {
			"type": "object",
			"properties": {
				"chapters": {"type": "array", "items": {"type": "object"}}
			},
			"required": ["chapters"]
		}
	}`)

	if err := validateStructuredJSON(wrapped, json.RawMessage(`{"chapters": []}`)); err != nil {
		t.Errorf("valid doc rejected: %v", err)
	}
	if err := validateStructuredJSON(wrapped, json.RawMessage(`{"chapters": "nope"}`)); err == nil {
		t.Error("invalid doc accepted")
	}

	// Bare schema document without a wrapper.
	bare := json.RawMessage(`{"type": "object", "required": ["x"]}`)
	if err := validateStructuredJSON(bare, json.RawMessage(`{}`)); err == nil {
		t.Error("missing required property accepted")
	}

	// Empty schema means nothing to validate.
	if err := validateStructuredJSON(nil, json.RawMessage(`{}`)); err != nil {
		t.Errorf("nil schema should validate: %v", err)
	}
}
