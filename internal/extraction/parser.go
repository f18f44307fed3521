package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/example/calendar-assistant/internal/application"
)

const rawPreviewLimit = 500

var (
	// ErrNoJSON is returned when the model response contains no JSON payload.
	ErrNoJSON = errors.New("extraction: no JSON found in response")
	// ErrMalformedJSON is returned when the payload cannot be decoded.
	ErrMalformedJSON = errors.New("extraction: malformed JSON")
	// ErrSchema is returned when the payload does not match the record schema.
	ErrSchema = errors.New("extraction: payload does not match schema")
)

var (
	arrayPattern  = regexp.MustCompile(`(?s)\[.*\]`)
	objectPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

const recordsSchemaURL = "https://calendar-assistant.local/schemas/event-records.json"

// Types only; the summary requirement is enforced by application.ValidateRecords
// so that a missing summary surfaces as a validation error, not a parse error.
const recordsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "summary":     {"type": ["string", "null"]},
      "location":    {"type": ["string", "null"]},
      "description": {"type": ["string", "null"]},
      "start_date":  {"type": ["string", "null"]},
      "start_time":  {"type": ["string", "null"]},
      "end_date":    {"type": ["string", "null"]},
      "end_time":    {"type": ["string", "null"]}
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func recordSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(recordsSchema))
		if err != nil {
			schemaErr = fmt.Errorf("decode record schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(recordsSchemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add record schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(recordsSchemaURL)
	})
	return compiledSchema, schemaErr
}

type wireRecord struct {
	Summary     *string `json:"summary"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
	StartDate   *string `json:"start_date"`
	StartTime   *string `json:"start_time"`
	EndDate     *string `json:"end_date"`
	EndTime     *string `json:"end_time"`
}

// Parse extracts event records from a model response. The response may wrap
// the JSON in prose or code fences. A bare object is accepted as a single
// record.
func Parse(response string) ([]application.EventRecord, error) {
	payload := locatePayload(response)
	if payload == "" {
		return nil, fmt.Errorf("%w\nRaw: %s", ErrNoJSON, preview(response))
	}

	instance, err := jsonschema.UnmarshalJSON(strings.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v\nRaw: %s", ErrMalformedJSON, err, preview(payload))
	}
	if obj, ok := instance.(map[string]any); ok {
		instance = []any{obj}
		payload = "[" + payload + "]"
	}

	schema, err := recordSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %v\nRaw: %s", ErrSchema, err, preview(payload))
	}

	var wire []wireRecord
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v\nRaw: %s", ErrMalformedJSON, err, preview(payload))
	}

	records := make([]application.EventRecord, 0, len(wire))
	for _, w := range wire {
		records = append(records, application.EventRecord{
			Summary:     deref(w.Summary),
			Location:    deref(w.Location),
			Description: deref(w.Description),
			StartDate:   deref(w.StartDate),
			StartTime:   deref(w.StartTime),
			EndDate:     deref(w.EndDate),
			EndTime:     deref(w.EndTime),
		})
	}
	return records, nil
}

// locatePayload prefers an array and falls back to a single object, whichever
// starts first in the response.
func locatePayload(response string) string {
	arr := arrayPattern.FindStringIndex(response)
	obj := objectPattern.FindStringIndex(response)
	switch {
	case arr == nil && obj == nil:
		return ""
	case arr == nil:
		return response[obj[0]:obj[1]]
	case obj == nil || arr[0] < obj[0]:
		return response[arr[0]:arr[1]]
	default:
		return response[obj[0]:obj[1]]
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func preview(value string) string {
	runes := []rune(value)
	if len(runes) <= rawPreviewLimit {
		return value
	}
	return string(runes[:rawPreviewLimit])
}
