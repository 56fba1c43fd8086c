package workflow

import (
	"encoding/json"
)

const FallbackText = "No response"

// Strategy pulls reply text out of a decoded engine response.
type Strategy struct {
	Name    string
	Extract func(body map[string]any) (string, bool)
}

// DefaultStrategies are tried in order; the first non-empty string wins.
var DefaultStrategies = []Strategy{
	{Name: "outputs.results.message.text", Extract: fromResultsMessage},
	{Name: "outputs.messages.message", Extract: fromMessagesList},
	{Name: "result", Extract: fromResultField},
}

const fallbackStrategy = "fallback"

// Extraction is what a run response yields once normalized.
type Extraction struct {
	Text            string
	Strategy        string
	RemoteSessionID string
}

// Extract decodes raw and runs the strategies against it. Bodies that are not
// a JSON object yield FallbackText.
func Extract(raw []byte, strategies []Strategy) Extraction {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		return Extraction{Text: FallbackText, Strategy: fallbackStrategy}
	}
	text, strategy := extractFromMap(body, strategies)
	return Extraction{Text: text, Strategy: strategy, RemoteSessionID: remoteSessionID(body)}
}

func extractFromMap(body map[string]any, strategies []Strategy) (string, string) {
	for _, s := range strategies {
		if text, ok := s.Extract(body); ok {
			return text, s.Name
		}
	}
	return FallbackText, fallbackStrategy
}

// outputs[0].outputs[0].results.message.text
func fromResultsMessage(body map[string]any) (string, bool) {
	inner, ok := firstInnerOutput(body)
	if !ok {
		return "", false
	}
	results, ok := inner["results"].(map[string]any)
	if !ok {
		return "", false
	}
	message, ok := results["message"].(map[string]any)
	if !ok {
		return "", false
	}
	return nonEmptyString(message["text"])
}

// outputs[0].outputs[0].messages[0].message
func fromMessagesList(body map[string]any) (string, bool) {
	inner, ok := firstInnerOutput(body)
	if !ok {
		return "", false
	}
	first, ok := firstObject(inner["messages"])
	if !ok {
		return "", false
	}
	return nonEmptyString(first["message"])
}

func fromResultField(body map[string]any) (string, bool) {
	return nonEmptyString(body["result"])
}

func firstInnerOutput(body map[string]any) (map[string]any, bool) {
	outer, ok := firstObject(body["outputs"])
	if !ok {
		return nil, false
	}
	return firstObject(outer["outputs"])
}

func firstObject(v any) (map[string]any, bool) {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}
	obj, ok := list[0].(map[string]any)
	return obj, ok
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func remoteSessionID(body map[string]any) string {
	if s, ok := body["session_id"].(string); ok {
		return s
	}
	return ""
}
