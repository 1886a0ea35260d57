package quizgen

import (
	"encoding/json"
	"errors"
	"regexp"
)

// ErrUnparseable means neither the full text nor the largest brace span decoded as a JSON object.
var ErrUnparseable = errors.New("could not parse generated content")

// greedy: first '{' to last '}'
var objectSpan = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractObject decodes a JSON object from model output that may carry surrounding prose.
func ExtractObject(text string) (map[string]any, error) {
	if obj, ok := decodeObject(text); ok {
		return obj, nil
	}
	span := objectSpan.FindString(text)
	if span == "" {
		return nil, ErrUnparseable
	}
	if obj, ok := decodeObject(span); ok {
		return obj, nil
	}
	return nil, ErrUnparseable
}

func decodeObject(text string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}
