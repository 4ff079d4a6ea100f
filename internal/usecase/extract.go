package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"ScoutNewsletter/internal/domain"
)

// ExtractJSON isolates the structured-data span of a noisy model response:
// everything from the first '{' to the last '}'.
func ExtractJSON(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, domain.ErrEmptyResponse)
	}

	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first == -1 || last == -1 || last < first {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, domain.ErrNoJSONObject)
	}

	return text[first : last+1], nil
}

// ParseCandidate decodes an extracted span into a raw candidate object.
func ParseCandidate(span string) (map[string]any, error) {
	var candidate map[string]any
	if err := json.Unmarshal([]byte(span), &candidate); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", domain.ErrGeneration, domain.ErrMalformedJSON, err)
	}
	if candidate == nil {
		return nil, fmt.Errorf("%w: %w: null object", domain.ErrGeneration, domain.ErrMalformedJSON)
	}
	return candidate, nil
}
