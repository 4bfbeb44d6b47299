package completion

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// ExtractBlock returns the span from the first "{" to the last "}" of reply.
// Surrounding prose and markdown fences are dropped.
func ExtractBlock(reply string) (string, error) {
	start := strings.Index(reply, "{")
	if start < 0 {
		return "", ErrNoJSON
	}
	end := strings.LastIndex(reply, "}")
	if end < start {
		return "", ErrNoJSON
	}

	span := reply[start : end+1]
	var v any
	if err := json.Unmarshal([]byte(span), &v); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return span, nil
}

// ValidateJSON reports whether text is syntactically valid JSON.
func ValidateJSON(text string) bool {
	return json.Valid([]byte(text))
}
