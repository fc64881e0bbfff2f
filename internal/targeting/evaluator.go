// Package targeting evaluates the optional JSON Logic (jsonlogic.com)
// expression a feature or property may carry as a gate in front of its
// targeting rules.
package targeting

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/diegoholiveira/jsonlogic/v3"

	"github.com/TimurManjosov/configship/pkg/values"
)

// ErrInvalidExpression is returned when an expression is not valid JSON Logic.
var ErrInvalidExpression = errors.New("invalid expression: not valid JSON Logic")

// ErrEmptyExpression is returned when an expression is empty or whitespace.
var ErrEmptyExpression = errors.New("invalid expression: empty or whitespace")

// Evaluate applies a JSON Logic expression to an entity's typed attributes.
// The entity id, when non-empty, is visible to the expression as the "id"
// variable. The result follows JSON Logic truthiness.
func Evaluate(expression, entityID string, attrs map[string]values.Value) (bool, error) {
	if strings.TrimSpace(expression) == "" {
		return false, ErrEmptyExpression
	}

	data := make(map[string]any, len(attrs)+1)
	for name, v := range attrs {
		data[name] = v.Interface()
	}
	if entityID != "" {
		data["id"] = entityID
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return false, err
	}

	var out bytes.Buffer
	if err := jsonlogic.Apply(strings.NewReader(expression), bytes.NewReader(encoded), &out); err != nil {
		return false, ErrInvalidExpression
	}

	var result any
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		return false, err
	}
	return truthy(result), nil
}

// ValidateExpression reports whether an expression is usable as a gate.
// Snapshot construction calls this so a broken expression is rejected when
// the payload is built, never discovered mid-evaluation.
func ValidateExpression(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return ErrEmptyExpression
	}
	if !json.Valid([]byte(expression)) {
		return ErrInvalidExpression
	}

	// A dry run against empty data catches rules the engine cannot apply.
	var out bytes.Buffer
	if err := jsonlogic.Apply(strings.NewReader(expression), strings.NewReader("{}"), &out); err != nil {
		return ErrInvalidExpression
	}
	return nil
}

// truthy maps a JSON Logic result onto a bool the way JavaScript would:
// zero, empty and null are false, everything else is true.
func truthy(v any) bool {
	switch r := v.(type) {
	case nil:
		return false
	case bool:
		return r
	case float64:
		return r != 0
	case int:
		return r != 0
	case string:
		return r != ""
	case []any:
		return len(r) > 0
	case map[string]any:
		return len(r) > 0
	}
	return true
}
