package flow

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/jmespath/go-jmespath"
)

// EvalAny returns the raw value selected by the JMESPath expression.
// It is safe to pass any decoded JSON (map[string]any, []any, etc.)
// It will return nil and no error if the expression does not match anything.
func EvalAny(expression string, payload map[string]any) (any, error) {
	v, err := jmespath.Search(expression, payload)
	if err != nil {
		return nil, fmt.Errorf("jmespath: %w", err)
	}
	return v, nil
}

// EvalString coerces the selection to string. Numbers are printed without exponent so chat and
// user ids survive a float64 round trip; other values are JSON-encoded.
func EvalString(expression string, payload map[string]any) (*string, error) {
	v, err := EvalAny(expression, payload)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("jmespath: encode selection: %w", err)
		}
		s = string(b)
	}
	return &s, nil
}

// evalField is EvalString with the absent case folded into "".
func evalField(expression string, payload map[string]any) (string, error) {
	v, err := EvalString(expression, payload)
	if err != nil || v == nil {
		return "", err
	}
	return *v, nil
}
