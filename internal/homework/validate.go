package homework

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	FieldHomeworks   = "homeworks"
	FieldCurrentDate = "current_date"
	FieldStatus      = "status"
	FieldName        = "homework_name"
)

// Record is one entry of the "homeworks" array. The API returns newest first.
type Record = map[string]any

// Validate checks the decoded response shape and returns the homeworks array
// unchanged. An empty array is valid.
func Validate(payload any) ([]Record, error) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, &ValidationError{Kind: NotAMapping, Got: jsonType(payload)}
	}
	raw, ok := obj[FieldHomeworks]
	if !ok {
		return nil, &ValidationError{Kind: MissingField, Field: FieldHomeworks}
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, &ValidationError{Kind: WrongType, Field: FieldHomeworks, Got: jsonType(raw)}
	}

	out := make([]Record, len(items))
	for i, it := range items {
		// Non-object items stay nil and fail at extraction.
		out[i], _ = it.(map[string]any)
	}
	return out, nil
}

// CurrentDate returns the server time reported in the response.
func CurrentDate(payload any) (int64, bool) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return 0, false
	}
	return asUnix(obj[FieldCurrentDate])
}

// asUnix accepts non-negative whole seconds that fit in int64.
func asUnix(v any) (int64, bool) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return asUnix(n)
		}
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return asUnix(f)
	case float64:
		// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
		if math.IsNaN(x) || x < 0 || x >= math.MaxInt64 || x != math.Trunc(x) {
			return 0, false
		}
		return int64(x), true
	case int:
		return asUnix(int64(x))
	case int64:
		if x < 0 {
			return 0, false
		}
		return x, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, false
		}
		return asUnix(n)
	default:
		return 0, false
	}
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "bool"
	case json.Number, float64, int, int64:
		return "number"
	default:
		return "unknown"
	}
}
