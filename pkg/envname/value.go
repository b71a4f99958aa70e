package envname

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
)

// ErrInvalidShape is returned when a secret value cannot be represented as a
// single environment variable, i.e. it is a JSON object or array.
var ErrInvalidShape = errors.New("value cannot be represented as an environment variable")

// CoerceScalar renders a decoded JSON scalar as environment variable text.
// Strings pass through unchanged, booleans render as "true"/"false", numbers
// keep their canonical decimal form (integers without a trailing ".0"), and
// null renders as the literal string "null". Objects and arrays fail with
// ErrInvalidShape: no recursive flattening is performed.
func CoerceScalar(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "null", nil
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case json.Number:
		return val.String(), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		return "", errors.Wrapf(ErrInvalidShape, "unsupported value of type %T", v)
	}
}
