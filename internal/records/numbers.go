package records

import (
	"encoding/json"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// leadingNumber matches the numeric prefix of a string the way a lenient
// float parser does: "12.5kg" yields "12.5".
var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ToFloat coerces v into a finite float64. Anything that is not a number or
// a string starting with one yields 0.
func ToFloat(v any) float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		f = parseLeadingFloat(n.String())
	case string:
		f = parseLeadingFloat(n)
	case []byte:
		f = parseLeadingFloat(string(n))
	case bool:
		return 0
	case *big.Rat:
		// BigQuery NUMERIC
		if n == nil {
			return 0
		}
		f, _ = n.Float64()
	default:
		return 0
	}
	return Finite(f)
}

// Finite maps NaN and ±Inf to 0.
func Finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func parseLeadingFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}
