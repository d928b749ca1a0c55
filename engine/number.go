package engine

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is an optional float64. The zero value is missing.
type Number struct {
	v     float64
	valid bool
}

// Some wraps a present value. NaN and ±Inf are treated as missing.
func Some(v float64) Number {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{}
	}
	return Number{v: v, valid: true}
}

// None returns a missing value.
func None() Number { return Number{} }

// Get returns the value and whether it is present.
func (n Number) Get() (float64, bool) { return n.v, n.valid }

// Valid reports whether the value is present.
func (n Number) Valid() bool { return n.valid }

// Or returns the value, or def when missing.
func (n Number) Or(def float64) float64 {
	if !n.valid {
		return def
	}
	return n.v
}

// Format renders the value with the given precision, or missing when absent.
func (n Number) Format(prec int, missing string) string {
	if !n.valid {
		return missing
	}
	if n.v == math.Trunc(n.v) && math.Abs(n.v) < 1e15 {
		return strconv.FormatInt(int64(n.v), 10)
	}
	return strconv.FormatFloat(n.v, 'f', prec, 64)
}

func (n Number) String() string { return n.Format(2, "NA") }

// MarshalJSON encodes missing as null.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.v)
}

// UnmarshalJSON accepts a number or null.
func (n *Number) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = None()
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Some(v)
	return nil
}

// missingTokens are cell values read as "no value".
var missingTokens = map[string]bool{
	"": true, "na": true, "n/a": true, "nan": true, "null": true, "none": true, "-": true,
}

// ParseNumber parses a cell. Blank, NA-like or malformed cells are missing.
// Thousands separators are accepted only in well-formed groups ("1,234.5");
// "1,2" and "3,,4" are missing.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	if missingTokens[strings.ToLower(s)] {
		return None()
	}
	if strings.Contains(s, ",") {
		if !groupedThousands(s) {
			return None()
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return None()
	}
	return Some(v)
}

// groupedThousands reports whether the integer part of s is 1-3 digits
// followed by comma-separated groups of exactly 3, with no commas after it.
func groupedThousands(s string) bool {
	s = strings.TrimLeft(s, "+-")
	intPart, rest := s, ""
	if i := strings.IndexAny(s, ".eE"); i >= 0 {
		intPart, rest = s[:i], s[i:]
	}
	if strings.Contains(rest, ",") {
		return false
	}
	groups := strings.Split(intPart, ",")
	if len(groups[0]) < 1 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	for _, g := range groups {
		for _, r := range g {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

// IsMissingToken reports whether s is read as a missing cell.
func IsMissingToken(s string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(s))]
}
