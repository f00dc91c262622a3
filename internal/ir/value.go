package ir

import (
	"fmt"
	"strconv"
)

// Comparison is the predicate of a number-valued DimensionValue.
type Comparison string

const (
	Equal            Comparison = "="
	NotEqual         Comparison = "!="
	GreaterThan      Comparison = ">"
	GreaterThanEqual Comparison = ">="
	LessThan         Comparison = "<"
	LessThanEqual    Comparison = "<="
)

// ValidComparisons lists the comparisons accepted on number keys.
var ValidComparisons = map[Comparison]bool{
	Equal:            true,
	NotEqual:         true,
	GreaterThan:      true,
	GreaterThanEqual: true,
	LessThan:         true,
	LessThanEqual:    true,
}

// DimensionValue binds a key to one concrete value, or to a comparison
// predicate for number keys (amount > 500).
//
// DimensionValue is comparable: two values are equal iff key, variant,
// number and comparison are equal. It is safe to use as a map key.
type DimensionValue struct {
	Key        Key        `json:"key"`
	Value      string     `json:"value,omitempty"`      // enum variant or string
	Number     int64      `json:"number,omitempty"`     // number kinds only
	Comparison Comparison `json:"comparison,omitempty"` // number kinds only
}

// EnumValue creates an enum-kind value.
func EnumValue(k Key, variant string) DimensionValue {
	return DimensionValue{Key: k, Value: variant}
}

// StrValue creates a string-kind value.
func StrValue(k Key, s string) DimensionValue {
	return DimensionValue{Key: k, Value: s}
}

// NumberValue creates a number-kind value with a comparison predicate.
func NumberValue(k Key, cmp Comparison, n int64) DimensionValue {
	return DimensionValue{Key: k, Number: n, Comparison: cmp}
}

// IsNumber reports whether the value carries a number predicate.
func (v DimensionValue) IsNumber() bool {
	return v.Comparison != ""
}

// Holds reports whether the concrete number n satisfies the predicate.
// Always false for non-number values.
func (v DimensionValue) Holds(n int64) bool {
	switch v.Comparison {
	case Equal:
		return n == v.Number
	case NotEqual:
		return n != v.Number
	case GreaterThan:
		return n > v.Number
	case GreaterThanEqual:
		return n >= v.Number
	case LessThan:
		return n < v.Number
	case LessThanEqual:
		return n <= v.Number
	default:
		return false
	}
}

// String renders the value as it would appear in a rule: "payment_method = card"
// or "amount > 500".
func (v DimensionValue) String() string {
	if v.IsNumber() {
		return fmt.Sprintf("%s %s %d", v.Key, v.Comparison, v.Number)
	}
	return fmt.Sprintf("%s = %s", v.Key, v.Value)
}

// token is the canonical single-line form used in fingerprints.
func (v DimensionValue) token() string {
	if v.IsNumber() {
		return string(v.Key) + "|" + string(v.Comparison) + "|" + strconv.FormatInt(v.Number, 10)
	}
	return string(v.Key) + "|=|" + v.Value
}
