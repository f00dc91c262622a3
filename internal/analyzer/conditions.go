package analyzer

import (
	"github.com/roach88/routegraph/internal/ir"
)

// CheckConflictingAssertions fails when a context asserts more than one
// distinct value of the same enum key. A single payment holds exactly one
// value per enum key. Keys are checked in first-seen order and every
// distinct value is listed with the metadata of its first assertion.
func CheckConflictingAssertions(ctx *ir.Context, schema *ir.Schema) error {
	var order []ir.Key
	byKey := make(map[ir.Key][]AssertedValue)

	for _, e := range ctx.Assertions() {
		k := e.Value.Key
		if schema.Kind(k) != ir.EnumKind {
			continue
		}
		vals, seen := byKey[k]
		if !seen {
			order = append(order, k)
		}
		dup := false
		for _, v := range vals {
			if v.Value == e.Value {
				dup = true
				break
			}
		}
		if !dup {
			byKey[k] = append(vals, AssertedValue{Value: e.Value, Metadata: e.Metadata})
		}
	}

	for _, k := range order {
		if vals := byKey[k]; len(vals) > 1 {
			return &ConflictingAssertionsError{Key: k, Values: vals}
		}
	}
	return nil
}

// CheckExhaustiveNegation fails when the negations of a context exclude
// every value in the domain of an enumerable key. Keys without a listable
// domain are skipped.
func CheckExhaustiveNegation(ctx *ir.Context, schema *ir.Schema) error {
	var order []ir.Key
	negated := make(map[ir.Key]map[ir.DimensionValue]bool)
	metas := make(map[ir.Key][]ir.Metadata)

	for _, e := range ctx.Negations() {
		k := e.Key()
		if _, ok := negated[k]; !ok {
			order = append(order, k)
			negated[k] = make(map[ir.DimensionValue]bool)
		}
		for _, v := range e.Values {
			negated[k][v] = true
		}
		metas[k] = append(metas[k], e.Metadata)
	}

	for _, k := range order {
		domain, ok := schema.Domain(k)
		if !ok {
			continue
		}
		remaining := 0
		for _, v := range domain {
			if !negated[k][v] {
				remaining++
			}
		}
		if remaining == 0 {
			return &ExhaustiveNegationError{Key: k, Metadata: metas[k]}
		}
	}
	return nil
}

// CheckNegatedAssertions fails on the first asserted value that a negation
// in the same context excludes. Assertions and negations are scanned in
// insertion order, so the reported value is deterministic.
func CheckNegatedAssertions(ctx *ir.Context) error {
	negations := ctx.Negations()
	for _, a := range ctx.Assertions() {
		for _, n := range negations {
			if n.Key() != a.Value.Key {
				continue
			}
			for _, v := range n.Values {
				if v == a.Value {
					return &NegatedAssertionError{
						Value:             a.Value,
						AssertionMetadata: a.Metadata,
						NegationMetadata:  n.Metadata,
					}
				}
			}
		}
	}
	return nil
}
