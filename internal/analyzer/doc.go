// Package analyzer proves a lowered routing program free of contradictory
// or unreachable rule paths before it is ever executed.
//
// An Enumerator walks the program and yields one ir.Context per path from
// a rule root to a leaf statement. Each context is checked, in order, for
// conflicting assertions, exhaustive negation and values that are both
// asserted and negated; optionally every asserted value and output
// connector is also checked against a knowledge graph. Analyze stops at
// the first failing context.
//
// Analysis is pure: the same program always produces the same result.
package analyzer
