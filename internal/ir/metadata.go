package ir

import (
	"fmt"
	"strings"
)

// Metadata is free-form provenance attached to assertions, negations and
// graph edges. It explains where a condition came from and never takes part
// in equality or analysis.
type Metadata struct {
	Rule        string `json:"rule,omitempty"`
	File        string `json:"file,omitempty"`
	Line        int    `json:"line,omitempty"`
	Column      int    `json:"column,omitempty"`
	Description string `json:"description,omitempty"`

	// Derived marks entries added by lowering rather than written by the author.
	Derived bool `json:"derived,omitempty"`
}

// IsZero reports whether no provenance was recorded.
func (m Metadata) IsZero() bool {
	return m == Metadata{}
}

// String renders the provenance for error messages, e.g.
// `rule "card_usd" at routing.cue:12:4 (derived)`.
func (m Metadata) String() string {
	var parts []string
	if m.Rule != "" {
		parts = append(parts, fmt.Sprintf("rule %q", m.Rule))
	}
	if m.Line > 0 {
		loc := fmt.Sprintf("%d:%d", m.Line, m.Column)
		if m.File != "" {
			loc = m.File + ":" + loc
		}
		parts = append(parts, "at "+loc)
	}
	if m.Description != "" {
		parts = append(parts, m.Description)
	}
	if m.Derived {
		parts = append(parts, "(derived)")
	}
	if len(parts) == 0 {
		return "<unknown>"
	}
	return strings.Join(parts, " ")
}
