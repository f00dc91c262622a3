package ir

// Logic selects how a directed comparison combines its values.
type Logic int

const (
	// Positive comparisons require one of the listed values (OR).
	Positive Logic = iota + 1

	// Negative comparisons exclude every listed value.
	Negative
)

// String returns the logic name used in diagnostics.
func (l Logic) String() string {
	switch l {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	default:
		return "unknown"
	}
}

// DirComparison is one lowered condition. All values share one key.
type DirComparison struct {
	Values   []DimensionValue `json:"values"`
	Logic    Logic            `json:"logic"`
	Metadata Metadata         `json:"metadata"`
}

// DirIfStatement is a block guarded by the conjunction of its conditions.
// A statement without nested statements is a rule leaf.
type DirIfStatement struct {
	Condition []DirComparison `json:"condition"`
	Nested    []DirIfStatement `json:"nested,omitempty"`
}

// OutputKind names the shape of a rule's connector selection.
type OutputKind string

const (
	OutputPriority            OutputKind = "priority"
	OutputVolumeSplit         OutputKind = "volume_split"
	OutputVolumeSplitPriority OutputKind = "volume_split_priority"
)

// VolumeSplit routes Weight percent of traffic to one connector.
type VolumeSplit struct {
	Connector DimensionValue `json:"connector"`
	Weight    int            `json:"weight"`
}

// VolumeSplitPriority routes Weight percent of traffic to an ordered list.
type VolumeSplitPriority struct {
	Connectors []DimensionValue `json:"connectors"`
	Weight     int              `json:"weight"`
}

// DirOutput is the terminal connector selection of a rule.
type DirOutput struct {
	Kind            OutputKind            `json:"kind"`
	Priority        []DimensionValue      `json:"priority,omitempty"`
	VolumeSplit     []VolumeSplit         `json:"volume_split,omitempty"`
	SplitPriorities []VolumeSplitPriority `json:"split_priorities,omitempty"`
}

// Connectors returns every connector the output can select, deduplicated,
// in first-mention order.
func (o DirOutput) Connectors() []DimensionValue {
	seen := make(map[DimensionValue]bool)
	var out []DimensionValue
	add := func(v DimensionValue) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, c := range o.Priority {
		add(c)
	}
	for _, s := range o.VolumeSplit {
		add(s.Connector)
	}
	for _, sp := range o.SplitPriorities {
		for _, c := range sp.Connectors {
			add(c)
		}
	}
	return out
}

// DirRule is a named rule in directed form.
type DirRule struct {
	Name       string           `json:"name"`
	Output     DirOutput        `json:"output"`
	Statements []DirIfStatement `json:"statements"`
	Metadata   Metadata         `json:"metadata"`
}

// Program is a lowered routing program. Rules keep their authored order.
type Program struct {
	Name     string            `json:"name"`
	Default  DirOutput         `json:"default"`
	Rules    []DirRule         `json:"rules"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
