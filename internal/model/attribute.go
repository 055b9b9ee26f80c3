package model

import "strings"

// SourcedValue is one (source name, raw value) pair contributing to an
// Attribute.
type SourcedValue struct {
	Source string `json:"source"`
	Value  string `json:"value"`
}

// Attribute is a named product attribute with the full set of contributing
// source values and the resolved value elected among them.
//
// The resolved value is always one of the contributed values, never
// synthesized: the most frequent raw value wins, ties broken by insertion
// order of the first contributing source.
type Attribute struct {
	Name     string         `json:"name"`
	Value    string         `json:"value"`
	Sourced  []SourcedValue `json:"sourced,omitempty"`
}

// AddSource records one source's raw value. A repeated report from the same
// source replaces that source's previous value instead of double-counting
// it. The resolved value is re-elected after every change.
func (a *Attribute) AddSource(source, value string) {
	source = strings.TrimSpace(source)
	value = strings.TrimSpace(value)
	if a == nil || source == "" || value == "" {
		return
	}

	replaced := false
	for i := range a.Sourced {
		if a.Sourced[i].Source == source {
			a.Sourced[i].Value = value
			replaced = true
			break
		}
	}
	if !replaced {
		a.Sourced = append(a.Sourced, SourcedValue{Source: source, Value: value})
	}

	a.Value = a.resolve()
}

// resolve elects the most frequent raw value. Counting walks the sourced
// list in insertion order, so an earlier value wins a tie.
func (a *Attribute) resolve() string {
	if len(a.Sourced) == 0 {
		return ""
	}

	counts := make(map[string]int, len(a.Sourced))
	best := ""
	bestCount := 0
	for _, sv := range a.Sourced {
		counts[sv.Value]++
		if counts[sv.Value] > bestCount {
			best = sv.Value
			bestCount = counts[sv.Value]
		}
	}
	return best
}

// Sources returns the names of all sources that contributed the given raw
// value.
func (a *Attribute) Sources(value string) []string {
	if a == nil {
		return nil
	}
	names := make([]string, 0, len(a.Sourced))
	for _, sv := range a.Sourced {
		if sv.Value == value {
			names = append(names, sv.Source)
		}
	}
	return names
}
