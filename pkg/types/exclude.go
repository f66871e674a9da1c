package types

import (
	"encoding/json"
	"fmt"
)

// PageRange is an inclusive [Lo, Hi] range of page ids.
type PageRange struct {
	Lo int64
	Hi int64
}

// Contains reports whether id falls within the inclusive range.
func (r PageRange) Contains(id int64) bool {
	return id >= r.Lo && id <= r.Hi
}

// ExcludeEntry is either a single page id or an inclusive range, as spec §3
// describes for a rule/breakpoint's exclude list: "a list of IDs or
// inclusive [lo, hi] ranges."
type ExcludeEntry struct {
	ID    *int64
	Range *PageRange
}

// Matches reports whether id is excluded by this entry.
func (e ExcludeEntry) Matches(id int64) bool {
	if e.ID != nil {
		return *e.ID == id
	}
	if e.Range != nil {
		return e.Range.Contains(id)
	}
	return false
}

// UnmarshalJSON accepts either a bare number (a single id) or a two-element
// array [lo, hi] (an inclusive range).
func (e *ExcludeEntry) UnmarshalJSON(data []byte) error {
	var id int64
	if err := json.Unmarshal(data, &id); err == nil {
		e.ID = &id
		return nil
	}

	var pair [2]int64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("exclude entry must be a page id or a [lo, hi] pair: %w", err)
	}
	e.Range = &PageRange{Lo: pair[0], Hi: pair[1]}
	return nil
}

// MarshalJSON emits the entry back in whichever of the two shapes it holds.
func (e ExcludeEntry) MarshalJSON() ([]byte, error) {
	if e.Range != nil {
		return json.Marshal([2]int64{e.Range.Lo, e.Range.Hi})
	}
	if e.ID != nil {
		return json.Marshal(*e.ID)
	}
	return json.Marshal(nil)
}

// ExcludeList is a set of page ids/ranges vetoing a rule or breakpoint.
type ExcludeList []ExcludeEntry

// Contains reports whether id is excluded by any entry in the list.
func (l ExcludeList) Contains(id int64) bool {
	for _, e := range l {
		if e.Matches(id) {
			return true
		}
	}
	return false
}

// Constraint is the {min, max, exclude} triple shared by split rules and
// breakpoints: it restricts the rule to a page-id range and vetoes specific
// pages within it.
type Constraint struct {
	Min     *int64      `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *int64      `json:"max,omitempty" yaml:"max,omitempty"`
	Exclude ExcludeList `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// Admits reports whether the constraint admits the given page id: id falls
// within [Min, Max] (an absent bound is unconstrained on that side) and is
// not individually excluded.
func (c Constraint) Admits(id int64) bool {
	if c.Min != nil && id < *c.Min {
		return false
	}
	if c.Max != nil && id > *c.Max {
		return false
	}
	if c.Exclude.Contains(id) {
		return false
	}
	return true
}

// Unconstrained reports whether the constraint has no min/max bound, i.e.
// it would admit the first page of any sequence. Used to decide whether the
// implicit leading segment (content before the first split point) survives.
func (c Constraint) Unconstrained() bool {
	return c.Min == nil && c.Max == nil
}
