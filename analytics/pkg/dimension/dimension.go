// Package dimension describes the facets a measurement is grouped by and the
// ordering and set algebra used to line up collections of them.
package dimension

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Dimension is one axis of analysis, identified by its target (e.g. "fb.author.country").
type Dimension struct {
	target      string
	cardinality *int
	label       string
	threshold   *int
}

// Option configures a Dimension at construction time.
type Option func(*Dimension)

// WithCardinality sets the number of distinct facet values the target can take.
func WithCardinality(n int) Option {
	return func(d *Dimension) {
		d.cardinality = &n
	}
}

// WithLabel sets a human-readable label.
func WithLabel(label string) Option {
	return func(d *Dimension) {
		d.label = label
	}
}

// WithThreshold sets the minimum facet count the upstream service reports.
func WithThreshold(n int) Option {
	return func(d *Dimension) {
		d.threshold = &n
	}
}

// New creates a Dimension for target.
func New(target string, opts ...Option) *Dimension {
	d := &Dimension{target: target}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dimension) Target() string {
	return d.target
}

// Cardinality returns the cardinality and whether it is bounded.
func (d *Dimension) Cardinality() (int, bool) {
	if d.cardinality == nil {
		return 0, false
	}
	return *d.cardinality, true
}

func (d *Dimension) Label() string {
	return d.label
}

func (d *Dimension) HasLabel() bool {
	return d.label != ""
}

func (d *Dimension) Threshold() (int, bool) {
	if d.threshold == nil {
		return 0, false
	}
	return *d.threshold, true
}

// SetThreshold overrides the threshold. It is the only mutable field.
func (d *Dimension) SetThreshold(n int) {
	d.threshold = &n
}

// DisplayLabel is the capitalized label, or the raw target when no label is set.
func (d *Dimension) DisplayLabel() string {
	if d.HasLabel() {
		return Capitalize(d.label)
	}
	return d.target
}

// Capitalize upper-cases the first character of s and leaves the rest alone.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	upper := unicode.ToUpper(r)
	if upper == r {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 1)
	b.WriteRune(upper)
	b.WriteString(s[size:])
	return b.String()
}
