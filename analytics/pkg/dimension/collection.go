package dimension

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// MaxDimensions is the number of axes a chart can carry (x, y, z).
const MaxDimensions = 3

var (
	// ErrIncompatibleDimensions is returned when one collection's targets are not
	// contained in another's.
	ErrIncompatibleDimensions = errors.New("incompatible dimensions")
	// ErrTooManyDimensions is returned by consumers that need at most
	// MaxDimensions axes.
	ErrTooManyDimensions = errors.New("too many dimensions")
)

// Ordering selects how Collection.Sorted orders dimensions.
type Ordering int

const (
	// Natural is insertion order.
	Natural Ordering = iota
	// CardinalityAsc puts small cardinalities first; unbounded dimensions sort last.
	CardinalityAsc
	// CardinalityDesc puts unbounded dimensions first, then large cardinalities.
	CardinalityDesc
	TargetAsc
	TargetDesc
	// LastFirst rotates the last inserted dimension to the front.
	LastFirst
)

func (o Ordering) String() string {
	switch o {
	case Natural:
		return "natural"
	case CardinalityAsc:
		return "cardinality_asc"
	case CardinalityDesc:
		return "cardinality_desc"
	case TargetAsc:
		return "target_asc"
	case TargetDesc:
		return "target_desc"
	case LastFirst:
		return "last_first"
	default:
		return fmt.Sprintf("ordering(%d)", int(o))
	}
}

// Collection is an ordered, immutable sequence of dimensions. Position encodes
// the chart axis: first is x, second y, third z. Every modifying method returns
// a new Collection and leaves the receiver untouched.
type Collection struct {
	dims []*Dimension
}

// NewCollection returns a collection holding dims in the given order.
func NewCollection(dims ...*Dimension) *Collection {
	return &Collection{dims: slices.Clone(dims)}
}

// CheckAxes fails with ErrTooManyDimensions when c has more than MaxDimensions.
func (c *Collection) CheckAxes() error {
	if n := c.Len(); n > MaxDimensions {
		return fmt.Errorf("%w: %d given, at most %d allowed", ErrTooManyDimensions, n, MaxDimensions)
	}
	return nil
}

func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.dims)
}

// At returns the dimension at index i, or nil when i is out of range.
func (c *Collection) At(i int) *Dimension {
	if i < 0 || i >= c.Len() {
		return nil
	}
	return c.dims[i]
}

// Last returns the last dimension, or nil for an empty collection.
func (c *Collection) Last() *Dimension {
	return c.At(c.Len() - 1)
}

// Dimensions returns the dimensions in insertion order.
func (c *Collection) Dimensions() []*Dimension {
	if c == nil {
		return nil
	}
	return slices.Clone(c.dims)
}

// Get returns the dimension for target.
func (c *Collection) Get(target string) (*Dimension, bool) {
	if c == nil {
		return nil, false
	}
	for _, d := range c.dims {
		if d.target == target {
			return d, true
		}
	}
	return nil, false
}

func (c *Collection) Has(target string) bool {
	_, ok := c.Get(target)
	return ok
}

// Index returns the position of target, or -1.
func (c *Collection) Index(target string) int {
	if c == nil {
		return -1
	}
	return slices.IndexFunc(c.dims, func(d *Dimension) bool { return d.target == target })
}

// Targets returns the targets in insertion order.
func (c *Collection) Targets() []string {
	targets := make([]string, 0, c.Len())
	for _, d := range c.Dimensions() {
		targets = append(targets, d.target)
	}
	return targets
}

// CSV is the comma-separated target list used for persistence.
func (c *Collection) CSV() string {
	return strings.Join(c.Targets(), ",")
}

func (c *Collection) String() string {
	return "[" + c.CSV() + "]"
}

// Sorted returns the dimensions in the requested order. Ties keep insertion order.
func (c *Collection) Sorted(o Ordering) []*Dimension {
	dims := c.Dimensions()
	switch o {
	case CardinalityAsc:
		slices.SortStableFunc(dims, func(a, b *Dimension) int {
			return compareCardinality(a, b)
		})
	case CardinalityDesc:
		slices.SortStableFunc(dims, func(a, b *Dimension) int {
			return compareCardinality(b, a)
		})
	case TargetAsc:
		slices.SortStableFunc(dims, func(a, b *Dimension) int {
			return strings.Compare(a.target, b.target)
		})
	case TargetDesc:
		slices.SortStableFunc(dims, func(a, b *Dimension) int {
			return strings.Compare(b.target, a.target)
		})
	case LastFirst:
		if n := len(dims); n > 1 {
			dims = append([]*Dimension{dims[n-1]}, dims[:n-1]...)
		}
	}
	return dims
}

// compareCardinality orders bounded cardinalities ascending and treats a
// missing cardinality as larger than any bounded one.
func compareCardinality(a, b *Dimension) int {
	ac, aok := a.Cardinality()
	bc, bok := b.Cardinality()
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	case ac < bc:
		return -1
	case ac > bc:
		return 1
	default:
		return 0
	}
}

// IsSame reports whether both collections hold exactly the same targets, in any order.
func (c *Collection) IsSame(other *Collection) bool {
	return c.Len() == other.Len() && c.IsSubset(other) && other.IsSubset(c)
}

// IsSubset reports whether every target in c also exists in other.
func (c *Collection) IsSubset(other *Collection) bool {
	for _, d := range c.Dimensions() {
		if !other.Has(d.target) {
			return false
		}
	}
	return true
}

// OrderedSubset returns the dimensions of other whose targets appear in c, in
// other's order. It fails with ErrIncompatibleDimensions when c is not a subset
// of other.
func (c *Collection) OrderedSubset(other *Collection) (*Collection, error) {
	if !c.IsSubset(other) {
		return nil, fmt.Errorf("%w: %s is not a subset of %s", ErrIncompatibleDimensions, c, other)
	}
	dims := make([]*Dimension, 0, c.Len())
	for _, d := range other.Dimensions() {
		if c.Has(d.target) {
			dims = append(dims, d)
		}
	}
	return &Collection{dims: dims}, nil
}

// Add returns a new collection with d appended.
func (c *Collection) Add(d *Dimension) *Collection {
	return &Collection{dims: append(c.Dimensions(), d)}
}

// Remove returns a new collection without the dimension at index. For an
// out-of-range index it returns the receiver unchanged and false.
func (c *Collection) Remove(index int) (*Collection, bool) {
	if index < 0 || index >= c.Len() {
		return c, false
	}
	return &Collection{dims: slices.Delete(c.Dimensions(), index, index+1)}, true
}

// Clone returns a collection sharing the same dimensions.
func (c *Collection) Clone() *Collection {
	return &Collection{dims: c.Dimensions()}
}
