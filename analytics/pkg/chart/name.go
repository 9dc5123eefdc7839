package chart

import (
	"strings"

	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
)

// NameGenerator derives chart titles from their dimensions.
type NameGenerator struct{}

func NewNameGenerator() *NameGenerator {
	return &NameGenerator{}
}

// Generate returns the title of c. Dimension labels are joined with " x ".
// A tornado chart split on its third dimension is titled after the split
// value instead: "<Value>: A x B". dims is never modified.
func (g *NameGenerator) Generate(c *Chart, dims *dimension.Collection, lowestDimVal string) string {
	if dims.Len() == 0 {
		return ""
	}
	if c != nil && c.Type == TypeTornado && dims.Len() == dimension.MaxDimensions && lowestDimVal != "" {
		rest, _ := dims.Remove(dims.Len() - 1)
		return dimension.Capitalize(lowestDimVal) + ": " + joinLabels(rest)
	}
	return joinLabels(dims)
}

func joinLabels(dims *dimension.Collection) string {
	labels := make([]string, 0, dims.Len())
	for _, d := range dims.Dimensions() {
		labels = append(labels, d.DisplayLabel())
	}
	return strings.Join(labels, " x ")
}
