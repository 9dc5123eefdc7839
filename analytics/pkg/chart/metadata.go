package chart

import (
	"math"
	"strconv"
	"strings"

	"github.com/malbeclabs/tornado/analytics/pkg/dataset"
	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
)

// Tooltip formats the hover text of a point.
//
// In baseline mode it is the relative difference to the baseline as a
// percentage, or "0%" against a zero baseline. In compare mode it is the
// comparison value. Without a baseline it is the value itself.
func Tooltip(mode Mode, value int64, baseline *int64) string {
	if baseline == nil {
		return strconv.FormatInt(value, 10)
	}
	if mode != ModeBaseline {
		return strconv.FormatInt(*baseline, 10)
	}
	if *baseline == 0 {
		return "0%"
	}
	pct := math.Round((float64(value)/float64(*baseline) - 1) * 100)
	return strconv.FormatInt(int64(pct), 10) + "%"
}

// Explore describes the analyses a user can open from a point: one for the
// whole facet combination and, when there is more than one facet, one per
// facet. Entries are keyed by the capitalized facet values joined with ", ".
func Explore(facets []dataset.Key) map[string]map[string]string {
	out := make(map[string]map[string]string, len(facets)+1)
	if len(facets) == 0 {
		return out
	}

	labels := make([]string, len(facets))
	scope := make(map[string]string, len(facets))
	for i, f := range facets {
		labels[i] = dimension.Capitalize(f.Value)
		scope[f.Target] = f.Value
	}
	out[strings.Join(labels, ", ")] = scope

	if len(facets) > 1 {
		for i, f := range facets {
			out[labels[i]] = map[string]string{f.Target: f.Value}
		}
	}
	return out
}
