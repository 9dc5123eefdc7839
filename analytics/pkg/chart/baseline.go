package chart

import (
	"math"
	"strings"

	"github.com/malbeclabs/tornado/analytics/pkg/dataset"
)

// Baseline rescales each series of baseline to the population of the series
// with the same key in data, so both can be read on the same scale.
//
// For every key present in both, each baseline value is multiplied by
// sum(data[key]) / sum(baseline[key]) and rounded half away from zero. A
// baseline series with zero population becomes all zeros. Series only in
// baseline are copied unchanged; series only in data are not added.
//
// The inputs are not modified.
func Baseline(data, baseline map[string]map[string]int64) map[string]map[string]int64 {
	out := make(map[string]map[string]int64, len(baseline))
	for key, series := range baseline {
		rows, ok := data[key]
		if !ok {
			out[key] = copyRow(series)
			continue
		}

		dataPopulation := sum(rows)
		baselinePopulation := sum(series)

		scaled := make(map[string]int64, len(series))
		for label, v := range series {
			if baselinePopulation == 0 {
				scaled[label] = 0
				continue
			}
			ratio := float64(dataPopulation) / float64(baselinePopulation)
			scaled[label] = int64(math.Round(float64(v) * ratio))
		}
		out[key] = scaled
	}
	return out
}

func sum(series map[string]int64) int64 {
	var total int64
	for _, v := range series {
		total += v
	}
	return total
}

func copyRow(series map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(series))
	for k, v := range series {
		out[k] = v
	}
	return out
}

// StripDimension returns the facet value of a "dim:<target>:<value>" key.
// Anything else is returned unchanged.
func StripDimension(key string) string {
	k, ok := dataset.ParseKey(key)
	if !ok {
		return key
	}
	return k.Value
}

// TargetFromDimension returns the target of a "dim:<target>:<value>" key.
// Anything else is returned unchanged.
func TargetFromDimension(key string) string {
	k, ok := dataset.ParseKey(key)
	if !ok {
		return key
	}
	return k.Target
}

// seriesLabel joins the wire form of keys. A series with no facets of its own
// is labelled by the x dimension with an empty value, e.g. "dim:country:".
func seriesLabel(keys []dataset.Key, x string) string {
	if len(keys) == 0 {
		return dataset.Key{Target: x}.String()
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, ",")
}
