package chart_test

import (
	"testing"

	"github.com/malbeclabs/tornado/analytics/pkg/chart"
	"github.com/malbeclabs/tornado/analytics/pkg/dataset"
	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
	"github.com/stretchr/testify/require"
)

func node(target string, items ...dataset.ResultItem) *dataset.ResultNode {
	return &dataset.ResultNode{Parameters: dataset.Parameters{Target: target}, Results: items}
}

func item(key string, interactions, authors int64, child *dataset.ResultNode) dataset.ResultItem {
	return dataset.ResultItem{Key: dataset.FacetKey(key), Interactions: interactions, UniqueAuthors: authors, Child: child}
}

func redacted(key string) dataset.ResultItem {
	return dataset.ResultItem{Key: dataset.FacetKey(key), Interactions: 999, UniqueAuthors: 999, Redacted: true}
}

func collection(targets ...string) *dimension.Collection {
	dims := make([]*dimension.Dimension, len(targets))
	for i, t := range targets {
		dims[i] = dimension.New(t)
	}
	return dimension.NewCollection(dims...)
}

func build(t *testing.T, typ dataset.Type, dims *dimension.Collection, root *dataset.ResultNode) dataset.Set {
	t.Helper()
	a := &dataset.Analysis{Type: typ, Results: root}
	if typ == dataset.TypeTimeSeries {
		a.Interval, a.Span = "day", 1
	}
	set, err := dataset.NewGenerator().FromAnalyses(dataset.Analyses{a}, dims)
	require.NoError(t, err)
	return set
}

// countryGender is US 10 (M 6, F 4), GB 20 (M 5, F 15) and a redacted FR.
func countryGender(t *testing.T) dataset.Set {
	return build(t, dataset.TypeFrequencyDistribution, collection("country", "gender"), node("country",
		item("US", 10, 5, node("gender", item("M", 6, 3, nil), item("F", 4, 2, nil))),
		item("GB", 20, 12, node("gender", item("M", 5, 4, nil), item("F", 15, 8, nil))),
		redacted("FR"),
	))
}

// countryGenderLastYear is US 5 (M 3, F 2), GB 15 (M 5, F 10).
func countryGenderLastYear(t *testing.T) dataset.Set {
	return build(t, dataset.TypeFrequencyDistribution, collection("country", "gender"), node("country",
		item("US", 5, 3, node("gender", item("M", 3, 2, nil), item("F", 2, 1, nil))),
		item("GB", 15, 9, node("gender", item("M", 5, 3, nil), item("F", 10, 6, nil))),
	))
}

func labelsOf(s chart.Series) []string {
	out := make([]string, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Label
	}
	return out
}

func valuesOf(s chart.Series) []int64 {
	out := make([]int64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

func baselinesOf(s chart.Series) []int64 {
	out := make([]int64, len(s.Points))
	for i, p := range s.Points {
		if p.Baseline != nil {
			out[i] = *p.Baseline
		}
	}
	return out
}

func seriesLabels(ss []chart.Series) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.Label
	}
	return out
}
