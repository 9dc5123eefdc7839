package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Analysis is one result returned by the upstream analysis service.
type Analysis struct {
	Type          Type        `json:"type"`
	Interval      string      `json:"interval,omitempty"`
	Span          int         `json:"span,omitempty"`
	Interactions  int64       `json:"interactions"`
	UniqueAuthors int64       `json:"unique_authors"`
	Results       *ResultNode `json:"results"`
}

// Analyses is an ordered collection of analysis results.
type Analyses []*Analysis

// First returns the first analysis, or nil.
func (a Analyses) First() *Analysis {
	if len(a) == 0 {
		return nil
	}
	return a[0]
}

// ResultNode is one level of the recursive result tree.
type ResultNode struct {
	Parameters Parameters   `json:"parameters"`
	Redacted   bool         `json:"redacted"`
	Results    []ResultItem `json:"results"`
}

// Parameters echo the request that produced a node.
type Parameters struct {
	Target    string `json:"target"`
	Threshold int    `json:"threshold,omitempty"`
	Interval  string `json:"interval,omitempty"`
	Span      int    `json:"span,omitempty"`
}

// ResultItem is one facet of a node. Child, when present, breaks the facet
// down by a further target.
type ResultItem struct {
	Key           FacetKey    `json:"key"`
	Interactions  int64       `json:"interactions"`
	UniqueAuthors int64       `json:"unique_authors"`
	Redacted      bool        `json:"redacted"`
	Child         *ResultNode `json:"child,omitempty"`
}

// FacetKey is a facet value. The service sends strings for frequency
// distributions and numbers (unix seconds) for time series.
type FacetKey string

func (k *FacetKey) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*k = FacetKey(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("facet key must be a string or number: %w", err)
	}
	*k = FacetKey(n.String())
	return nil
}

// ParseAnalyses decodes a JSON array of analyses.
func ParseAnalyses(b []byte) (Analyses, error) {
	var a Analyses
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("failed to decode analyses: %w", err)
	}
	return a, nil
}
