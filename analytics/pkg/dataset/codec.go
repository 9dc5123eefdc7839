package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/buger/jsonparser"
	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
)

// MarshalJSON encodes the measure tables in their persisted form:
//
//	{"interactions": {"value": 10, "redacted": false,
//	    "US": {"dim:gender:M": {"value": 6, "redacted": false}},
//	    "dim:country:US": {"value": 10, "redacted": false}}, ...}
//
// A facet's breakdown is keyed by its plain value and written before the facet.
// Keys keep tree order.
func (ds *DataSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range Measures {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(&buf, string(m))
		buf.WriteString(`:{"value":`)
		total := ds.Total(m)
		buf.WriteString(strconv.FormatInt(total.Value, 10))
		buf.WriteString(`,"redacted":`)
		buf.WriteString(strconv.FormatBool(total.Redacted))
		for _, f := range ds.Root(m).Facets() {
			buf.WriteByte(',')
			writeFacet(&buf, f)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeNode(buf *bytes.Buffer, n *Node) {
	buf.WriteByte('{')
	for i, f := range n.Facets() {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeFacet(buf, f)
	}
	buf.WriteByte('}')
}

func writeFacet(buf *bytes.Buffer, f Facet) {
	if f.Child.Len() > 0 {
		writeString(buf, f.Key.Value)
		buf.WriteByte(':')
		writeNode(buf, f.Child)
		buf.WriteByte(',')
	}
	writeString(buf, f.Key.String())
	buf.WriteString(`:{"value":`)
	buf.WriteString(strconv.FormatInt(f.Value.Value, 10))
	buf.WriteString(`,"redacted":`)
	buf.WriteString(strconv.FormatBool(f.Value.Redacted))
	buf.WriteByte('}')
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

// Decode rebuilds a DataSet from the form written by MarshalJSON.
func Decode(dims *dimension.Collection, data []byte) (*DataSet, error) {
	totals, nodes, err := decodeMeasures(data)
	if err != nil {
		return nil, err
	}
	return New(dims, totals, nodes), nil
}

// DecodeTimeSeries is Decode for time-series data.
func DecodeTimeSeries(dims *dimension.Collection, interval string, span int, data []byte) (*TimeSeries, error) {
	totals, nodes, err := decodeMeasures(data)
	if err != nil {
		return nil, err
	}
	return NewTimeSeries(dims, interval, span, totals, nodes), nil
}

func decodeMeasures(data []byte) (map[Measure]Value, map[Measure]*Node, error) {
	totals := make(map[Measure]Value, len(Measures))
	nodes := make(map[Measure]*Node, len(Measures))
	for _, m := range Measures {
		raw, dataType, _, err := jsonparser.Get(data, string(m))
		if errors.Is(err, jsonparser.KeyPathNotFoundError) {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read measure %s: %w", m, err)
		}
		if dataType != jsonparser.Object {
			return nil, nil, fmt.Errorf("measure %s: expected object, got %s", m, dataType)
		}
		total, err := decodeValue(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("measure %s: %w", m, err)
		}
		node, err := decodeNode(raw, true)
		if err != nil {
			return nil, nil, fmt.Errorf("measure %s: %w", m, err)
		}
		totals[m] = total
		nodes[m] = node
	}
	return totals, nodes, nil
}

func decodeNode(raw []byte, top bool) (*Node, error) {
	node := NewNode()
	children := make(map[string]*Node)
	err := jsonparser.ObjectEach(raw, func(k, v []byte, dataType jsonparser.ValueType, _ int) error {
		name, err := jsonparser.ParseString(k)
		if err != nil {
			return err
		}
		if top && dataType != jsonparser.Object && (name == "value" || name == "redacted") {
			return nil
		}
		if dataType != jsonparser.Object {
			return fmt.Errorf("key %q: expected object, got %s", name, dataType)
		}
		if key, ok := ParseKey(name); ok {
			value, err := decodeValue(v)
			if err != nil {
				return fmt.Errorf("key %q: %w", name, err)
			}
			node.Add(Facet{Key: key, Value: value})
			return nil
		}
		child, err := decodeNode(v, false)
		if err != nil {
			return fmt.Errorf("key %q: %w", name, err)
		}
		children[name] = child
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, f := range node.Facets() {
		if child, ok := children[f.Key.Value]; ok {
			f.Child = child
			node.Add(f)
		}
	}
	return node, nil
}

func decodeValue(raw []byte) (Value, error) {
	var v Value
	n, err := jsonparser.GetInt(raw, "value")
	if err != nil && !errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return v, fmt.Errorf("invalid value: %w", err)
	}
	r, err := jsonparser.GetBoolean(raw, "redacted")
	if err != nil && !errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return v, fmt.Errorf("invalid redacted flag: %w", err)
	}
	v.Value, v.Redacted = n, r
	return v, nil
}
