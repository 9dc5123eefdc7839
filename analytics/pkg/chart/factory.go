package chart

import (
	"fmt"

	"github.com/malbeclabs/tornado/analytics/pkg/dataset"
	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
)

type FactoryConfig struct {
	// HistogramOrder is the histogram row order. Defaults to SortSize.
	HistogramOrder SortOrder
	// PermissiveTimeSeries allows comparing time series with different spans.
	PermissiveTimeSeries bool
}

func (cfg *FactoryConfig) Validate() error {
	order, err := ParseSortOrder(string(cfg.HistogramOrder))
	if err != nil {
		return err
	}
	cfg.HistogramOrder = order
	return nil
}

// Factory dispatches to the generator for a chart type. All generators share
// one NameGenerator.
type Factory struct {
	names      *NameGenerator
	generators map[Type]Generator
}

func NewFactory(cfg FactoryConfig) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chart factory config: %w", err)
	}
	names := NewNameGenerator()
	f := &Factory{
		names:      names,
		generators: make(map[Type]Generator, len(Types)),
	}
	for _, g := range []Generator{
		NewTornado(names),
		NewHistogram(names, cfg.HistogramOrder),
		NewTimeSeries(names, cfg.PermissiveTimeSeries),
	} {
		f.generators[g.Type()] = g
	}
	return f, nil
}

// Names returns the NameGenerator shared by the factory's generators.
func (f *Factory) Names() *NameGenerator {
	return f.names
}

// Generator returns the generator for t.
func (f *Factory) Generator(t Type) (Generator, error) {
	g, ok := f.generators[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChartType, t)
	}
	return g, nil
}

// FromDataSet builds the charts of type t. An unknown type fails with
// ErrUnknownChartType, which wraps ErrInvalidArgument.
func (f *Factory) FromDataSet(t Type, dims *dimension.Collection, primary, secondary dataset.Set, mode Mode) ([]*Chart, error) {
	g, err := f.Generator(t)
	if err != nil {
		return nil, err
	}
	return g.FromDataSet(dims, primary, secondary, mode)
}
