package dimension

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownTarget is returned when a target is not defined in the schema.
var ErrUnknownTarget = errors.New("unknown target")

// TargetDefinition is one schema entry.
type TargetDefinition struct {
	Target      string `yaml:"target"`
	Label       string `yaml:"label,omitempty"`
	Cardinality *int   `yaml:"cardinality,omitempty"`
	Threshold   *int   `yaml:"threshold,omitempty"`
}

// Schema is the set of targets dimensions can be built from.
type Schema struct {
	targets map[string]TargetDefinition
	order   []string
}

type schemaFile struct {
	Targets []TargetDefinition `yaml:"targets"`
}

// NewSchema builds a schema from definitions. Duplicate targets are rejected.
func NewSchema(defs ...TargetDefinition) (*Schema, error) {
	s := &Schema{targets: make(map[string]TargetDefinition, len(defs))}
	for _, def := range defs {
		if def.Target == "" {
			return nil, errors.New("schema: target is required")
		}
		if _, ok := s.targets[def.Target]; ok {
			return nil, fmt.Errorf("schema: duplicate target %q", def.Target)
		}
		s.targets[def.Target] = def
		s.order = append(s.order, def.Target)
	}
	return s, nil
}

// ReadSchema decodes a YAML schema:
//
//	targets:
//	  - target: fb.author.gender
//	    label: gender
//	    cardinality: 2
func ReadSchema(r io.Reader) (*Schema, error) {
	var f schemaFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return NewSchema()
		}
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}
	return NewSchema(f.Targets...)
}

// LoadSchema reads a YAML schema from path.
func LoadSchema(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema: %w", err)
	}
	defer f.Close()
	return ReadSchema(f)
}

// Targets returns the defined targets in file order.
func (s *Schema) Targets() []string {
	return append([]string(nil), s.order...)
}

// Dimension builds a fresh dimension for target.
func (s *Schema) Dimension(target string) (*Dimension, error) {
	def, ok := s.targets[target]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
	var opts []Option
	if def.Label != "" {
		opts = append(opts, WithLabel(def.Label))
	}
	if def.Cardinality != nil {
		opts = append(opts, WithCardinality(*def.Cardinality))
	}
	if def.Threshold != nil {
		opts = append(opts, WithThreshold(*def.Threshold))
	}
	return New(def.Target, opts...), nil
}

// Collection builds a collection from targets, in order.
func (s *Schema) Collection(targets ...string) (*Collection, error) {
	dims := make([]*Dimension, 0, len(targets))
	for _, t := range targets {
		d, err := s.Dimension(t)
		if err != nil {
			return nil, err
		}
		dims = append(dims, d)
	}
	return NewCollection(dims...), nil
}

// ParseTargets splits the persisted comma-separated target list.
func ParseTargets(csv string) []string {
	var targets []string
	for _, t := range strings.Split(csv, ",") {
		if t = strings.TrimSpace(t); t != "" {
			targets = append(targets, t)
		}
	}
	return targets
}
