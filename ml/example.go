package ml

import (
	"fmt"
)

// Feature is a named numeric input to the learner.
type Feature struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Namespace groups features that the learner hashes with the same seed.
type Namespace struct {
	Group    byte      `json:"group"`
	Name     string    `json:"name"`
	Features []Feature `json:"features"`
}

// Label returns the namespace as the learner sees it: feature group followed by name.
func (n Namespace) Label() string {
	return string(n.Group) + n.Name
}

// Example is the learner input built from one record.
type Example struct {
	Label      *float64    `json:"label,omitempty"`
	Namespaces []Namespace `json:"namespaces"`
}

// Labelled reports whether the example carries a label and can be learned from.
func (e Example) Labelled() bool {
	return e.Label != nil
}

// FeatureCount returns the number of features over all namespaces.
func (e Example) FeatureCount() int {
	count := 0
	for _, ns := range e.Namespaces {
		count += len(ns.Features)
	}
	return count
}

// HashedFeature is a feature resolved to its hash.
type HashedFeature struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	// Index is the full 32-bit feature hash. vw masks it to its -b bits and
	// scales it by its weight stride before it addresses a weight.
	Index uint32  `json:"index"`
	Value float64 `json:"value"`
}

// Indices resolves every feature to its unmasked feature hash.
func (e Example) Indices(h Hasher) []HashedFeature {
	hashed := make([]HashedFeature, 0, e.FeatureCount())
	for _, ns := range e.Namespaces {
		nsHash := h.HashSpace(ns.Label())
		for _, f := range ns.Features {
			hashed = append(hashed, HashedFeature{
				Namespace: ns.Label(),
				Name:      f.Name,
				Index:     h.HashFeature(f.Name, nsHash),
				Value:     f.Value,
			})
		}
	}
	return hashed
}

// ExampleBuilder assembles one Example from records of a schema. It is single use:
// Build and Close both release it, and Close may be deferred on every path.
type ExampleBuilder[T any] struct {
	schema     *Schema[T]
	namespaces []Namespace
	index      map[string]int
	label      *float64
	closed     bool
}

// NewBuilder returns an empty builder for the schema.
func (s *Schema[T]) NewBuilder() *ExampleBuilder[T] {
	return &ExampleBuilder[T]{
		schema: s,
		index:  make(map[string]int),
	}
}

// Add extracts every declared field of record. Fields sharing a namespace are merged
// in declaration order.
func (b *ExampleBuilder[T]) Add(record T) error {
	if b.closed {
		return ErrBuilderClosed
	}
	for _, field := range b.schema.fields {
		features, err := field.Extract(record)
		if err != nil {
			return fmt.Errorf("extract %s: %w", field.Name, err)
		}
		ns := b.namespace(field.Group, field.Namespace)
		ns.Features = append(ns.Features, features...)
	}
	return nil
}

// ApplyLabel sets the training label.
func (b *ExampleBuilder[T]) ApplyLabel(label float64) error {
	if b.closed {
		return ErrBuilderClosed
	}
	b.label = &label
	return nil
}

// Build returns the assembled example and closes the builder.
func (b *ExampleBuilder[T]) Build() (Example, error) {
	if b.closed {
		return Example{}, ErrBuilderClosed
	}
	example := Example{
		Label:      b.label,
		Namespaces: b.namespaces,
	}
	b.release()
	return example, nil
}

// Close releases the builder. It is a no-op after Build.
func (b *ExampleBuilder[T]) Close() error {
	b.release()
	return nil
}

func (b *ExampleBuilder[T]) release() {
	b.closed = true
	b.namespaces = nil
	b.index = nil
	b.label = nil
}

func (b *ExampleBuilder[T]) namespace(group byte, name string) *Namespace {
	key := string(group) + name
	if i, ok := b.index[key]; ok {
		return &b.namespaces[i]
	}
	b.namespaces = append(b.namespaces, Namespace{Group: group, Name: name})
	b.index[key] = len(b.namespaces) - 1
	return &b.namespaces[len(b.namespaces)-1]
}
