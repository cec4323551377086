package ml

import (
	"fmt"
	"strings"
)

const (
	// DefaultGroup is the feature group every document field belongs to.
	DefaultGroup byte = 'n'
	// MetadataNamespace holds author and year features.
	MetadataNamespace = "ns0"
	// TextNamespace holds word counts, apart from metadata so a word equal to
	// an author name or a year never shares its weight.
	TextNamespace = "ns1"
)

// Extractor derives named features from one field of a record.
type Extractor[T any] func(record T) ([]Feature, error)

// FieldSpec declares where the features of one record field go.
type FieldSpec[T any] struct {
	Name      string
	Namespace string
	Group     byte
	Extract   Extractor[T]
}

// Schema is an ordered, validated set of field declarations for records of type T.
type Schema[T any] struct {
	fields []FieldSpec[T]
}

// SchemaBuilder collects field declarations. Build validates them once.
type SchemaBuilder[T any] struct {
	fields []FieldSpec[T]
}

// NewSchema starts a schema for records of type T.
func NewSchema[T any]() *SchemaBuilder[T] {
	return &SchemaBuilder[T]{}
}

// Field appends a field declaration.
func (b *SchemaBuilder[T]) Field(spec FieldSpec[T]) *SchemaBuilder[T] {
	b.fields = append(b.fields, spec)
	return b
}

// String declares a categorical field, emitted as the indicator feature "name=value".
func (b *SchemaBuilder[T]) String(name, namespace string, group byte, get func(T) string) *SchemaBuilder[T] {
	return b.Field(FieldSpec[T]{Name: name, Namespace: namespace, Group: group, Extract: StringFeature(name, get)})
}

// Number declares a numeric field, emitted as the feature "name" with the field's value.
func (b *SchemaBuilder[T]) Number(name, namespace string, group byte, get func(T) float64) *SchemaBuilder[T] {
	return b.Field(FieldSpec[T]{Name: name, Namespace: namespace, Group: group, Extract: NumberFeature(name, get)})
}

// Text declares a free text field, emitted as one feature per distinct token.
func (b *SchemaBuilder[T]) Text(name, namespace string, group byte, get func(T) string, pre *Preprocessor, weighting Weighting) *SchemaBuilder[T] {
	return b.Field(FieldSpec[T]{Name: name, Namespace: namespace, Group: group, Extract: TextFeatures(get, pre, weighting)})
}

// Build validates the declarations and freezes them into a Schema.
func (b *SchemaBuilder[T]) Build() (*Schema[T], error) {
	if len(b.fields) == 0 {
		return nil, fmt.Errorf("%w: no fields declared", ErrInvalidSchema)
	}
	seen := make(map[string]struct{}, len(b.fields))
	for i, field := range b.fields {
		switch {
		case strings.TrimSpace(field.Name) == "":
			return nil, fmt.Errorf("%w: field %d has no name", ErrInvalidSchema, i)
		case strings.TrimSpace(field.Namespace) == "":
			return nil, fmt.Errorf("%w: field %s has no namespace", ErrInvalidSchema, field.Name)
		case field.Group == 0 || field.Group == ' ' || field.Group == '|':
			return nil, fmt.Errorf("%w: field %s has invalid feature group %q", ErrInvalidSchema, field.Name, field.Group)
		case field.Extract == nil:
			return nil, fmt.Errorf("%w: field %s has no extractor", ErrInvalidSchema, field.Name)
		}
		if _, dup := seen[field.Name]; dup {
			return nil, fmt.Errorf("%w: field %s declared twice", ErrInvalidSchema, field.Name)
		}
		seen[field.Name] = struct{}{}
	}
	fields := make([]FieldSpec[T], len(b.fields))
	copy(fields, b.fields)
	return &Schema[T]{fields: fields}, nil
}

// Fields returns a copy of the declarations in order.
func (s *Schema[T]) Fields() []FieldSpec[T] {
	fields := make([]FieldSpec[T], len(s.fields))
	copy(fields, s.fields)
	return fields
}

// Assemble builds the example for one record. A nil label yields a prediction-only example.
func (s *Schema[T]) Assemble(record T, label *float64) (Example, error) {
	builder := s.NewBuilder()
	defer builder.Close()

	if err := builder.Add(record); err != nil {
		return Example{}, err
	}
	if label != nil {
		if err := builder.ApplyLabel(*label); err != nil {
			return Example{}, err
		}
	}
	return builder.Build()
}

// StringFeature emits "name=value" with value 1. An empty value is invalid input.
func StringFeature[T any](name string, get func(T) string) Extractor[T] {
	return func(record T) ([]Feature, error) {
		value := strings.TrimSpace(get(record))
		if value == "" {
			return nil, fmt.Errorf("%w: %s is empty", ErrInvalidInput, name)
		}
		return []Feature{{Name: name + "=" + value, Value: 1}}, nil
	}
}

// NumberFeature emits the field's value under its own name.
func NumberFeature[T any](name string, get func(T) float64) Extractor[T] {
	return func(record T) ([]Feature, error) {
		return []Feature{{Name: name, Value: get(record)}}, nil
	}
}

// TextFeatures emits one weighted feature per distinct token of the field.
func TextFeatures[T any](get func(T) string, pre *Preprocessor, weighting Weighting) Extractor[T] {
	return func(record T) ([]Feature, error) {
		var frequencies TermFrequencies
		if pre != nil {
			frequencies = pre.Extract(get(record))
		} else {
			frequencies = ExtractTextFeatures(get(record))
		}
		return frequencies.Features(weighting), nil
	}
}

// DocumentSchema declares the standard document layout: author and year in
// MetadataNamespace, word counts in TextNamespace, everything in DefaultGroup.
func DocumentSchema(pre *Preprocessor, weighting Weighting) (*Schema[Document], error) {
	return NewSchema[Document]().
		String("Author", MetadataNamespace, DefaultGroup, func(d Document) string { return d.Author }).
		Text("Text", TextNamespace, DefaultGroup, func(d Document) string { return d.Text }, pre, weighting).
		Number("Year", MetadataNamespace, DefaultGroup, func(d Document) float64 { return float64(d.Year) }).
		Build()
}
