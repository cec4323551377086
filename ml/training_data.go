package ml

import (
	"fmt"
)

// ValidateDataset checks that every document is complete and has exactly one label.
func ValidateDataset(docs []Document, labels []float64) error {
	if len(docs) == 0 {
		return fmt.Errorf("%w: dataset is empty", ErrInvalidInput)
	}
	if len(labels) != len(docs) {
		return fmt.Errorf("%w: %d documents but %d labels", ErrInvalidInput, len(docs), len(labels))
	}
	for i, doc := range docs {
		if err := doc.Validate(); err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
	}
	return nil
}

// BuildExamples assembles a labelled example per document. A nil labels slice
// yields prediction-only examples.
func BuildExamples(schema *Schema[Document], docs []Document, labels []float64) ([]Example, error) {
	if labels != nil && len(labels) != len(docs) {
		return nil, fmt.Errorf("%w: %d documents but %d labels", ErrInvalidInput, len(docs), len(labels))
	}
	examples := make([]Example, 0, len(docs))
	for i, doc := range docs {
		if err := doc.Validate(); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		var label *float64
		if labels != nil {
			label = &labels[i]
		}
		example, err := schema.Assemble(doc, label)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		examples = append(examples, example)
	}
	return examples, nil
}
