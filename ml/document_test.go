package ml

import (
	"errors"
	"testing"
)

func TestDocumentValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     Document
		wantErr bool
	}{
		{name: "valid", doc: Document{Author: "Broyden", Text: "Lorem ipsum", Year: 1999}},
		{name: "missing author", doc: Document{Text: "Lorem ipsum", Year: 1999}, wantErr: true},
		{name: "missing text", doc: Document{Author: "Fletcher", Year: 1989}, wantErr: true},
		{name: "missing year", doc: Document{Author: "Goldfarb", Text: "Senectus"}, wantErr: true},
		{name: "year out of range", doc: Document{Author: "Shanno", Text: "Lorem", Year: 12000}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
