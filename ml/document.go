package ml

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Document is the record the demo learns from.
type Document struct {
	ID     string `json:"id,omitempty" yaml:"id"`
	Author string `json:"author" yaml:"author" validate:"required"`
	Text   string `json:"text" yaml:"text" validate:"required"`
	Year   int    `json:"year" yaml:"year" validate:"required,min=1,max=9999"`
}

// Validate reports the first missing or out of range field as ErrInvalidInput.
func (d Document) Validate() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fmt.Errorf("%w: document field %s failed %q", ErrInvalidInput, fieldErrs[0].Field(), fieldErrs[0].Tag())
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}
