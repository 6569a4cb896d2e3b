package api

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	app_errors "github.com/gambadio/Luca-Chat/internal/errors"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// A single validator instance is shared by every handler; it caches struct
// metadata after the first use.

var (
	validate *validator.Validate
	once     sync.Once
)

// getInstance initializes the validator singleton and registers the custom tags
// used by the request DTOs.
func getInstance() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		// "notblank" rejects whitespace-only strings, which "required" lets through.
		if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
			panic(fmt.Sprintf("register notblank validation: %v", err))
		}
	})
	return validate
}

// validateRequest checks a payload against its `validate` struct tags. A failure is
// returned as a wrapped app_errors.ErrValidation listing every offending field.
func validateRequest(payload interface{}) error {
	v := getInstance()
	err := v.Struct(payload)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: an unexpected error occurred during validation: %s", app_errors.ErrValidation, err.Error())
	}

	var errorMessages []string
	for _, fieldErr := range validationErrors {
		errorMessages = append(errorMessages, fmt.Sprintf("Field '%s' failed on the '%s' tag", fieldErr.Namespace(), fieldErr.Tag()))
	}

	return fmt.Errorf("%w: %s", app_errors.ErrValidation, strings.Join(errorMessages, "; "))
}
