package imagecatalog

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest checks the struct tags of a request DTO and converts any
// failures into ValidationErrors.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, &ValidationError{Field: fe.Field(), Reason: reason(fe)})
	}
	return errors.Join(errs...)
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must not be empty"
	case "excludesall":
		return "must not contain path separators"
	default:
		return "failed " + fe.Tag()
	}
}
