package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator.
func New() *validatorv10.Validate {
	return validatorv10.New()
}

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	if ve, ok := err.(validatorv10.ValidationErrors); ok {
		for _, fe := range ve {
			out[fe.StructNamespace()] = fe.Error()
		}
	} else {
		out["error"] = err.Error()
	}
	return out
}
