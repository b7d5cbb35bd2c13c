package middleware

import (
	"fmt"

	"civicdesk/backend/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the domain enum tags used in request bindings:
// complaint_status, priority and role.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	tags := map[string]validator.Func{
		"complaint_status": func(fl validator.FieldLevel) bool {
			return models.Status(fl.Field().String()).Valid()
		},
		"priority": func(fl validator.FieldLevel) bool {
			return models.Priority(fl.Field().String()).Valid()
		},
		"role": func(fl validator.FieldLevel) bool {
			return models.Role(fl.Field().String()).Valid()
		},
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}
